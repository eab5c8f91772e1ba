package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
	"github.com/noah-isme/course-scheduling-api/pkg/response"
)

type timeGridService interface {
	GenerateGrid() dto.GridPreviewResponse
	ValidateSlot(input dto.MeetingInput) dto.ValidateSlotResponse
	RegenerateCatalog(ctx context.Context) (*models.CatalogVersion, error)
	CatalogVersion(ctx context.Context) (*models.CatalogVersion, error)
	ListCatalog(ctx context.Context, query dto.CatalogQuery) (*dto.CatalogResponse, error)
}

// TimeGridHandler exposes the slot catalog and slot validation.
type TimeGridHandler struct {
	service timeGridService
}

// NewTimeGridHandler constructs the handler.
func NewTimeGridHandler(svc *service.TimeGridService) *TimeGridHandler {
	return &TimeGridHandler{service: svc}
}

// Slots godoc
// @Summary List the persisted slot catalog
// @Tags TimeGrid
// @Produce json
// @Param day query string false "Day of week"
// @Success 200 {object} response.Envelope
// @Router /timegrid/slots [get]
func (h *TimeGridHandler) Slots(c *gin.Context) {
	var query dto.CatalogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	catalog, err := h.service.ListCatalog(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, catalog)
}

// Version godoc
// @Summary Current slot catalog version
// @Tags TimeGrid
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timegrid/version [get]
func (h *TimeGridHandler) Version(c *gin.Context) {
	version, err := h.service.CatalogVersion(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, version)
}

// Preview godoc
// @Summary Generate the weekly grid without persisting it
// @Tags TimeGrid
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timegrid/preview [get]
func (h *TimeGridHandler) Preview(c *gin.Context) {
	response.OK(c, h.service.GenerateGrid())
}

// Regenerate godoc
// @Summary Replace the slot catalog with a freshly generated grid
// @Tags TimeGrid
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /timegrid/regenerate [post]
func (h *TimeGridHandler) Regenerate(c *gin.Context) {
	version, err := h.service.RegenerateCatalog(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// Validate godoc
// @Summary Check a meeting against the grid rules
// @Tags TimeGrid
// @Accept json
// @Produce json
// @Param payload body dto.MeetingInput true "Meeting"
// @Success 200 {object} response.Envelope
// @Router /timegrid/validate [post]
func (h *TimeGridHandler) Validate(c *gin.Context) {
	var input dto.MeetingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid meeting payload"))
		return
	}
	response.OK(c, h.service.ValidateSlot(input))
}
