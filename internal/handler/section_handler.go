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

type conflictChecker interface {
	Check(ctx context.Context, req dto.CheckConflictsRequest) (*dto.CheckConflictsResponse, error)
}

type sectionManager interface {
	CreateSection(ctx context.Context, req dto.CreateSectionRequest) (*models.SectionDetail, error)
	AssignInstructor(ctx context.Context, sectionID string, req dto.AssignInstructorRequest) (*models.SectionDetail, error)
	DeleteSection(ctx context.Context, id string) error
	Section(ctx context.Context, id string) (*models.SectionDetail, error)
}

// SectionHandler exposes section lifecycle and conflict checks.
type SectionHandler struct {
	sections  sectionManager
	conflicts conflictChecker
}

// NewSectionHandler constructs the handler.
func NewSectionHandler(sections *service.SectionService, conflicts *service.ConflictService) *SectionHandler {
	return &SectionHandler{sections: sections, conflicts: conflicts}
}

// CheckConflicts godoc
// @Summary List meetings that overlap a party's existing commitments
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.CheckConflictsRequest true "Conflict check"
// @Success 200 {object} response.Envelope
// @Router /conflicts/check [post]
func (h *SectionHandler) CheckConflicts(c *gin.Context) {
	var req dto.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	result, err := h.conflicts.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Create godoc
// @Summary Create a section with its weekly meetings
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body dto.CreateSectionRequest true "Section"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req dto.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}
	detail, err := h.sections.CreateSection(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Get godoc
// @Summary Get a section with its meetings
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	detail, err := h.sections.Section(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// AssignInstructor godoc
// @Summary Reassign a section's instructor and meetings
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body dto.AssignInstructorRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections/{id}/instructor [put]
func (h *SectionHandler) AssignInstructor(c *gin.Context) {
	var req dto.AssignInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid instructor payload"))
		return
	}
	detail, err := h.sections.AssignInstructor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Delete godoc
// @Summary Delete a section without enrollments
// @Tags Sections
// @Param id path string true "Section ID"
// @Success 204
// @Router /sections/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	if err := h.sections.DeleteSection(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
