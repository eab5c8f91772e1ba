package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
	"github.com/noah-isme/course-scheduling-api/pkg/response"
)

type semesterCloser interface {
	Close(ctx context.Context, semesterID string, opts service.CloseOptions) (*models.CloseSummary, error)
}

type closeRunService interface {
	Start(ctx context.Context, semesterID string, req dto.StartCloseRunRequest, actorID string) (*models.CloseRun, error)
	Status(ctx context.Context, id string) (*dto.CloseRunResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.CloseDownload, error)
}

// SemesterCloseHandler exposes the grade finalizer.
type SemesterCloseHandler struct {
	closer semesterCloser
	runs   closeRunService
}

// NewSemesterCloseHandler constructs the handler.
func NewSemesterCloseHandler(closer *service.SemesterCloseService, runs *service.CloseRunService) *SemesterCloseHandler {
	return &SemesterCloseHandler{closer: closer, runs: runs}
}

// Close godoc
// @Summary Close a semester and finalize its grades synchronously
// @Tags Semesters
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /semesters/{id}/close [post]
func (h *SemesterCloseHandler) Close(c *gin.Context) {
	summary, err := h.closer.Close(c.Request.Context(), c.Param("id"), service.CloseOptions{})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// StartRun godoc
// @Summary Queue a background semester close
// @Tags Semesters
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body dto.StartCloseRunRequest false "Report format"
// @Success 202 {object} response.Envelope
// @Router /semesters/{id}/close-runs [post]
func (h *SemesterCloseHandler) StartRun(c *gin.Context) {
	var req dto.StartCloseRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid close run payload"))
			return
		}
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	run, err := h.runs.Start(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// RunStatus godoc
// @Summary Progress of a background semester close
// @Tags Semesters
// @Produce json
// @Param id path string true "Close run ID"
// @Success 200 {object} response.Envelope
// @Router /close-runs/{id} [get]
func (h *SemesterCloseHandler) RunStatus(c *gin.Context) {
	status, err := h.runs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Download godoc
// @Summary Download a semester close report via signed token
// @Tags Semesters
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /close-runs/download/{token} [get]
func (h *SemesterCloseHandler) Download(c *gin.Context) {
	download, err := h.runs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Storage(err, "failed to read close report"))
		return
	}
	headers := map[string]string{
		"Content-Disposition": `attachment; filename="` + download.Filename + `"`,
		"Cache-Control":       "no-store",
		"Expires":             download.ExpiresAt.UTC().Format(http.TimeFormat),
		"X-Token-Expires-In":  strconv.Itoa(int(time.Until(download.ExpiresAt).Seconds())),
	}
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, headers)
}
