package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/service"
	"github.com/noah-isme/course-scheduling-api/pkg/response"
)

type timetableService interface {
	Commitments(ctx context.Context, party models.Party, semesterID string) ([]models.Commitment, error)
	ExportICS(ctx context.Context, party models.Party, semesterID string) (string, error)
}

// TimetableHandler exposes a party's weekly commitments.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Commitments godoc
// @Summary Weekly meetings a student or instructor is bound to
// @Tags Timetable
// @Produce json
// @Param kind path string true "student or instructor"
// @Param id path string true "Party ID"
// @Param semesterId query string false "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /parties/{kind}/{id}/commitments [get]
func (h *TimetableHandler) Commitments(c *gin.Context) {
	party, err := partyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.service.Commitments(c.Request.Context(), party, c.Query("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, list, len(list))
}

// Calendar godoc
// @Summary Weekly commitments as an iCalendar feed
// @Tags Timetable
// @Produce text/calendar
// @Param kind path string true "student or instructor"
// @Param id path string true "Party ID"
// @Param semesterId query string true "Semester ID"
// @Success 200 {string} string
// @Router /parties/{kind}/{id}/timetable.ics [get]
func (h *TimetableHandler) Calendar(c *gin.Context) {
	party, err := partyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	body, err := h.service.ExportICS(c.Request.Context(), party, c.Query("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}
