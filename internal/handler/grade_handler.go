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

type gradeService interface {
	SaveGrade(ctx context.Context, assignmentID string, req dto.SaveGradeRequest) (*models.Grade, error)
	StudentGPA(ctx context.Context, studentID, semesterID string) (*models.GPASummary, error)
	Transcript(ctx context.Context, studentID string) ([]models.TranscriptEntry, error)
}

// GradeHandler exposes grade entry and GPA reads.
type GradeHandler struct {
	service gradeService
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Save godoc
// @Summary Record or overwrite a numeric grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Param payload body dto.SaveGradeRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Router /grades/{assignmentId} [put]
func (h *GradeHandler) Save(c *gin.Context) {
	var req dto.SaveGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req.GradedBy, req.GraderRole = claims.UserID, claims.Role
	grade, err := h.service.SaveGrade(c.Request.Context(), c.Param("assignmentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, grade)
}

// GPA godoc
// @Summary Credit-weighted GPA of a student
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Param semesterId query string false "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/gpa [get]
func (h *GradeHandler) GPA(c *gin.Context) {
	summary, err := h.service.StudentGPA(c.Request.Context(), c.Param("id"), c.Query("semesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Transcript godoc
// @Summary Every grade of a student including pending placeholders
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *GradeHandler) Transcript(c *gin.Context) {
	entries, err := h.service.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, entries, len(entries))
}
