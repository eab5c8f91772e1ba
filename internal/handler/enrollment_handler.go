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

type enrollmentGate interface {
	Enroll(ctx context.Context, req dto.EnrollmentRequest) (*models.Assignment, error)
	Drop(ctx context.Context, req dto.EnrollmentRequest) error
}

// EnrollmentHandler exposes the enrollment gate.
type EnrollmentHandler struct {
	service enrollmentGate
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll a student in a section
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollmentRequest true "Enrollment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	assignment, err := h.service.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Drop godoc
// @Summary Remove a student from a section
// @Tags Enrollments
// @Accept json
// @Param payload body dto.EnrollmentRequest true "Enrollment"
// @Success 204
// @Router /enrollments [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	if err := h.service.Drop(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *EnrollmentHandler) bind(c *gin.Context) (dto.EnrollmentRequest, bool) {
	var req dto.EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return req, false
	}
	if err := actingOnSelf(c, req.StudentID); err != nil {
		response.Error(c, err)
		return req, false
	}
	return req, true
}
