package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), Handlers{
		TimeGrid:      &TimeGridHandler{service: &timeGridStub{}},
		Sections:      &SectionHandler{},
		Enrollments:   &EnrollmentHandler{service: &enrollmentGateStub{}},
		Grades:        &GradeHandler{service: &gradeStub{}},
		SemesterClose: &SemesterCloseHandler{closer: &closerStub{}, runs: &closeRunStub{}},
		Timetable:     &TimetableHandler{service: &timetableStub{}},
	}, tokenStub{
		"stu": {UserID: "stu-1", Role: models.RoleStudent},
		"ins": {UserID: "ins-1", Role: models.RoleInstructor},
		"com": {UserID: "com-1", Role: models.RoleCommittee},
	})
	return r
}

func call(r http.Handler, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouteAccessMatrix(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		method, path, token string
		want                int
	}{
		{http.MethodGet, "/api/v1/timegrid/preview", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/timegrid/preview", "stu", http.StatusForbidden},
		{http.MethodGet, "/api/v1/timegrid/preview", "com", http.StatusOK},
		{http.MethodPost, "/api/v1/timegrid/regenerate", "ins", http.StatusForbidden},
		{http.MethodGet, "/api/v1/students/stu-1/gpa", "stu", http.StatusOK},
		{http.MethodGet, "/api/v1/students/stu-2/gpa", "stu", http.StatusForbidden},
		{http.MethodGet, "/api/v1/students/stu-2/transcript", "com", http.StatusOK},
		{http.MethodPost, "/api/v1/semesters/s1/close", "ins", http.StatusForbidden},
		{http.MethodPost, "/api/v1/semesters/s1/close", "com", http.StatusOK},
		{http.MethodGet, "/api/v1/close-runs/run-1", "com", http.StatusNotFound},
		{http.MethodGet, "/api/v1/close-runs/download/anything", "", http.StatusForbidden},
		{http.MethodGet, "/api/v1/parties/student/stu-1/commitments", "ins", http.StatusOK},
		{http.MethodDelete, "/api/v1/sections/sec-1", "stu", http.StatusForbidden},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, call(r, tc.method, tc.path, tc.token), "%s %s as %q", tc.method, tc.path, tc.token)
	}
}
