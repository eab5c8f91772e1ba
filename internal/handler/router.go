package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-scheduling-api/internal/middleware"
	"github.com/noah-isme/course-scheduling-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	TimeGrid      *TimeGridHandler
	Sections      *SectionHandler
	Enrollments   *EnrollmentHandler
	Grades        *GradeHandler
	SemesterClose *SemesterCloseHandler
	Timetable     *TimetableHandler
}

const (
	committee  = models.RoleCommittee
	instructor = models.RoleInstructor
	student    = models.RoleStudent
)

// RegisterRoutes mounts the scheduling API on api.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	// The signed token is the credential for report downloads.
	api.GET("/close-runs/download/:token", h.SemesterClose.Download)

	secured := api.Group("", middleware.JWT(tokens))
	{
		grid := secured.Group("/timegrid")
		grid.GET("/slots", h.TimeGrid.Slots)
		grid.GET("/version", h.TimeGrid.Version)
		grid.POST("/validate", h.TimeGrid.Validate)
		grid.GET("/preview", middleware.RequireRoles(committee), h.TimeGrid.Preview)
		grid.POST("/regenerate", middleware.RequireRoles(committee), h.TimeGrid.Regenerate)

		secured.POST("/conflicts/check", h.Sections.CheckConflicts)

		sections := secured.Group("/sections")
		sections.GET("/:id", h.Sections.Get)
		sections.POST("", middleware.RequireRoles(committee), h.Sections.Create)
		sections.PUT("/:id/instructor", middleware.RequireRoles(committee), h.Sections.AssignInstructor)
		sections.DELETE("/:id", middleware.RequireRoles(committee), h.Sections.Delete)

		enrollments := secured.Group("/enrollments", middleware.RequireRoles(student, committee))
		enrollments.POST("", h.Enrollments.Enroll)
		enrollments.DELETE("", h.Enrollments.Drop)

		secured.PUT("/grades/:assignmentId", middleware.RequireRoles(instructor, committee), h.Grades.Save)

		students := secured.Group("/students/:id", middleware.RBAC(string(committee), middleware.Self))
		students.GET("/gpa", h.Grades.GPA)
		students.GET("/transcript", h.Grades.Transcript)

		semesters := secured.Group("/semesters/:id", middleware.RequireRoles(committee))
		semesters.POST("/close", h.SemesterClose.Close)
		semesters.POST("/close-runs", h.SemesterClose.StartRun)

		secured.GET("/close-runs/:id", middleware.RequireRoles(committee), h.SemesterClose.RunStatus)

		parties := secured.Group("/parties/:kind/:id")
		parties.GET("/commitments", h.Timetable.Commitments)
		parties.GET("/timetable.ics", h.Timetable.Calendar)
	}
}
