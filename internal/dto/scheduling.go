package dto

import "github.com/noah-isme/course-scheduling-api/internal/models"

// CheckConflictsRequest asks whether a candidate section fits a party's week.
// Either SectionID or Meetings must be supplied; explicit meetings win.
type CheckConflictsRequest struct {
	PartyKind  string         `json:"partyKind" validate:"required,oneof=student instructor"`
	PartyID    string         `json:"partyId" validate:"required"`
	SectionID  string         `json:"sectionId"`
	SemesterID string         `json:"semesterId"`
	Meetings   []MeetingInput `json:"meetings" validate:"omitempty,dive"`
}

// CheckConflictsResponse carries every overlap found.
type CheckConflictsResponse struct {
	Count     int                      `json:"count"`
	Conflicts []models.MeetingConflict `json:"conflicts"`
}

// CreateSectionRequest creates a section and its meetings atomically.
type CreateSectionRequest struct {
	CourseID     string         `json:"courseId" validate:"required"`
	InstructorID string         `json:"instructorId" validate:"required"`
	SemesterID   string         `json:"semesterId" validate:"required"`
	Room         *string        `json:"room" validate:"omitempty,max=64"`
	Capacity     int            `json:"capacity" validate:"min=0"`
	Meetings     []MeetingInput `json:"meetings" validate:"omitempty,dive"`
}

// AssignInstructorRequest replaces the instructor and meetings of a section.
type AssignInstructorRequest struct {
	InstructorID string         `json:"instructorId" validate:"required"`
	Meetings     []MeetingInput `json:"meetings" validate:"omitempty,dive"`
}

// EnrollmentRequest identifies a (student, section) pair.
type EnrollmentRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	SectionID string `json:"sectionId" validate:"required"`
}

// SaveGradeRequest records a numeric score for an assignment.
type SaveGradeRequest struct {
	NumericGrade *float64 `json:"numericGrade" validate:"required,min=0,max=100"`

	// Set from the caller's token, never from the body.
	GradedBy   string          `json:"-"`
	GraderRole models.UserRole `json:"-"`
}

// StartCloseRunRequest queues an asynchronous semester close.
type StartCloseRunRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv pdf"`
}

// CloseRunResponse returns run state plus the download link once finished.
type CloseRunResponse struct {
	Run         models.CloseRun `json:"run"`
	DownloadURL string          `json:"downloadUrl,omitempty"`
}
