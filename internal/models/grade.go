package models

import "time"

// Letter grades produced by the grading scale.
const (
	LetterPlaceholder = "PN"
	LetterFail        = "F"
)

// Grade is the final grade of one assignment for a closed semester.
type Grade struct {
	ID            string    `db:"id" json:"id"`
	AssignmentID  string    `db:"assignment_id" json:"assignment_id"`
	SemesterID    string    `db:"semester_id" json:"semester_id"`
	AcademicYear  string    `db:"academic_year" json:"academic_year"`
	NumericGrade  *float64  `db:"numeric_grade" json:"numeric_grade"`
	LetterGrade   string    `db:"letter_grade" json:"letter_grade"`
	Points        *float64  `db:"points" json:"points"`
	IsPlaceholder bool      `db:"is_placeholder" json:"is_placeholder"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// FinalizeCandidate is an assignment of a closing semester joined with its
// grade row, if one exists.
type FinalizeCandidate struct {
	AssignmentID  string   `db:"assignment_id"`
	StudentID     string   `db:"student_id"`
	SemesterID    string   `db:"semester_id"`
	AcademicYear  string   `db:"academic_year"`
	GradeID       *string  `db:"grade_id"`
	NumericGrade  *float64 `db:"numeric_grade"`
	LetterGrade   *string  `db:"letter_grade"`
	IsPlaceholder *bool    `db:"is_placeholder"`
}

// TranscriptEntry is one graded course on a student's record.
type TranscriptEntry struct {
	AssignmentID  string   `db:"assignment_id" json:"assignment_id"`
	StudentID     string   `db:"student_id" json:"student_id"`
	SemesterID    string   `db:"semester_id" json:"semester_id"`
	SemesterName  string   `db:"semester_name" json:"semester_name"`
	AcademicYear  string   `db:"academic_year" json:"academic_year"`
	CourseID      string   `db:"course_id" json:"course_id"`
	CourseCode    string   `db:"course_code" json:"course_code"`
	CourseName    string   `db:"course_name" json:"course_name"`
	Credits       int      `db:"credits" json:"credits"`
	NumericGrade  *float64 `db:"numeric_grade" json:"numeric_grade"`
	LetterGrade   string   `db:"letter_grade" json:"letter_grade"`
	Points        *float64 `db:"points" json:"points"`
	IsPlaceholder bool     `db:"is_placeholder" json:"is_placeholder"`
}

// GPASummary is the credit weighted point average over real grades.
type GPASummary struct {
	StudentID    string  `json:"student_id"`
	SemesterID   string  `json:"semester_id,omitempty"`
	GPA          float64 `json:"gpa"`
	Credits      int     `json:"credits"`
	Graded       int     `json:"graded"`
	Placeholders int     `json:"placeholders"`
}

// CloseSummary aggregates the outcome of one semester close.
type CloseSummary struct {
	SemesterID string     `json:"semester_id"`
	Processed  int        `json:"processed"`
	Passed     int        `json:"passed"`
	Failed     int        `json:"failed"`
	Pending    int        `json:"pending"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}
