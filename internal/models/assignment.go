package models

import "time"

// Assignment links a student to a section for one semester.
type Assignment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	SectionID  string    `db:"section_id" json:"section_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
