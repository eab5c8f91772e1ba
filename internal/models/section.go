package models

import "time"

// Section is one scheduled offering of a course.
type Section struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	SemesterID   string    `db:"semester_id" json:"semester_id"`
	Room         *string   `db:"room" json:"room,omitempty"`
	Capacity     int       `db:"capacity" json:"capacity"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SectionMeeting is a weekly (day, start, end) slot owned by a section.
type SectionMeeting struct {
	ID        string    `db:"id" json:"id"`
	SectionID string    `db:"section_id" json:"section_id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SectionDetail enriches a section with its course and meetings.
type SectionDetail struct {
	Section
	CourseCode     string           `db:"course_code" json:"course_code"`
	CourseName     string           `db:"course_name" json:"course_name"`
	Credits        int              `db:"credits" json:"credits"`
	InstructorName string           `db:"instructor_name" json:"instructor_name"`
	Enrolled       int              `db:"enrolled" json:"enrolled"`
	Meetings       []SectionMeeting `db:"-" json:"meetings"`
}
