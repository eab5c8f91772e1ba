package models

// PartyKind distinguishes the two subjects of a conflict check.
type PartyKind string

const (
	PartyStudent    PartyKind = "student"
	PartyInstructor PartyKind = "instructor"
)

// Role returns the user role a party of this kind must carry.
func (k PartyKind) Role() UserRole {
	if k == PartyInstructor {
		return RoleInstructor
	}
	return RoleStudent
}

// Valid reports whether k is a known party kind.
func (k PartyKind) Valid() bool {
	return k == PartyStudent || k == PartyInstructor
}

// Party identifies whose commitments are checked.
type Party struct {
	Kind PartyKind `json:"kind"`
	ID   string    `json:"id"`
}

// Commitment is one weekly meeting a party is already bound to. It is a
// projection over assignments, sections and meetings and is never stored.
type Commitment struct {
	SectionID  string  `db:"section_id" json:"section_id"`
	CourseID   string  `db:"course_id" json:"course_id"`
	CourseCode string  `db:"course_code" json:"course_code"`
	CourseName string  `db:"course_name" json:"course_name"`
	SemesterID string  `db:"semester_id" json:"semester_id"`
	Room       *string `db:"room" json:"room,omitempty"`
	DayOfWeek  string  `db:"day_of_week" json:"day_of_week"`
	StartTime  string  `db:"start_time" json:"start_time"`
	EndTime    string  `db:"end_time" json:"end_time"`
}

// MeetingConflict reports one existing meeting overlapping one candidate meeting.
type MeetingConflict struct {
	ExistingSectionID   string `json:"existing_section_id"`
	ExistingCourseID    string `json:"existing_course_id"`
	ExistingCourseCode  string `json:"existing_course_code"`
	ExistingCourseName  string `json:"existing_course_name"`
	DayOfWeek           string `json:"day_of_week"`
	ExistingStartTime   string `json:"existing_start_time"`
	ExistingEndTime     string `json:"existing_end_time"`
	CandidateSectionID  string `json:"candidate_section_id,omitempty"`
	CandidateCourseID   string `json:"candidate_course_id,omitempty"`
	CandidateCourseName string `json:"candidate_course_name,omitempty"`
	CandidateStartTime  string `json:"candidate_start_time"`
	CandidateEndTime    string `json:"candidate_end_time"`
}
