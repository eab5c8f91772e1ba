package models

import "time"

// Semester bounds a teaching period and its registration window.
type Semester struct {
	ID                   string     `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	AcademicYear         string     `db:"academic_year" json:"academic_year"`
	StartDate            time.Time  `db:"start_date" json:"start_date"`
	EndDate              time.Time  `db:"end_date" json:"end_date"`
	RegistrationOpensAt  *time.Time `db:"registration_opens_at" json:"registration_opens_at,omitempty"`
	RegistrationClosesAt *time.Time `db:"registration_closes_at" json:"registration_closes_at,omitempty"`
	ClosedAt             *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// RegistrationOpen reports whether now falls inside the registration window.
// Missing bounds are treated as open ended.
func (s *Semester) RegistrationOpen(now time.Time) bool {
	if s.RegistrationOpensAt != nil && now.Before(*s.RegistrationOpensAt) {
		return false
	}
	if s.RegistrationClosesAt != nil && !now.Before(*s.RegistrationClosesAt) {
		return false
	}
	return true
}

// Ended reports whether the last day of the semester is behind now.
func (s *Semester) Ended(now time.Time) bool {
	lastDay := time.Date(s.EndDate.Year(), s.EndDate.Month(), s.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	return !now.UTC().Before(lastDay.AddDate(0, 0, 1))
}
