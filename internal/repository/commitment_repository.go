package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-scheduling-api/internal/models"
)

// CommitmentRepository projects a party's weekly meetings out of
// assignments, sections and section_meetings. Nothing here is stored.
type CommitmentRepository struct {
	db *sqlx.DB
}

// NewCommitmentRepository constructs the projection reader.
func NewCommitmentRepository(db *sqlx.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

func (r *CommitmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const commitmentColumns = `s.id AS section_id, s.course_id, c.code AS course_code, c.name AS course_name, s.semester_id, s.room,
m.day_of_week, m.start_time, m.end_time`

// CommitmentFilter narrows a projection. Empty fields do not filter.
type CommitmentFilter struct {
	SemesterID       string
	ExcludeSectionID string
}

// ForStudent lists the meetings reachable through the student's assignments.
func (r *CommitmentRepository) ForStudent(ctx context.Context, exec sqlx.ExtContext, studentID string, filter CommitmentFilter) ([]models.Commitment, error) {
	query := `SELECT ` + commitmentColumns + `
FROM assignments a
JOIN sections s ON s.id = a.section_id
JOIN courses c ON c.id = s.course_id
JOIN section_meetings m ON m.section_id = s.id
WHERE a.student_id = $1
AND ($2 = '' OR s.semester_id = $2)
AND ($3 = '' OR s.id <> $3)
ORDER BY m.day_of_week, m.start_time`
	commitments := []models.Commitment{}
	if err := sqlx.SelectContext(ctx, r.exec(exec), &commitments, query, studentID, filter.SemesterID, filter.ExcludeSectionID); err != nil {
		return nil, fmt.Errorf("list student commitments: %w", err)
	}
	return commitments, nil
}

// ForInstructor lists the meetings of every section the instructor teaches.
func (r *CommitmentRepository) ForInstructor(ctx context.Context, exec sqlx.ExtContext, instructorID string, filter CommitmentFilter) ([]models.Commitment, error) {
	query := `SELECT ` + commitmentColumns + `
FROM sections s
JOIN courses c ON c.id = s.course_id
JOIN section_meetings m ON m.section_id = s.id
WHERE s.instructor_id = $1
AND ($2 = '' OR s.semester_id = $2)
AND ($3 = '' OR s.id <> $3)
ORDER BY m.day_of_week, m.start_time`
	commitments := []models.Commitment{}
	if err := sqlx.SelectContext(ctx, r.exec(exec), &commitments, query, instructorID, filter.SemesterID, filter.ExcludeSectionID); err != nil {
		return nil, fmt.Errorf("list instructor commitments: %w", err)
	}
	return commitments, nil
}

// ForParty dispatches on the party kind.
func (r *CommitmentRepository) ForParty(ctx context.Context, exec sqlx.ExtContext, party models.Party, filter CommitmentFilter) ([]models.Commitment, error) {
	if party.Kind == models.PartyInstructor {
		return r.ForInstructor(ctx, exec, party.ID, filter)
	}
	return r.ForStudent(ctx, exec, party.ID, filter)
}
