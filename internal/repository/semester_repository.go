package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-scheduling-api/internal/models"
)

// SemesterRepository reads semesters and records their close.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs a semester repository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// FindByID returns a semester or sql.ErrNoRows.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	const query = `SELECT id, name, academic_year, start_date, end_date, registration_opens_at, registration_closes_at, closed_at, created_at, updated_at
FROM semesters WHERE id = $1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, fmt.Errorf("find semester: %w", err)
	}
	return &semester, nil
}

// MarkClosed stamps closed_at on the first close only and returns the
// effective timestamp.
func (r *SemesterRepository) MarkClosed(ctx context.Context, id string, at time.Time) (time.Time, error) {
	const query = `UPDATE semesters SET closed_at = COALESCE(closed_at, $2), updated_at = $2 WHERE id = $1 RETURNING closed_at`
	var closedAt time.Time
	if err := sqlx.GetContext(ctx, r.db, &closedAt, query, id, at); err != nil {
		return time.Time{}, fmt.Errorf("mark semester closed: %w", err)
	}
	return closedAt, nil
}
