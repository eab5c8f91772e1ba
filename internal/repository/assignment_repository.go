package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-scheduling-api/internal/models"
)

// AssignmentRepository persists student enrollments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Exists reports whether the (student, section) pair is already enrolled.
func (r *AssignmentRepository) Exists(ctx context.Context, exec sqlx.ExtContext, studentID, sectionID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM assignments WHERE student_id = $1 AND section_id = $2)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, studentID, sectionID); err != nil {
		return false, fmt.Errorf("check assignment exists: %w", err)
	}
	return exists, nil
}

// FindByID returns an assignment or sql.ErrNoRows.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, student_id, section_id, course_id, semester_id, created_at FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// Create inserts an assignment. A unique violation on (student_id,
// section_id) is reported as ErrDuplicateAssignment.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignments (id, student_id, section_id, course_id, semester_id, created_at)
VALUES (:id, :student_id, :section_id, :course_id, :semester_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, assignment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAssignment
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Delete removes the (student, section) assignment or returns sql.ErrNoRows.
func (r *AssignmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, studentID, sectionID string) error {
	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM assignments WHERE student_id = $1 AND section_id = $2`, studentID, sectionID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectAffected(res, "delete assignment")
}

// ListForFinalize pages through a semester's assignments joined with their
// grade row using keyset pagination on the assignment id.
func (r *AssignmentRepository) ListForFinalize(ctx context.Context, semesterID, afterID string, limit int) ([]models.FinalizeCandidate, error) {
	if limit <= 0 {
		limit = 200
	}
	const query = `SELECT a.id AS assignment_id, a.student_id, a.semester_id, sm.academic_year,
g.id AS grade_id, g.numeric_grade, g.letter_grade, g.is_placeholder
FROM assignments a
JOIN semesters sm ON sm.id = a.semester_id
LEFT JOIN grades g ON g.assignment_id = a.id AND g.semester_id = a.semester_id
WHERE a.semester_id = $1 AND a.id > $2
ORDER BY a.id ASC
LIMIT $3`
	candidates := []models.FinalizeCandidate{}
	if err := r.db.SelectContext(ctx, &candidates, query, semesterID, afterID, limit); err != nil {
		return nil, fmt.Errorf("list assignments for finalize: %w", err)
	}
	return candidates, nil
}
