package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-scheduling-api/internal/models"
)

// GradeRepository persists final grades and reads transcript rows.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

func (r *GradeRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func prepareGrade(grade *models.Grade) {
	now := time.Now().UTC()
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
}

// Upsert writes a real grade, replacing whatever row the assignment had for
// the semester. Only an explicit save reaches this path.
func (r *GradeRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) error {
	prepareGrade(grade)
	const query = `INSERT INTO grades (id, assignment_id, semester_id, academic_year, numeric_grade, letter_grade, points, is_placeholder, created_at, updated_at)
VALUES (:id, :assignment_id, :semester_id, :academic_year, :numeric_grade, :letter_grade, :points, :is_placeholder, :created_at, :updated_at)
ON CONFLICT (assignment_id, semester_id)
DO UPDATE SET numeric_grade = EXCLUDED.numeric_grade, letter_grade = EXCLUDED.letter_grade, points = EXCLUDED.points,
is_placeholder = EXCLUDED.is_placeholder, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// InsertPlaceholder adds a PN row unless the assignment already has a grade
// for the semester. It reports whether a row was written.
func (r *GradeRepository) InsertPlaceholder(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) (bool, error) {
	prepareGrade(grade)
	grade.NumericGrade = nil
	grade.Points = nil
	grade.LetterGrade = models.LetterPlaceholder
	grade.IsPlaceholder = true

	const query = `INSERT INTO grades (id, assignment_id, semester_id, academic_year, numeric_grade, letter_grade, points, is_placeholder, created_at, updated_at)
VALUES (:id, :assignment_id, :semester_id, :academic_year, :numeric_grade, :letter_grade, :points, :is_placeholder, :created_at, :updated_at)
ON CONFLICT (assignment_id, semester_id) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, grade)
	if err != nil {
		return false, fmt.Errorf("insert placeholder grade: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert placeholder grade rows affected: %w", err)
	}
	return affected > 0, nil
}

// ApplyScale stores the letter and points derived from an existing numeric
// grade. The numeric value itself is left untouched.
func (r *GradeRepository) ApplyScale(ctx context.Context, exec sqlx.ExtContext, gradeID, letter string, points *float64) error {
	const query = `UPDATE grades SET letter_grade = $2, points = $3, is_placeholder = FALSE, updated_at = $4
WHERE id = $1 AND numeric_grade IS NOT NULL AND (letter_grade IS DISTINCT FROM $2 OR points IS DISTINCT FROM $3 OR is_placeholder)`
	if _, err := r.exec(exec).ExecContext(ctx, query, gradeID, letter, points, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply grade scale: %w", err)
	}
	return nil
}

const transcriptQuery = `SELECT a.id AS assignment_id, a.student_id, a.semester_id, sm.name AS semester_name, g.academic_year,
c.id AS course_id, c.code AS course_code, c.name AS course_name, c.credits,
g.numeric_grade, g.letter_grade, g.points, g.is_placeholder
FROM grades g
JOIN assignments a ON a.id = g.assignment_id
JOIN courses c ON c.id = a.course_id
JOIN semesters sm ON sm.id = g.semester_id`

// ListByStudent returns the student's grades, optionally for one semester.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID, semesterID string) ([]models.TranscriptEntry, error) {
	query := transcriptQuery + `
WHERE a.student_id = $1 AND ($2 = '' OR g.semester_id = $2)
ORDER BY sm.start_date ASC, c.code ASC`
	entries := []models.TranscriptEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, studentID, semesterID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return entries, nil
}

// ListBySemester returns every grade recorded for the semester.
func (r *GradeRepository) ListBySemester(ctx context.Context, semesterID string) ([]models.TranscriptEntry, error) {
	query := transcriptQuery + `
WHERE g.semester_id = $1
ORDER BY a.student_id ASC, c.code ASC`
	entries := []models.TranscriptEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, semesterID); err != nil {
		return nil, fmt.Errorf("list semester grades: %w", err)
	}
	return entries, nil
}
