package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-scheduling-api/internal/models"
)

// SectionRepository manages sections and the meetings they own.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a section repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

func (r *SectionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindDetail loads a section with its course, instructor name, enrollment
// count and meetings.
func (r *SectionRepository) FindDetail(ctx context.Context, id string) (*models.SectionDetail, error) {
	const query = `SELECT s.id, s.course_id, s.instructor_id, s.semester_id, s.room, s.capacity, s.created_at, s.updated_at,
c.code AS course_code, c.name AS course_name, c.credits, u.full_name AS instructor_name,
(SELECT COUNT(*) FROM assignments a WHERE a.section_id = s.id) AS enrolled
FROM sections s
JOIN courses c ON c.id = s.course_id
JOIN users u ON u.id = s.instructor_id
WHERE s.id = $1`
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, fmt.Errorf("find section detail: %w", err)
	}
	meetings, err := r.ListMeetings(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	detail.Meetings = meetings
	return &detail, nil
}

// LockByID takes a row lock on the section so capacity checks and inserts
// for the same section run one at a time.
func (r *SectionRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, instructor_id, semester_id, room, capacity, created_at, updated_at
FROM sections WHERE id = $1 FOR UPDATE`
	var section models.Section
	if err := sqlx.GetContext(ctx, r.exec(exec), &section, query, id); err != nil {
		return nil, fmt.Errorf("lock section: %w", err)
	}
	return &section, nil
}

// CountAssignments returns how many students are enrolled in the section.
func (r *SectionRepository) CountAssignments(ctx context.Context, exec sqlx.ExtContext, sectionID string) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, `SELECT COUNT(*) FROM assignments WHERE section_id = $1`, sectionID); err != nil {
		return 0, fmt.Errorf("count section assignments: %w", err)
	}
	return count, nil
}

// ListMeetings returns meetings ordered by weekday then start time.
func (r *SectionRepository) ListMeetings(ctx context.Context, exec sqlx.ExtContext, sectionID string) ([]models.SectionMeeting, error) {
	const query = `SELECT id, section_id, day_of_week, start_time, end_time, created_at
FROM section_meetings WHERE section_id = $1
ORDER BY array_position(ARRAY['Sunday','Monday','Tuesday','Wednesday','Thursday']::varchar[], day_of_week), start_time`
	meetings := []models.SectionMeeting{}
	if err := sqlx.SelectContext(ctx, r.exec(exec), &meetings, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section meetings: %w", err)
	}
	return meetings, nil
}

// Create inserts the section row.
func (r *SectionRepository) Create(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error {
	now := time.Now().UTC()
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, course_id, instructor_id, semester_id, room, capacity, created_at, updated_at)
VALUES (:id, :course_id, :instructor_id, :semester_id, :room, :capacity, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// UpdateInstructor moves the section to a different instructor.
func (r *SectionRepository) UpdateInstructor(ctx context.Context, exec sqlx.ExtContext, sectionID, instructorID string) error {
	res, err := r.exec(exec).ExecContext(ctx, `UPDATE sections SET instructor_id = $2, updated_at = $3 WHERE id = $1`, sectionID, instructorID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update section instructor: %w", err)
	}
	return expectAffected(res, "update section instructor")
}

// ReplaceMeetings swaps the full meeting set of a section. Callers run it
// inside the transaction that also validated the meetings.
func (r *SectionRepository) ReplaceMeetings(ctx context.Context, exec sqlx.ExtContext, sectionID string, meetings []models.SectionMeeting) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM section_meetings WHERE section_id = $1`, sectionID); err != nil {
		return fmt.Errorf("clear section meetings: %w", err)
	}

	const query = `INSERT INTO section_meetings (id, section_id, day_of_week, start_time, end_time, created_at)
VALUES (:id, :section_id, :day_of_week, :start_time, :end_time, :created_at)`
	now := time.Now().UTC()
	for i := range meetings {
		m := &meetings[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.SectionID = sectionID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, m); err != nil {
			return fmt.Errorf("insert section meeting: %w", err)
		}
	}
	return nil
}

// Delete removes a section; its meetings cascade. Sections that still have
// enrollments are refused with ErrSectionInUse.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrSectionInUse
		}
		return fmt.Errorf("delete section: %w", err)
	}
	return expectAffected(res, "delete section")
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
