package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-scheduling-api/internal/models"
)

// TimeSlotRepository stores the generated slot catalog.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs the catalog repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

func (r *TimeSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceCatalog bumps the catalog version and swaps every slot row for the
// given set. Run it inside a transaction so readers see either the old or
// the new catalog.
func (r *TimeSlotRepository) ReplaceCatalog(ctx context.Context, exec sqlx.ExtContext, slots []models.TimeSlot, generatedAt time.Time) (*models.CatalogVersion, error) {
	target := r.exec(exec)

	const bump = `INSERT INTO time_slot_catalog (id, version, slot_count, generated_at) VALUES (1, 1, $1, $2)
ON CONFLICT (id) DO UPDATE SET version = time_slot_catalog.version + 1, slot_count = EXCLUDED.slot_count, generated_at = EXCLUDED.generated_at
RETURNING version, slot_count, generated_at`
	var version models.CatalogVersion
	if err := sqlx.GetContext(ctx, target, &version, bump, len(slots), generatedAt); err != nil {
		return nil, fmt.Errorf("bump slot catalog version: %w", err)
	}

	if _, err := target.ExecContext(ctx, `DELETE FROM time_slots`); err != nil {
		return nil, fmt.Errorf("clear slot catalog: %w", err)
	}

	const insert = `INSERT INTO time_slots (id, day_of_week, start_time, end_time, catalog_version, created_at)
VALUES (:id, :day_of_week, :start_time, :end_time, :catalog_version, :created_at)`
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.CatalogVersion = version.Version
		slot.CreatedAt = generatedAt
		if _, err := sqlx.NamedExecContext(ctx, target, insert, slot); err != nil {
			return nil, fmt.Errorf("insert time slot: %w", err)
		}
	}
	return &version, nil
}

// List returns the catalog ordered by weekday then start, optionally for one day.
func (r *TimeSlotRepository) List(ctx context.Context, day string) ([]models.TimeSlot, error) {
	const query = `SELECT id, day_of_week, start_time, end_time, catalog_version, created_at
FROM time_slots WHERE ($1 = '' OR day_of_week = $1)
ORDER BY array_position(ARRAY['Sunday','Monday','Tuesday','Wednesday','Thursday']::varchar[], day_of_week), start_time`
	slots := []models.TimeSlot{}
	if err := r.db.SelectContext(ctx, &slots, query, day); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// CurrentVersion returns the active catalog version or sql.ErrNoRows when the
// catalog was never generated.
func (r *TimeSlotRepository) CurrentVersion(ctx context.Context) (*models.CatalogVersion, error) {
	var version models.CatalogVersion
	if err := r.db.GetContext(ctx, &version, `SELECT version, slot_count, generated_at FROM time_slot_catalog WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("get slot catalog version: %w", err)
	}
	return &version, nil
}
