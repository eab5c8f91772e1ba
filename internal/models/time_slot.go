package models

import "time"

// TimeSlot is one persisted entry of the generated slot catalog.
type TimeSlot struct {
	ID             string    `db:"id" json:"id"`
	DayOfWeek      string    `db:"day_of_week" json:"day_of_week"`
	StartTime      string    `db:"start_time" json:"start_time"`
	EndTime        string    `db:"end_time" json:"end_time"`
	CatalogVersion int64     `db:"catalog_version" json:"catalog_version"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CatalogVersion identifies the active slot catalog generation.
type CatalogVersion struct {
	Version     int64     `db:"version" json:"version"`
	SlotCount   int       `db:"slot_count" json:"slot_count"`
	GeneratedAt time.Time `db:"generated_at" json:"generated_at"`
}
