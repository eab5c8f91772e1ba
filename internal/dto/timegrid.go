package dto

import "github.com/noah-isme/course-scheduling-api/internal/models"

// MeetingInput is a proposed weekly meeting in raw wall-clock form.
type MeetingInput struct {
	DayOfWeek string `json:"dayOfWeek" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// ValidateSlotResponse reports the outcome of a slot check.
type ValidateSlotResponse struct {
	Valid   bool   `json:"valid"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message,omitempty"`
}

// CatalogQuery filters the slot catalog.
type CatalogQuery struct {
	DayOfWeek string `form:"day" json:"day"`
}

// CatalogResponse returns the active catalog generation.
type CatalogResponse struct {
	Version     int64             `json:"version"`
	GeneratedAt string            `json:"generatedAt,omitempty"`
	Slots       []models.TimeSlot `json:"slots"`
}

// GridPreviewResponse lists what the current constants would generate.
type GridPreviewResponse struct {
	SlotsPerDay int               `json:"slotsPerDay"`
	Total       int               `json:"total"`
	Slots       []models.TimeSlot `json:"slots"`
}
