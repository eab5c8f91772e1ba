package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/repository"
	"github.com/noah-isme/course-scheduling-api/internal/timegrid"
	"github.com/noah-isme/course-scheduling-api/pkg/cache"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

type catalogStoreStub struct {
	version *models.CatalogVersion
	slots   []models.TimeSlot
	lists   int
}

func (s *catalogStoreStub) ReplaceCatalog(ctx context.Context, exec sqlx.ExtContext, slots []models.TimeSlot, generatedAt time.Time) (*models.CatalogVersion, error) {
	next := int64(1)
	if s.version != nil {
		next = s.version.Version + 1
	}
	s.version = &models.CatalogVersion{Version: next, SlotCount: len(slots), GeneratedAt: generatedAt}
	s.slots = make([]models.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		slot.CatalogVersion = next
		s.slots = append(s.slots, slot)
	}
	cp := *s.version
	return &cp, nil
}

func (s *catalogStoreStub) List(ctx context.Context, day string) ([]models.TimeSlot, error) {
	s.lists++
	out := make([]models.TimeSlot, 0)
	for _, slot := range s.slots {
		if day == "" || slot.DayOfWeek == day {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (s *catalogStoreStub) CurrentVersion(ctx context.Context) (*models.CatalogVersion, error) {
	if s.version == nil {
		return nil, sql.ErrNoRows
	}
	cp := *s.version
	return &cp, nil
}

func newTimeGridFixture() (*catalogStoreStub, *TimeGridService) {
	store := &catalogStoreStub{}
	repo := repository.NewMemoryCacheRepository(cache.NewMemory(time.Minute))
	caches := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewTimeGridService(timegrid.DefaultConfig(), store, &serialTx{}, caches, NewMetricsService(), nil)
	return store, svc
}

func TestGenerateGridPreview(t *testing.T) {
	_, svc := newTimeGridFixture()

	preview := svc.GenerateGrid()
	assert.Equal(t, 11, preview.SlotsPerDay)
	assert.Equal(t, 55, preview.Total)
	assert.Equal(t, "08:00", preview.Slots[0].StartTime)
	assert.Equal(t, "08:50", preview.Slots[0].EndTime)
}

func TestGeneratedSlotsPassValidation(t *testing.T) {
	_, svc := newTimeGridFixture()

	for _, slot := range svc.GenerateGrid().Slots {
		resp := svc.ValidateSlot(dto.MeetingInput{DayOfWeek: slot.DayOfWeek, StartTime: slot.StartTime, EndTime: slot.EndTime})
		assert.True(t, resp.Valid, "%s %s-%s: %s", slot.DayOfWeek, slot.StartTime, slot.EndTime, resp.Message)
	}
}

func TestValidateSlotReportsRule(t *testing.T) {
	_, svc := newTimeGridFixture()

	resp := svc.ValidateSlot(dto.MeetingInput{DayOfWeek: "Friday", StartTime: "08:00", EndTime: "08:50"})
	assert.False(t, resp.Valid)
	assert.Equal(t, string(timegrid.RuleDay), resp.Rule)

	resp = svc.ValidateSlot(dto.MeetingInput{DayOfWeek: "Monday", StartTime: "19:30", EndTime: "20:20"})
	assert.Equal(t, string(timegrid.RuleWindow), resp.Rule)
}

func TestCatalogRegenerationAndCaching(t *testing.T) {
	store, svc := newTimeGridFixture()
	ctx := context.Background()

	_, err := svc.ListCatalog(ctx, dto.CatalogQuery{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	version, err := svc.RegenerateCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version.Version)
	assert.Equal(t, 55, version.SlotCount)

	monday, err := svc.ListCatalog(ctx, dto.CatalogQuery{DayOfWeek: "monday"})
	require.NoError(t, err)
	assert.Len(t, monday.Slots, 11)

	again, err := svc.ListCatalog(ctx, dto.CatalogQuery{DayOfWeek: "Monday"})
	require.NoError(t, err)
	require.Len(t, again.Slots, 11)
	assert.Equal(t, monday.Slots[3].StartTime, again.Slots[3].StartTime)
	assert.Equal(t, 1, store.lists)

	version, err = svc.RegenerateCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version.Version)

	fresh, err := svc.ListCatalog(ctx, dto.CatalogQuery{DayOfWeek: "Monday"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Version)
	assert.Equal(t, int64(2), fresh.Slots[0].CatalogVersion)
	assert.Equal(t, 2, store.lists)

	_, err = svc.ListCatalog(ctx, dto.CatalogQuery{DayOfWeek: "Saturday"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}
