package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/timegrid"
	"github.com/noah-isme/course-scheduling-api/pkg/database"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

const catalogCachePattern = "timegrid:catalog:*"

type slotCatalogStore interface {
	ReplaceCatalog(ctx context.Context, exec sqlx.ExtContext, slots []models.TimeSlot, generatedAt time.Time) (*models.CatalogVersion, error)
	List(ctx context.Context, day string) ([]models.TimeSlot, error)
	CurrentVersion(ctx context.Context) (*models.CatalogVersion, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn database.TxFunc) error
}

// TimeGridService exposes the slot generator, the validator and the stored catalog.
type TimeGridService struct {
	cfg       timegrid.Config
	validator *timegrid.Validator
	store     slotCatalogStore
	tx        txRunner
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewTimeGridService binds the grid constants to the catalog store.
func NewTimeGridService(cfg timegrid.Config, store slotCatalogStore, tx txRunner, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *TimeGridService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeGridService{
		cfg:       cfg,
		validator: timegrid.NewValidator(cfg),
		store:     store,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Validator returns the slot validator bound to the service constants.
func (s *TimeGridService) Validator() *timegrid.Validator {
	return s.validator
}

// GenerateGrid computes the catalog the current constants would produce
// without touching storage.
func (s *TimeGridService) GenerateGrid() dto.GridPreviewResponse {
	slots := timegrid.Generate(s.cfg)
	return dto.GridPreviewResponse{
		SlotsPerDay: s.cfg.SlotsPerDay(),
		Total:       len(slots),
		Slots:       toTimeSlots(slots),
	}
}

// ValidateSlot checks a proposed meeting. Rule failures are reported in the
// response rather than as an error.
func (s *TimeGridService) ValidateSlot(input dto.MeetingInput) dto.ValidateSlotResponse {
	_, err := s.validator.Validate(input.DayOfWeek, input.StartTime, input.EndTime)
	if err == nil {
		return dto.ValidateSlotResponse{Valid: true}
	}
	var slotErr *timegrid.SlotError
	if errors.As(err, &slotErr) {
		return dto.ValidateSlotResponse{Valid: false, Rule: string(slotErr.Rule), Message: slotErr.Message}
	}
	return dto.ValidateSlotResponse{Valid: false, Message: err.Error()}
}

// RegenerateCatalog replaces the stored catalog wholesale in one transaction.
func (s *TimeGridService) RegenerateCatalog(ctx context.Context) (*models.CatalogVersion, error) {
	slots := toTimeSlots(timegrid.Generate(s.cfg))
	at := s.now().UTC()

	var version *models.CatalogVersion
	err := s.tx.RunInTx(ctx, func(exec sqlx.ExtContext) error {
		v, err := s.store.ReplaceCatalog(ctx, exec, slots, at)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to regenerate slot catalog")
	}

	if err := s.cache.Invalidate(ctx, catalogCachePattern); err != nil {
		s.logger.Warn("slot catalog cache not invalidated", zap.Error(err))
	}
	s.metrics.SetCatalogSize(version.SlotCount)
	s.logger.Info("slot catalog regenerated", zap.Int64("version", version.Version), zap.Int("slots", version.SlotCount))
	return version, nil
}

// CatalogVersion returns the active catalog generation.
func (s *TimeGridService) CatalogVersion(ctx context.Context) (*models.CatalogVersion, error) {
	version, err := s.store.CurrentVersion(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot catalog has not been generated")
		}
		return nil, appErrors.Storage(err, "failed to load slot catalog version")
	}
	return version, nil
}

// ListCatalog returns the stored catalog, optionally for one day. Results
// are cached per catalog version so a regeneration never serves stale slots.
func (s *TimeGridService) ListCatalog(ctx context.Context, query dto.CatalogQuery) (*dto.CatalogResponse, error) {
	day := ""
	if query.DayOfWeek != "" {
		d, ok := timegrid.ParseDay(query.DayOfWeek, s.cfg.Days)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%q is not an operating day", query.DayOfWeek))
		}
		day = string(d)
	}

	version, err := s.CatalogVersion(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("timegrid:catalog:v%d", version.Version)
	if day != "" {
		key += ":" + day
	}
	var cached dto.CatalogResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	slots, err := s.store.List(ctx, day)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list slot catalog")
	}
	resp := &dto.CatalogResponse{
		Version:     version.Version,
		GeneratedAt: version.GeneratedAt.UTC().Format(time.RFC3339),
		Slots:       slots,
	}
	s.cache.Set(ctx, key, resp, 0)
	return resp, nil
}

func toTimeSlots(slots []timegrid.Slot) []models.TimeSlot {
	out := make([]models.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, models.TimeSlot{
			DayOfWeek: string(slot.Day),
			StartTime: slot.Start.String(),
			EndTime:   slot.End.String(),
		})
	}
	return out
}
