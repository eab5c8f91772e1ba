package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/repository"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
	"github.com/noah-isme/course-scheduling-api/pkg/export"
	"github.com/noah-isme/course-scheduling-api/pkg/jobs"
)

// CloseRunJobType tags queue jobs carrying a semester close.
const CloseRunJobType = "semester_close"

type closeRunStore interface {
	Create(ctx context.Context, run *models.CloseRun) error
	GetByID(ctx context.Context, id string) (*models.CloseRun, error)
	Update(ctx context.Context, id string, params repository.UpdateCloseRunParams) error
	ListQueued(ctx context.Context, limit int) ([]models.CloseRun, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type reportGenerator interface {
	Generate(ctx context.Context, run *models.CloseRun) (*ExportResult, error)
}

type semesterCloseRunner interface {
	Close(ctx context.Context, semesterID string, opts CloseOptions) (*models.CloseSummary, error)
}

// CloseRunConfig carries defaults for queued closes.
type CloseRunConfig struct {
	DefaultFormat string
	StatusTTL     time.Duration
}

// CloseDownload is an opened close report ready to stream.
type CloseDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// CloseRunService queues semester closes and exposes their progress.
type CloseRunService struct {
	runs      closeRunStore
	semesters semesterReader
	queue     jobDispatcher
	exporter  *ExportService
	cache     *CacheService
	logger    *zap.Logger
	cfg       CloseRunConfig
	now       func() time.Time
}

// NewCloseRunService constructs the service.
func NewCloseRunService(runs closeRunStore, semesters semesterReader, queue jobDispatcher, exporter *ExportService, cache *CacheService, logger *zap.Logger, cfg CloseRunConfig) *CloseRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = string(export.FormatCSV)
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 10 * time.Minute
	}
	return &CloseRunService{
		runs:      runs,
		semesters: semesters,
		queue:     queue,
		exporter:  exporter,
		cache:     cache,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start checks the close guard and queues a run for the semester.
func (s *CloseRunService) Start(ctx context.Context, semesterID string, req dto.StartCloseRunRequest, actorID string) (*models.CloseRun, error) {
	raw := req.Format
	if raw == "" {
		raw = s.cfg.DefaultFormat
	}
	format, err := export.ParseFormat(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	semester, err := s.semesters.FindByID(ctx, semesterID)
	if err != nil {
		return nil, lookupError(err, "semester", semesterID)
	}
	if !semester.Ended(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrSemesterNotEnded,
			fmt.Sprintf("semester %s ends on %s", semester.Name, semester.EndDate.Format("2006-01-02")))
	}

	run := &models.CloseRun{
		SemesterID:  semester.ID,
		Status:      models.CloseRunQueued,
		Format:      string(format),
		RequestedBy: actorID,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Storage(err, "failed to create close run")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: CloseRunJobType}); err != nil {
		failed := models.CloseRunFailed
		msg := "failed to enqueue close run"
		now := s.now().UTC()
		if updateErr := s.runs.Update(ctx, run.ID, repository.UpdateCloseRunParams{
			Status:       &failed,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); updateErr != nil {
			s.logger.Warn("failed to mark close run failed", zap.String("run_id", run.ID), zap.Error(updateErr))
		}
		return nil, appErrors.Storage(err, msg)
	}
	s.logger.Info("close run queued", zap.String("run_id", run.ID), zap.String("semester_id", semester.ID), zap.String("actor_id", actorID))
	return run, nil
}

// Status returns a run and, once finished, its download link. Terminal
// runs are served from cache.
func (s *CloseRunService) Status(ctx context.Context, id string) (*dto.CloseRunResponse, error) {
	key := closeRunCacheKey(id)
	var cached dto.CloseRunResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "close run", id)
	}
	resp := &dto.CloseRunResponse{Run: *run}
	if run.ResultURL != nil {
		resp.DownloadURL = *run.ResultURL
	}
	if run.Status == models.CloseRunFinished || run.Status == models.CloseRunFailed {
		s.cache.Set(ctx, key, resp, s.cfg.StatusTTL)
	}
	return resp, nil
}

// ResolveDownload validates a token and opens the report it points to.
func (s *CloseRunService) ResolveDownload(ctx context.Context, token string) (*CloseDownload, error) {
	runID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("close run %s not found", runID))
		}
		return nil, appErrors.Storage(err, "failed to load close run")
	}
	if run.ResultURL == nil || !strings.HasSuffix(*run.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if run.Status != models.CloseRunFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "close report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to open close report")
	}
	contentType := "text/csv"
	if renderer, err := export.RendererFor(export.Format(run.Format)); err == nil {
		contentType = renderer.ContentType()
	}
	return &CloseDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		ContentType: contentType,
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued runs after a restart.
func (s *CloseRunService) RecoverPendingJobs(ctx context.Context) int {
	pending, err := s.runs.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued close runs", zap.Error(err))
		return 0
	}
	requeued := 0
	for _, run := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: CloseRunJobType}); err != nil {
			s.logger.Warn("failed to requeue close run", zap.String("run_id", run.ID), zap.Error(err))
			continue
		}
		requeued++
	}
	return requeued
}

func closeRunCacheKey(id string) string {
	return "closerun:status:" + id
}

// CloseRunWorker executes queued closes and renders their report.
type CloseRunWorker struct {
	runs       closeRunStore
	closer     semesterCloseRunner
	exporter   reportGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewCloseRunWorker constructs a worker. maxRetries must match the queue's
// MaxRetries so the last attempt the queue makes settles the run as FAILED.
func NewCloseRunWorker(runs closeRunStore, closer semesterCloseRunner, exporter reportGenerator, maxRetries int, logger *zap.Logger) *CloseRunWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &CloseRunWorker{
		runs:       runs,
		closer:     closer,
		exporter:   exporter,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *CloseRunWorker) Handle(ctx context.Context, job jobs.Job) error {
	run, err := w.runs.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.CloseRunProcessing
	if err := w.runs.Update(ctx, job.ID, repository.UpdateCloseRunParams{Status: &processing}); err != nil {
		return err
	}

	summary, err := w.closer.Close(ctx, run.SemesterID, CloseOptions{})
	var result *ExportResult
	if err == nil {
		result, err = w.exporter.Generate(ctx, run)
	}
	if err != nil {
		if w.fail(ctx, job, summary, err) {
			return nil
		}
		return err
	}

	finished := models.CloseRunFinished
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.runs.Update(ctx, job.ID, repository.UpdateCloseRunParams{
		Status:       &finished,
		Summary:      summary,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark close run finished", zap.String("run_id", job.ID), zap.Error(err))
		return err
	}
	return nil
}

// fail records the failure and reports whether the run is settled for good
// so the queue must not retry it.
func (w *CloseRunWorker) fail(ctx context.Context, job jobs.Job, summary *models.CloseSummary, cause error) bool {
	msg := cause.Error()
	params := repository.UpdateCloseRunParams{ErrorMessage: &msg, Summary: summary}
	status := models.CloseRunQueued
	rejected := appErrors.HasCode(cause, appErrors.ErrSemesterNotEnded.Code) || appErrors.HasCode(cause, appErrors.ErrNotFound.Code)
	if rejected || job.Attempt >= w.maxRetries {
		status = models.CloseRunFailed
		now := time.Now().UTC()
		params.FinishedAt = &now
	}
	params.Status = &status
	if err := w.runs.Update(ctx, job.ID, params); err != nil {
		w.logger.Warn("failed to record close run failure", zap.String("run_id", job.ID), zap.String("status", string(status)), zap.Error(err))
	}
	return rejected
}
