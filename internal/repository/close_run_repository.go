package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-scheduling-api/internal/models"
)

const closeRunColumns = `id, semester_id, status, format, requested_by, processed, passed, failed, pending, result_url, error_message, created_at, updated_at, finished_at`

// CloseRunRepository persists asynchronous semester close runs.
type CloseRunRepository struct {
	db *sqlx.DB
}

// NewCloseRunRepository constructs the repository.
func NewCloseRunRepository(db *sqlx.DB) *CloseRunRepository {
	return &CloseRunRepository{db: db}
}

// Create inserts a new run with generated defaults.
func (r *CloseRunRepository) Create(ctx context.Context, run *models.CloseRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.CloseRunQueued
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now
	query := `INSERT INTO semester_close_runs (` + closeRunColumns + `)
VALUES (:id, :semester_id, :status, :format, :requested_by, :processed, :passed, :failed, :pending, :result_url, :error_message, :created_at, :updated_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create close run: %w", err)
	}
	return nil
}

// GetByID returns a run or sql.ErrNoRows.
func (r *CloseRunRepository) GetByID(ctx context.Context, id string) (*models.CloseRun, error) {
	var run models.CloseRun
	if err := r.db.GetContext(ctx, &run, `SELECT `+closeRunColumns+` FROM semester_close_runs WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("get close run: %w", err)
	}
	return &run, nil
}

// UpdateCloseRunParams lists the mutable fields of a run.
type UpdateCloseRunParams struct {
	Status       *models.CloseRunStatus
	Summary      *models.CloseSummary
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes.
func (r *CloseRunRepository) Update(ctx context.Context, id string, params UpdateCloseRunParams) error {
	set := make([]string, 0, 9)
	args := make([]interface{}, 0, 10)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Summary != nil {
		add("processed", params.Summary.Processed)
		add("passed", params.Summary.Passed)
		add("failed", params.Summary.Failed)
		add("pending", params.Summary.Pending)
	}
	if params.ResultURL != nil {
		add("result_url", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}
	if len(set) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE semester_close_runs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args)+1)
	args = append(args, id)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update close run: %w", err)
	}
	return nil
}

// ListQueued returns runs waiting for a worker, oldest first.
func (r *CloseRunRepository) ListQueued(ctx context.Context, limit int) ([]models.CloseRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + closeRunColumns + ` FROM semester_close_runs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var runs []models.CloseRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued close runs: %w", err)
	}
	return runs, nil
}
