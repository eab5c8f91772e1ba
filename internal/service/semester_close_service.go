package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

const finalizePageSize = 200

// Close outcomes reported per assignment.
const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomePending = "pending"
)

type finalizeSource interface {
	ListForFinalize(ctx context.Context, semesterID, afterID string, limit int) ([]models.FinalizeCandidate, error)
}

type finalGradeWriter interface {
	InsertPlaceholder(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) (bool, error)
	ApplyScale(ctx context.Context, exec sqlx.ExtContext, gradeID, letter string, points *float64) error
}

type semesterCloser interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	MarkClosed(ctx context.Context, id string, at time.Time) (time.Time, error)
}

// CloseOptions tunes a close invocation.
type CloseOptions struct {
	// Force skips the semester-ended guard. Only the operator CLI sets it.
	Force bool
}

// SemesterCloseService finalizes grades for a semester.
type SemesterCloseService struct {
	semesters   semesterCloser
	assignments finalizeSource
	grades      finalGradeWriter
	metrics     *MetricsService
	logger      *zap.Logger
	pageSize    int
	now         func() time.Time
}

// NewSemesterCloseService constructs the finalizer.
func NewSemesterCloseService(semesters semesterCloser, assignments finalizeSource, grades finalGradeWriter, metrics *MetricsService, logger *zap.Logger) *SemesterCloseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterCloseService{
		semesters:   semesters,
		assignments: assignments,
		grades:      grades,
		metrics:     metrics,
		logger:      logger,
		pageSize:    finalizePageSize,
		now:         time.Now,
	}
}

// Close checks the guard, finalizes every assignment and stamps the
// semester closed. Running it again on a closed semester only fills gaps.
func (s *SemesterCloseService) Close(ctx context.Context, semesterID string, opts CloseOptions) (*models.CloseSummary, error) {
	started := s.now()
	semester, err := s.semesters.FindByID(ctx, semesterID)
	if err != nil {
		return nil, lookupError(err, "semester", semesterID)
	}
	if !opts.Force && !semester.Ended(started) {
		return nil, appErrors.Clone(appErrors.ErrSemesterNotEnded,
			fmt.Sprintf("semester %s ends on %s", semester.Name, semester.EndDate.Format("2006-01-02")))
	}

	logger := s.logger.With(zap.String("semester_id", semesterID), zap.Bool("force", opts.Force))
	logger.Info("semester close started", zap.Bool("reclose", semester.ClosedAt != nil))

	summary, err := s.Finalize(ctx, semesterID)
	if err != nil {
		s.metrics.ObserveCloseRun(string(models.CloseRunFailed), time.Since(started))
		logger.Error("semester close aborted", zap.Int("processed", summary.Processed), zap.Error(err))
		return nil, err
	}

	closedAt, err := s.semesters.MarkClosed(ctx, semesterID, s.now().UTC())
	if err != nil {
		s.metrics.ObserveCloseRun(string(models.CloseRunFailed), time.Since(started))
		return nil, appErrors.Storage(err, "failed to mark semester closed")
	}
	summary.ClosedAt = &closedAt

	s.metrics.ObserveCloseRun(string(models.CloseRunFinished), time.Since(started))
	logger.Info("semester close finished",
		zap.Int("processed", summary.Processed),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("pending", summary.Pending))
	return &summary, nil
}

// Finalize walks the semester's assignments page by page. Each assignment
// is settled by a single statement, so an interrupted run leaves every
// processed assignment complete and the next run picks up the rest.
func (s *SemesterCloseService) Finalize(ctx context.Context, semesterID string) (models.CloseSummary, error) {
	summary := models.CloseSummary{SemesterID: semesterID}
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return summary, appErrors.Storage(err, "semester close interrupted")
		}
		page, err := s.assignments.ListForFinalize(ctx, semesterID, after, s.pageSize)
		if err != nil {
			return summary, appErrors.Storage(err, "failed to list assignments for close")
		}
		for i := range page {
			outcome, err := s.settle(ctx, &page[i])
			if err != nil {
				return summary, appErrors.Storage(err, fmt.Sprintf("failed to finalize assignment %s", page[i].AssignmentID))
			}
			summary.Processed++
			switch outcome {
			case OutcomePassed:
				summary.Passed++
			case OutcomeFailed:
				summary.Failed++
			default:
				summary.Pending++
			}
			s.metrics.RecordCloseOutcome(outcome)
		}
		if len(page) < s.pageSize {
			return summary, nil
		}
		after = page[len(page)-1].AssignmentID
		s.logger.Debug("semester close progress", zap.String("semester_id", semesterID), zap.Int("processed", summary.Processed))
	}
}

func (s *SemesterCloseService) settle(ctx context.Context, c *models.FinalizeCandidate) (string, error) {
	if c.NumericGrade == nil {
		if c.GradeID == nil {
			if _, err := s.grades.InsertPlaceholder(ctx, nil, &models.Grade{
				AssignmentID: c.AssignmentID,
				SemesterID:   c.SemesterID,
				AcademicYear: c.AcademicYear,
			}); err != nil {
				return "", err
			}
		}
		return OutcomePending, nil
	}

	letter, points := LetterFor(*c.NumericGrade)
	stale := c.LetterGrade == nil || *c.LetterGrade != letter || (c.IsPlaceholder != nil && *c.IsPlaceholder)
	if stale && c.GradeID != nil {
		if err := s.grades.ApplyScale(ctx, nil, *c.GradeID, letter, &points); err != nil {
			return "", err
		}
	}
	if letter == models.LetterFail {
		return OutcomeFailed, nil
	}
	return OutcomePassed, nil
}
