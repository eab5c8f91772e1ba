package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/repository"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

type enrollmentSectionStore interface {
	FindDetail(ctx context.Context, id string) (*models.SectionDetail, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Section, error)
	CountAssignments(ctx context.Context, exec sqlx.ExtContext, sectionID string) (int, error)
}

type lockingUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error)
}

type assignmentStore interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, studentID, sectionID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, studentID, sectionID string) error
}

type semesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type conflictFinder interface {
	ConflictsFor(ctx context.Context, exec sqlx.ExtContext, party models.Party, candidate Candidate) ([]models.MeetingConflict, error)
}

// EnrollmentConfig toggles the supplementary enrollment rules.
type EnrollmentConfig struct {
	EnforceWindow   bool
	EnforceCapacity bool
}

// EnrollmentService is the gate every student enrollment passes through.
type EnrollmentService struct {
	sections    enrollmentSectionStore
	users       lockingUserStore
	assignments assignmentStore
	semesters   semesterReader
	conflicts   conflictFinder
	tx          txRunner
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         EnrollmentConfig
	now         func() time.Time
}

// NewEnrollmentService wires the gate.
func NewEnrollmentService(sections enrollmentSectionStore, users lockingUserStore, assignments assignmentStore, semesters semesterReader, conflicts conflictFinder, tx txRunner, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg EnrollmentConfig) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		sections:    sections,
		users:       users,
		assignments: assignments,
		semesters:   semesters,
		conflicts:   conflicts,
		tx:          tx,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Enroll admits a student into a section. Checks run in order: section,
// student and role, registration window, duplicate, then inside one
// transaction the duplicate again, conflicts and capacity before the insert.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollmentRequest) (assignment *models.Assignment, err error) {
	defer func() { s.record("enroll", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	detail, err := loadSection(ctx, s.sections, req.SectionID)
	if err != nil {
		return nil, err
	}
	party := models.Party{Kind: models.PartyStudent, ID: req.StudentID}
	if _, err := loadParty(ctx, s.users, party); err != nil {
		return nil, err
	}
	if err := s.checkWindow(ctx, detail.SemesterID); err != nil {
		return nil, err
	}

	exists, err := s.assignments.Exists(ctx, nil, req.StudentID, req.SectionID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to check existing enrollment")
	}
	if exists {
		return nil, alreadyEnrolled(req)
	}

	candidate, err := candidateFromSection(detail)
	if err != nil {
		return nil, err
	}

	assignment = &models.Assignment{
		StudentID:  req.StudentID,
		SectionID:  detail.ID,
		CourseID:   detail.CourseID,
		SemesterID: detail.SemesterID,
	}
	err = s.tx.RunInTx(ctx, func(exec sqlx.ExtContext) error {
		if _, err := s.users.LockByID(ctx, exec, req.StudentID); err != nil {
			return err
		}
		section, err := s.sections.LockByID(ctx, exec, req.SectionID)
		if err != nil {
			return err
		}

		exists, err := s.assignments.Exists(ctx, exec, req.StudentID, req.SectionID)
		if err != nil {
			return err
		}
		if exists {
			return alreadyEnrolled(req)
		}

		conflicts, err := s.conflicts.ConflictsFor(ctx, exec, party, candidate)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictsError(conflicts)
		}

		if s.cfg.EnforceCapacity && section.Capacity > 0 {
			enrolled, err := s.sections.CountAssignments(ctx, exec, section.ID)
			if err != nil {
				return err
			}
			if enrolled >= section.Capacity {
				return appErrors.Clone(appErrors.ErrSectionFull, fmt.Sprintf("section %s is full (%d/%d)", section.ID, enrolled, section.Capacity))
			}
		}

		if err := s.assignments.Create(ctx, exec, assignment); err != nil {
			if errors.Is(err, repository.ErrDuplicateAssignment) {
				return alreadyEnrolled(req)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, gateTxError(err, "failed to enroll student")
	}

	s.logger.Info("student enrolled",
		zap.String("student_id", req.StudentID),
		zap.String("section_id", req.SectionID),
		zap.String("assignment_id", assignment.ID))
	return assignment, nil
}

// Drop removes a student's enrollment.
func (s *EnrollmentService) Drop(ctx context.Context, req dto.EnrollmentRequest) (err error) {
	defer func() { s.record("drop", err) }()

	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	detail, err := loadSection(ctx, s.sections, req.SectionID)
	if err != nil {
		return err
	}
	if _, err := loadParty(ctx, s.users, models.Party{Kind: models.PartyStudent, ID: req.StudentID}); err != nil {
		return err
	}
	if err := s.checkWindow(ctx, detail.SemesterID); err != nil {
		return err
	}
	if err := s.assignments.Delete(ctx, nil, req.StudentID, req.SectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s is not enrolled in section %s", req.StudentID, req.SectionID))
		}
		return appErrors.Storage(err, "failed to drop enrollment")
	}
	s.logger.Info("student dropped", zap.String("student_id", req.StudentID), zap.String("section_id", req.SectionID))
	return nil
}

func (s *EnrollmentService) checkWindow(ctx context.Context, semesterID string) error {
	if !s.cfg.EnforceWindow {
		return nil
	}
	semester, err := s.semesters.FindByID(ctx, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("semester %s not found", semesterID))
		}
		return appErrors.Storage(err, "failed to load semester")
	}
	if semester.ClosedAt != nil {
		return appErrors.Clone(appErrors.ErrRegistrationClosed, fmt.Sprintf("semester %s is closed", semester.Name))
	}
	if !semester.RegistrationOpen(s.now().UTC()) {
		return appErrors.Clone(appErrors.ErrRegistrationClosed, fmt.Sprintf("registration for %s is not open", semester.Name))
	}
	return nil
}

func (s *EnrollmentService) record(operation string, err error) {
	s.metrics.RecordGateDecision(operation, outcomeCode(err))
	if err == nil {
		return
	}
	if appErrors.HasCode(err, appErrors.ErrStorageFailure.Code) {
		s.logger.Error("enrollment gate storage failure", zap.String("operation", operation), zap.Error(err))
		return
	}
	s.logger.Debug("enrollment rejected", zap.String("operation", operation), zap.Error(err))
}

func alreadyEnrolled(req dto.EnrollmentRequest) error {
	return appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("student %s is already enrolled in section %s", req.StudentID, req.SectionID))
}

// gateTxError keeps typed rejections raised inside a transaction and maps
// everything else onto NOT_FOUND or STORAGE_FAILURE.
func gateTxError(err error, message string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "record disappeared during the transaction")
	}
	return appErrors.Storage(err, message)
}

func outcomeCode(err error) string {
	if err == nil {
		return "OK"
	}
	return appErrors.FromError(err).Code
}
