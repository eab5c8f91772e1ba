package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/repository"
	"github.com/noah-isme/course-scheduling-api/internal/timegrid"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

type sectionStore interface {
	FindDetail(ctx context.Context, id string) (*models.SectionDetail, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Section, error)
	Create(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error
	UpdateInstructor(ctx context.Context, exec sqlx.ExtContext, sectionID, instructorID string) error
	ReplaceMeetings(ctx context.Context, exec sqlx.ExtContext, sectionID string, meetings []models.SectionMeeting) error
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// SectionService owns the meeting-creation path of the gate: new sections
// and instructor reassignment.
type SectionService struct {
	sections  sectionStore
	courses   courseReader
	semesters semesterReader
	users     lockingUserStore
	conflicts conflictFinder
	slots     *timegrid.Validator
	tx        txRunner
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewSectionService constructs the service.
func NewSectionService(sections sectionStore, courses courseReader, semesters semesterReader, users lockingUserStore, conflicts conflictFinder, slots *timegrid.Validator, tx txRunner, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if slots == nil {
		slots = timegrid.NewValidator(timegrid.DefaultConfig())
	}
	return &SectionService{
		sections:  sections,
		courses:   courses,
		semesters: semesters,
		users:     users,
		conflicts: conflicts,
		slots:     slots,
		tx:        tx,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// CreateSection validates the meetings, checks the instructor's week and
// writes the section with all of its meetings in one transaction.
func (s *SectionService) CreateSection(ctx context.Context, req dto.CreateSectionRequest) (detail *models.SectionDetail, err error) {
	defer func() { s.record("create_section", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, lookupError(err, "course", req.CourseID)
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		return nil, lookupError(err, "semester", req.SemesterID)
	}
	party := models.Party{Kind: models.PartyInstructor, ID: req.InstructorID}
	if _, err := loadParty(ctx, s.users, party); err != nil {
		return nil, err
	}
	slots, err := parseMeetings(s.slots, req.Meetings, true)
	if err != nil {
		return nil, err
	}

	section := &models.Section{
		CourseID:     course.ID,
		InstructorID: req.InstructorID,
		SemesterID:   req.SemesterID,
		Room:         req.Room,
		Capacity:     req.Capacity,
	}
	candidate := Candidate{CourseID: course.ID, CourseName: course.Name, SemesterID: req.SemesterID, Meetings: slots}

	err = s.tx.RunInTx(ctx, func(exec sqlx.ExtContext) error {
		if _, err := s.users.LockByID(ctx, exec, req.InstructorID); err != nil {
			return err
		}
		conflicts, err := s.conflicts.ConflictsFor(ctx, exec, party, candidate)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictsError(conflicts)
		}
		if err := s.sections.Create(ctx, exec, section); err != nil {
			return err
		}
		return s.sections.ReplaceMeetings(ctx, exec, section.ID, toSectionMeetings(slots))
	})
	if err != nil {
		return nil, gateTxError(err, "failed to create section")
	}

	s.logger.Info("section created", zap.String("section_id", section.ID), zap.String("course_id", course.ID), zap.Int("meetings", len(slots)))
	return s.reload(ctx, section.ID)
}

// AssignInstructor moves a section to an instructor. When meetings are
// supplied they replace the stored ones; otherwise the stored meetings are
// checked against the new instructor's week.
func (s *SectionService) AssignInstructor(ctx context.Context, sectionID string, req dto.AssignInstructorRequest) (detail *models.SectionDetail, err error) {
	defer func() { s.record("assign_instructor", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor assignment payload")
	}
	current, err := loadSection(ctx, s.sections, sectionID)
	if err != nil {
		return nil, err
	}
	party := models.Party{Kind: models.PartyInstructor, ID: req.InstructorID}
	if _, err := loadParty(ctx, s.users, party); err != nil {
		return nil, err
	}

	var candidate Candidate
	replace := len(req.Meetings) > 0
	if replace {
		slots, err := parseMeetings(s.slots, req.Meetings, true)
		if err != nil {
			return nil, err
		}
		candidate = Candidate{Meetings: slots}
		fillCandidate(&candidate, current)
	} else {
		candidate, err = candidateFromSection(current)
		if err != nil {
			return nil, err
		}
	}

	err = s.tx.RunInTx(ctx, func(exec sqlx.ExtContext) error {
		if _, err := s.sections.LockByID(ctx, exec, sectionID); err != nil {
			return err
		}
		if _, err := s.users.LockByID(ctx, exec, req.InstructorID); err != nil {
			return err
		}
		conflicts, err := s.conflicts.ConflictsFor(ctx, exec, party, candidate)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictsError(conflicts)
		}
		if err := s.sections.UpdateInstructor(ctx, exec, sectionID, req.InstructorID); err != nil {
			return err
		}
		if replace {
			return s.sections.ReplaceMeetings(ctx, exec, sectionID, toSectionMeetings(candidate.Meetings))
		}
		return nil
	})
	if err != nil {
		return nil, gateTxError(err, "failed to assign instructor")
	}

	s.logger.Info("instructor assigned", zap.String("section_id", sectionID), zap.String("instructor_id", req.InstructorID), zap.Bool("meetings_replaced", replace))
	return s.reload(ctx, sectionID)
}

// DeleteSection removes a section and, by cascade, its meetings. Sections
// with enrolled students are refused.
func (s *SectionService) DeleteSection(ctx context.Context, id string) error {
	if err := s.sections.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s not found", id))
		case errors.Is(err, repository.ErrSectionInUse):
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("section %s still has enrolled students", id))
		default:
			return appErrors.Storage(err, "failed to delete section")
		}
	}
	s.logger.Info("section deleted", zap.String("section_id", id))
	return nil
}

// Section returns one section with its meetings.
func (s *SectionService) Section(ctx context.Context, id string) (*models.SectionDetail, error) {
	return loadSection(ctx, s.sections, id)
}

func (s *SectionService) reload(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail, err := s.sections.FindDetail(ctx, id)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to reload section")
	}
	return detail, nil
}

func (s *SectionService) record(operation string, err error) {
	s.metrics.RecordGateDecision(operation, outcomeCode(err))
	if err != nil && appErrors.HasCode(err, appErrors.ErrStorageFailure.Code) {
		s.logger.Error("section gate storage failure", zap.String("operation", operation), zap.Error(err))
	}
}

func toSectionMeetings(slots []timegrid.Slot) []models.SectionMeeting {
	meetings := make([]models.SectionMeeting, 0, len(slots))
	for _, slot := range slots {
		meetings = append(meetings, models.SectionMeeting{
			DayOfWeek: string(slot.Day),
			StartTime: slot.Start.String(),
			EndTime:   slot.End.String(),
		})
	}
	return meetings
}

func lookupError(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", kind, id))
	}
	return appErrors.Storage(err, fmt.Sprintf("failed to load %s", kind))
}
