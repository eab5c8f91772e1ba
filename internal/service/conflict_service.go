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

type commitmentReader interface {
	ForParty(ctx context.Context, exec sqlx.ExtContext, party models.Party, filter repository.CommitmentFilter) ([]models.Commitment, error)
}

type sectionDetailReader interface {
	FindDetail(ctx context.Context, id string) (*models.SectionDetail, error)
}

type partyReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Candidate is the section a party wants to take on, with its meetings
// already parsed.
type Candidate struct {
	SectionID  string
	CourseID   string
	CourseName string
	SemesterID string
	Meetings   []timegrid.Slot
}

// DetectConflicts compares every candidate meeting with every existing
// commitment and returns one record per overlapping pair. Meetings on
// different days never conflict and touching boundaries do not overlap.
// Commitments of the candidate section itself are ignored.
func DetectConflicts(candidate Candidate, existing []models.Commitment) []models.MeetingConflict {
	conflicts := make([]models.MeetingConflict, 0)
	for _, meeting := range candidate.Meetings {
		for _, commitment := range existing {
			if candidate.SectionID != "" && commitment.SectionID == candidate.SectionID {
				continue
			}
			day, interval, ok := commitmentInterval(commitment)
			if !ok || day != meeting.Day {
				continue
			}
			if !timegrid.Overlaps(meeting.Interval(), interval) {
				continue
			}
			conflicts = append(conflicts, models.MeetingConflict{
				ExistingSectionID:   commitment.SectionID,
				ExistingCourseID:    commitment.CourseID,
				ExistingCourseCode:  commitment.CourseCode,
				ExistingCourseName:  commitment.CourseName,
				DayOfWeek:           string(day),
				ExistingStartTime:   interval.Start.String(),
				ExistingEndTime:     interval.End.String(),
				CandidateSectionID:  candidate.SectionID,
				CandidateCourseID:   candidate.CourseID,
				CandidateCourseName: candidate.CourseName,
				CandidateStartTime:  meeting.Start.String(),
				CandidateEndTime:    meeting.End.String(),
			})
		}
	}
	return conflicts
}

func commitmentInterval(c models.Commitment) (timegrid.Day, timegrid.Interval, bool) {
	day, ok := timegrid.ParseDay(c.DayOfWeek, timegrid.OperatingDays)
	if !ok {
		return "", timegrid.Interval{}, false
	}
	start, err := timegrid.ParseClock(c.StartTime)
	if err != nil {
		return "", timegrid.Interval{}, false
	}
	end, err := timegrid.ParseClock(c.EndTime)
	if err != nil || end <= start {
		return "", timegrid.Interval{}, false
	}
	return day, timegrid.Interval{Start: start, End: end}, true
}

// ConflictService answers whether a candidate section fits a party's week.
type ConflictService struct {
	commitments commitmentReader
	sections    sectionDetailReader
	users       partyReader
	slots       *timegrid.Validator
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewConflictService constructs the detector service.
func NewConflictService(commitments commitmentReader, sections sectionDetailReader, users partyReader, slots *timegrid.Validator, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if slots == nil {
		slots = timegrid.NewValidator(timegrid.DefaultConfig())
	}
	return &ConflictService{
		commitments: commitments,
		sections:    sections,
		users:       users,
		slots:       slots,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
	}
}

// Check runs the detector for an API request. Explicit meetings take
// precedence over the stored meetings of SectionID.
func (s *ConflictService) Check(ctx context.Context, req dto.CheckConflictsRequest) (*dto.CheckConflictsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	party := models.Party{Kind: models.PartyKind(req.PartyKind), ID: req.PartyID}
	if _, err := loadParty(ctx, s.users, party); err != nil {
		return nil, err
	}

	candidate := Candidate{SectionID: req.SectionID, SemesterID: req.SemesterID}
	switch {
	case len(req.Meetings) > 0:
		slots, err := parseMeetings(s.slots, req.Meetings, false)
		if err != nil {
			return nil, err
		}
		candidate.Meetings = slots
		if req.SectionID != "" {
			detail, err := loadSection(ctx, s.sections, req.SectionID)
			if err != nil {
				return nil, err
			}
			fillCandidate(&candidate, detail)
		}
	case req.SectionID != "":
		detail, err := loadSection(ctx, s.sections, req.SectionID)
		if err != nil {
			return nil, err
		}
		c, err := candidateFromSection(detail)
		if err != nil {
			return nil, err
		}
		candidate = c
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "sectionId or meetings is required")
	}
	if req.SemesterID != "" {
		candidate.SemesterID = req.SemesterID
	}

	conflicts, err := s.ConflictsFor(ctx, nil, party, candidate)
	if err != nil {
		return nil, err
	}
	return &dto.CheckConflictsResponse{Count: len(conflicts), Conflicts: conflicts}, nil
}

// ConflictsFor loads the party's commitments through exec, which may be a
// transaction, and compares them with the candidate.
func (s *ConflictService) ConflictsFor(ctx context.Context, exec sqlx.ExtContext, party models.Party, candidate Candidate) ([]models.MeetingConflict, error) {
	existing, err := s.commitments.ForParty(ctx, exec, party, repository.CommitmentFilter{
		SemesterID:       candidate.SemesterID,
		ExcludeSectionID: candidate.SectionID,
	})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load party commitments")
	}
	for _, c := range existing {
		if _, _, ok := commitmentInterval(c); !ok {
			s.logger.Warn("unreadable stored meeting skipped by conflict check",
				zap.String("section_id", c.SectionID),
				zap.String("day_of_week", c.DayOfWeek),
				zap.String("start_time", c.StartTime),
				zap.String("end_time", c.EndTime))
		}
	}
	conflicts := DetectConflicts(candidate, existing)
	s.metrics.RecordConflicts(len(conflicts))
	if len(conflicts) > 0 {
		s.logger.Debug("meeting conflicts detected",
			zap.String("party_kind", string(party.Kind)),
			zap.String("party_id", party.ID),
			zap.String("section_id", candidate.SectionID),
			zap.Int("count", len(conflicts)))
	}
	return conflicts, nil
}

func conflictsError(conflicts []models.MeetingConflict) error {
	msg := fmt.Sprintf("%d meeting conflict(s) detected", len(conflicts))
	return appErrors.WithDetails(appErrors.ErrConflictsDetected, msg, conflicts)
}

// loadParty checks the party exists and carries the role its kind implies.
func loadParty(ctx context.Context, users partyReader, party models.Party) (*models.User, error) {
	if !party.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown party kind %q", party.Kind))
	}
	user, err := users.FindByID(ctx, party.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", party.Kind, party.ID))
		}
		return nil, appErrors.Storage(err, "failed to load party")
	}
	return user, checkRole(user, party.Kind.Role())
}

func checkRole(user *models.User, role models.UserRole) error {
	if user.Role != role {
		return appErrors.Clone(appErrors.ErrWrongRole, fmt.Sprintf("user %s is %s, expected %s", user.ID, user.Role, role))
	}
	return nil
}

func loadSection(ctx context.Context, sections sectionDetailReader, id string) (*models.SectionDetail, error) {
	detail, err := sections.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s not found", id))
		}
		return nil, appErrors.Storage(err, "failed to load section")
	}
	return detail, nil
}

func fillCandidate(c *Candidate, detail *models.SectionDetail) {
	c.SectionID = detail.ID
	c.CourseID = detail.CourseID
	c.CourseName = detail.CourseName
	if c.SemesterID == "" {
		c.SemesterID = detail.SemesterID
	}
}

// candidateFromSection parses the stored meetings of a section.
func candidateFromSection(detail *models.SectionDetail) (Candidate, error) {
	c := Candidate{}
	fillCandidate(&c, detail)
	for _, m := range detail.Meetings {
		start, err := timegrid.ParseClock(m.StartTime)
		if err != nil {
			return Candidate{}, appErrors.Storage(err, "stored meeting has a malformed start time")
		}
		end, err := timegrid.ParseClock(m.EndTime)
		if err != nil {
			return Candidate{}, appErrors.Storage(err, "stored meeting has a malformed end time")
		}
		day, ok := timegrid.ParseDay(m.DayOfWeek, timegrid.OperatingDays)
		if !ok {
			return Candidate{}, appErrors.Storage(fmt.Errorf("day %q", m.DayOfWeek), "stored meeting has an unknown day")
		}
		c.Meetings = append(c.Meetings, timegrid.Slot{Day: day, Start: start, End: end})
	}
	return c, nil
}

// parseMeetings validates each proposed meeting against the slot rules.
// With rejectOverlap set, meetings that repeat or overlap one another are
// refused as DUPLICATE_MEETING.
func parseMeetings(v *timegrid.Validator, inputs []dto.MeetingInput, rejectOverlap bool) ([]timegrid.Slot, error) {
	slots := make([]timegrid.Slot, 0, len(inputs))
	for i, in := range inputs {
		slot, err := v.Validate(in.DayOfWeek, in.StartTime, in.EndTime)
		if err != nil {
			return nil, invalidSlotError(i, err)
		}
		if rejectOverlap {
			for j, prev := range slots {
				if prev.Day == slot.Day && timegrid.Overlaps(prev.Interval(), slot.Interval()) {
					return nil, appErrors.WithDetails(appErrors.ErrDuplicateMeeting,
						fmt.Sprintf("meeting %d (%s) overlaps meeting %d (%s)", i, slot, j, prev),
						map[string]interface{}{"index": i, "otherIndex": j})
				}
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func invalidSlotError(index int, err error) error {
	var slotErr *timegrid.SlotError
	if !errors.As(err, &slotErr) {
		return appErrors.Wrap(err, appErrors.ErrInvalidSlot.Code, appErrors.ErrInvalidSlot.Status, err.Error())
	}
	return appErrors.WithDetails(appErrors.ErrInvalidSlot,
		fmt.Sprintf("meeting %d: %s", index, slotErr.Message),
		map[string]interface{}{
			"index": index,
			"rule":  string(slotErr.Rule),
			"day":   slotErr.Day,
			"start": slotErr.Start,
			"end":   slotErr.End,
		})
}
