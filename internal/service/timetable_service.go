package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/repository"
	"github.com/noah-isme/course-scheduling-api/internal/timegrid"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

const (
	icsProductID   = "-//course-scheduling-api//timetable//EN"
	icsFloatLayout = "20060102T150405"
	icsDateLayout  = "20060102"
)

// TimetableService exposes a party's weekly commitments.
type TimetableService struct {
	commitments commitmentReader
	users       partyReader
	semesters   semesterReader
	logger      *zap.Logger
	now         func() time.Time
}

// NewTimetableService constructs the service.
func NewTimetableService(commitments commitmentReader, users partyReader, semesters semesterReader, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		commitments: commitments,
		users:       users,
		semesters:   semesters,
		logger:      logger,
		now:         time.Now,
	}
}

// Commitments lists every meeting the party is bound to, optionally
// narrowed to one semester.
func (s *TimetableService) Commitments(ctx context.Context, party models.Party, semesterID string) ([]models.Commitment, error) {
	if _, err := loadParty(ctx, s.users, party); err != nil {
		return nil, err
	}
	list, err := s.commitments.ForParty(ctx, nil, party, repository.CommitmentFilter{SemesterID: semesterID})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load commitments")
	}
	return list, nil
}

// ExportICS renders the party's semester as a calendar of weekly events.
// Meeting times are floating so clients show them in their own zone.
func (s *TimetableService) ExportICS(ctx context.Context, party models.Party, semesterID string) (string, error) {
	if semesterID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "semester is required for a calendar export")
	}
	semester, err := s.semesters.FindByID(ctx, semesterID)
	if err != nil {
		return "", lookupError(err, "semester", semesterID)
	}
	list, err := s.Commitments(ctx, party, semesterID)
	if err != nil {
		return "", err
	}
	return BuildCalendar(party, semester, list, s.now().UTC())
}

// BuildCalendar turns commitments into a VCALENDAR with one recurring
// event per meeting. Rows that do not parse are skipped.
func BuildCalendar(party models.Party, semester *models.Semester, list []models.Commitment, stamp time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(fmt.Sprintf("%s %s timetable", semester.Name, party.Kind))

	// RRULE UNTIL covers the whole final day.
	until := semester.EndDate.Format(icsDateLayout) + "T235959"
	for _, c := range list {
		day, interval, ok := commitmentInterval(c)
		if !ok {
			continue
		}
		first := firstOccurrence(semester.StartDate, day)
		if first.After(semester.EndDate) {
			continue
		}
		uid := fmt.Sprintf("%s-%s-%s@%s", c.SectionID, day, interval.Start, party.ID)
		event := cal.AddEvent(uid)
		event.SetDtStampTime(stamp)
		event.SetSummary(fmt.Sprintf("%s %s", c.CourseCode, c.CourseName))
		if c.Room != nil && *c.Room != "" {
			event.SetLocation(*c.Room)
		}
		event.SetDescription(fmt.Sprintf("Section %s, %s %s", c.SectionID, day, interval))
		event.SetProperty(ics.ComponentPropertyDtStart, atClock(first, interval.Start).Format(icsFloatLayout))
		event.SetProperty(ics.ComponentPropertyDtEnd, atClock(first, interval.End).Format(icsFloatLayout))
		event.AddProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY;UNTIL="+until)
	}
	return cal.Serialize(), nil
}

// firstOccurrence returns the first date on or after start falling on day.
func firstOccurrence(start time.Time, day timegrid.Day) time.Time {
	base := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Weekday(day.Index())) - int(base.Weekday()) + 7) % 7
	return base.AddDate(0, 0, offset)
}

func atClock(date time.Time, c timegrid.Clock) time.Time {
	return date.Add(time.Duration(c) * time.Minute)
}
