package service

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

// ScaleBand maps every score at or above Min to Letter and Points.
type ScaleBand struct {
	Min    float64
	Letter string
	Points float64
}

// GradeScale is ordered from the highest band down; the last band catches
// everything below 60.
var GradeScale = []ScaleBand{
	{Min: 95, Letter: "A+", Points: 5.0},
	{Min: 90, Letter: "A", Points: 4.75},
	{Min: 85, Letter: "B+", Points: 4.5},
	{Min: 80, Letter: "B", Points: 4.0},
	{Min: 75, Letter: "C+", Points: 3.5},
	{Min: 70, Letter: "C", Points: 3.0},
	{Min: 65, Letter: "D+", Points: 2.5},
	{Min: 60, Letter: "D", Points: 2.0},
	{Min: math.Inf(-1), Letter: models.LetterFail, Points: 0.0},
}

// LetterFor converts a numeric score into its letter and point value.
func LetterFor(score float64) (string, float64) {
	for _, band := range GradeScale {
		if score >= band.Min {
			return band.Letter, band.Points
		}
	}
	return models.LetterFail, 0
}

// ComputeGPA averages points weighted by credits over real grades only.
// Placeholder grades are counted but never contribute to the average.
func ComputeGPA(studentID, semesterID string, entries []models.TranscriptEntry) models.GPASummary {
	summary := models.GPASummary{StudentID: studentID, SemesterID: semesterID}
	var weighted float64
	for _, e := range entries {
		if e.IsPlaceholder || e.Points == nil {
			summary.Placeholders++
			continue
		}
		summary.Graded++
		summary.Credits += e.Credits
		weighted += *e.Points * float64(e.Credits)
	}
	if summary.Credits > 0 {
		summary.GPA = roundGPA(weighted / float64(summary.Credits))
	}
	return summary
}

func roundGPA(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

type gradeAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type gradeStore interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) error
	ListByStudent(ctx context.Context, studentID, semesterID string) ([]models.TranscriptEntry, error)
}

// GradeService records faculty grades and derives GPA and transcripts.
type GradeService struct {
	assignments gradeAssignmentReader
	sections    sectionDetailReader
	semesters   semesterReader
	users       partyReader
	grades      gradeStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs the service.
func NewGradeService(assignments gradeAssignmentReader, sections sectionDetailReader, semesters semesterReader, users partyReader, grades gradeStore, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		assignments: assignments,
		sections:    sections,
		semesters:   semesters,
		users:       users,
		grades:      grades,
		validator:   validate,
		logger:      logger,
	}
}

// SaveGrade is the explicit re-save path: it replaces any grade the
// assignment has for its semester, placeholder or real. Instructors may
// only grade sections they teach.
func (s *GradeService) SaveGrade(ctx context.Context, assignmentID string, req dto.SaveGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, lookupError(err, "assignment", assignmentID)
	}
	if req.GraderRole == models.RoleInstructor {
		section, err := s.sections.FindDetail(ctx, assignment.SectionID)
		if err != nil {
			return nil, lookupError(err, "section", assignment.SectionID)
		}
		if section.InstructorID != req.GradedBy {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors may only grade their own sections")
		}
	}
	semester, err := s.semesters.FindByID(ctx, assignment.SemesterID)
	if err != nil {
		return nil, lookupError(err, "semester", assignment.SemesterID)
	}

	score := *req.NumericGrade
	letter, points := LetterFor(score)
	grade := &models.Grade{
		AssignmentID: assignment.ID,
		SemesterID:   semester.ID,
		AcademicYear: semester.AcademicYear,
		NumericGrade: &score,
		LetterGrade:  letter,
		Points:       &points,
	}
	if err := s.grades.Upsert(ctx, nil, grade); err != nil {
		return nil, appErrors.Storage(err, "failed to save grade")
	}
	s.logger.Info("grade saved",
		zap.String("assignment_id", assignment.ID),
		zap.String("letter", letter),
		zap.String("graded_by", req.GradedBy))
	return grade, nil
}

// StudentGPA returns the cumulative GPA, or the GPA of one semester when
// semesterID is set.
func (s *GradeService) StudentGPA(ctx context.Context, studentID, semesterID string) (*models.GPASummary, error) {
	if _, err := loadParty(ctx, s.users, models.Party{Kind: models.PartyStudent, ID: studentID}); err != nil {
		return nil, err
	}
	entries, err := s.grades.ListByStudent(ctx, studentID, semesterID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load grades")
	}
	summary := ComputeGPA(studentID, semesterID, entries)
	return &summary, nil
}

// Transcript lists every grade of the student, placeholders included.
func (s *GradeService) Transcript(ctx context.Context, studentID string) ([]models.TranscriptEntry, error) {
	if _, err := loadParty(ctx, s.users, models.Party{Kind: models.PartyStudent, ID: studentID}); err != nil {
		return nil, err
	}
	entries, err := s.grades.ListByStudent(ctx, studentID, "")
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load transcript")
	}
	return entries, nil
}
