package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/pkg/export"
	"github.com/noah-isme/course-scheduling-api/pkg/storage"
)

type semesterGradeReader interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.TranscriptEntry, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// ExportConfig tunes report generation.
type ExportConfig struct {
	APIPrefix string
}

// ExportResult captures a rendered and stored close report.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       export.Format
	ExpiresAt    time.Time
}

var closeReportHeaders = []string{"Student ID", "Courses", "Graded", "Pending (PN)", "Credits", "Semester GPA"}

// ExportService renders the close report of a run and stores it behind a
// signed download token.
type ExportService struct {
	grades  semesterGradeReader
	storage fileStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(grades semesterGradeReader, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		grades:  grades,
		storage: files,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate renders the report for run in its requested format.
func (s *ExportService) Generate(ctx context.Context, run *models.CloseRun) (*ExportResult, error) {
	format, err := export.ParseFormat(run.Format)
	if err != nil {
		return nil, err
	}
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, err
	}
	entries, err := s.grades.ListBySemester(ctx, run.SemesterID)
	if err != nil {
		return nil, fmt.Errorf("load semester grades: %w", err)
	}
	data, err := renderer.Render(BuildCloseReport(run.SemesterID, entries))
	if err != nil {
		return nil, fmt.Errorf("render close report: %w", err)
	}

	filename := fmt.Sprintf("close-%s-%s.%s", run.SemesterID, s.now().UTC().Format("20060102T150405"), renderer.Extension())
	relPath, err := s.storage.Save(filename, data)
	if err != nil {
		return nil, fmt.Errorf("store close report: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(run.ID, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, fmt.Errorf("sign close report: %w", err)
	}
	s.logger.Info("close report stored", zap.String("run_id", run.ID), zap.String("path", relPath), zap.Int("bytes", len(data)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          s.downloadURL(token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (string, string, time.Time, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns the stored report file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

func (s *ExportService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	return prefix + "/close-runs/download/" + token
}

// BuildCloseReport folds transcript rows into one line per student.
func BuildCloseReport(semesterID string, entries []models.TranscriptEntry) export.Dataset {
	byStudent := make(map[string][]models.TranscriptEntry)
	for _, e := range entries {
		byStudent[e.StudentID] = append(byStudent[e.StudentID], e)
	}
	students := make([]string, 0, len(byStudent))
	for id := range byStudent {
		students = append(students, id)
	}
	sort.Strings(students)

	rows := make([]map[string]string, 0, len(students))
	for _, id := range students {
		list := byStudent[id]
		gpa := ComputeGPA(id, semesterID, list)
		rows = append(rows, map[string]string{
			"Student ID":   id,
			"Courses":      strconv.Itoa(len(list)),
			"Graded":       strconv.Itoa(gpa.Graded),
			"Pending (PN)": strconv.Itoa(gpa.Placeholders),
			"Credits":      strconv.Itoa(gpa.Credits),
			"Semester GPA": strconv.FormatFloat(gpa.GPA, 'f', 2, 64),
		})
	}
	return export.Dataset{
		Title:   "Semester close " + semesterID,
		Headers: closeReportHeaders,
		Rows:    rows,
	}
}
