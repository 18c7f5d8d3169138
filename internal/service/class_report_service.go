package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/retry"
	"github.com/noah-isme/gema-grader/internal/storage"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

var (
	// ErrNoGradedReports indicates no graded submission has a usable review section.
	ErrNoGradedReports = errors.New("no graded reports available")
	// ErrClassReportNotFound indicates no class report has been generated yet.
	ErrClassReportNotFound = errors.New("class report not found")
)

var reviewHeadingMarkers = []string{"part 2", "per-question", "review", "二、", "批改", "简报"}

// ClassReportService generates and serves class-wide analysis reports.
type ClassReportService interface {
	Generate(ctx context.Context, assignmentID uint, actor Actor) (dto.ClassReportResponse, error)
	List(ctx context.Context, assignmentID uint, actor Actor) ([]dto.ClassReportResponse, error)
	Latest(ctx context.Context, assignmentID uint, actor Actor) (dto.ClassReportResponse, error)
}

type classReportService struct {
	assignments repository.AssignmentRepository
	reports     repository.ClassReportRepository
	loader      *ReportLoader
	files       storage.FileStore
	oracle      ai.Oracle
	invoker     *retry.Invoker
	policy      *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewClassReportService constructs a ClassReportService.
func NewClassReportService(
	assignments repository.AssignmentRepository,
	reports repository.ClassReportRepository,
	loader *ReportLoader,
	files storage.FileStore,
	oracle ai.Oracle,
	invoker *retry.Invoker,
	logger zerolog.Logger,
) ClassReportService {
	return &classReportService{
		assignments: assignments,
		reports:     reports,
		loader:      loader,
		files:       files,
		oracle:      oracle,
		invoker:     invoker,
		policy:      bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "class_report_service").Logger(),
		now:         time.Now,
	}
}

func (s *classReportService) Generate(ctx context.Context, assignmentID uint, actor Actor) (dto.ClassReportResponse, error) {
	assignment, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor)
	if err != nil {
		return dto.ClassReportResponse{}, err
	}

	artifacts, err := s.loader.ReportTexts(ctx, assignment.ID)
	if err != nil {
		return dto.ClassReportResponse{}, err
	}

	combined, included := s.combine(assignment, artifacts)
	if included == 0 {
		return dto.ClassReportResponse{}, ErrNoGradedReports
	}

	dir := assignmentDir(assignment)
	if err := s.files.Write(ctx, storage.CombinedReportsPath(dir), []byte(combined)); err != nil {
		return dto.ClassReportResponse{}, fmt.Errorf("store combined reports: %w", err)
	}

	generated, err := retry.Do(ctx, s.invoker, ai.OperationGenerateClassReport, func(ctx context.Context) (string, error) {
		return s.oracle.GenerateClassReport(ctx, combined)
	})
	if err != nil {
		return dto.ClassReportResponse{}, fmt.Errorf("generate class report: %w", err)
	}
	content := s.sanitizeMarkdown(generated)

	createdAt := s.now().UTC()
	reportPath := storage.ClassReportPath(dir, createdAt)
	if err := s.files.Write(ctx, reportPath, []byte(content)); err != nil {
		return dto.ClassReportResponse{}, fmt.Errorf("store class report: %w", err)
	}
	if err := s.files.Write(ctx, storage.ClassReportLatestPath(dir), []byte(content)); err != nil {
		return dto.ClassReportResponse{}, fmt.Errorf("store latest class report: %w", err)
	}

	record := models.ClassReport{AssignmentID: assignment.ID, Path: reportPath, CreatedAt: createdAt}
	if err := s.reports.Create(ctx, &record); err != nil {
		return dto.ClassReportResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Int("students", included).
		Str("path", reportPath).
		Msg("class report generated")

	return dto.NewClassReportResponse(record, content), nil
}

func (s *classReportService) List(ctx context.Context, assignmentID uint, actor Actor) ([]dto.ClassReportResponse, error) {
	if _, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor); err != nil {
		return nil, err
	}

	records, err := s.reports.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ClassReportResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, dto.NewClassReportResponse(record, ""))
	}
	return responses, nil
}

func (s *classReportService) Latest(ctx context.Context, assignmentID uint, actor Actor) (dto.ClassReportResponse, error) {
	if _, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor); err != nil {
		return dto.ClassReportResponse{}, err
	}

	record, err := s.reports.Latest(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassReportResponse{}, ErrClassReportNotFound
		}
		return dto.ClassReportResponse{}, err
	}

	content, err := s.files.Read(ctx, record.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return dto.ClassReportResponse{}, ErrClassReportNotFound
		}
		return dto.ClassReportResponse{}, err
	}

	return dto.NewClassReportResponse(record, string(content)), nil
}

func (s *classReportService) combine(assignment models.Assignment, artifacts []StudentArtifact) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Assignment: %s\n\n## Class grading reports\n\n", assignment.Title)

	included := 0
	for _, artifact := range artifacts {
		section, ok := ReviewSection(artifact.Text)
		if !ok {
			continue
		}
		included++
		student := artifact.Submission.Student
		fmt.Fprintf(&b, "---\n\n### Student %d: %s (ID: %d)\n\n", included, student.Username, student.ID)
		b.WriteString(s.sanitizeMarkdown(section))
		b.WriteString("\n\n")
	}
	return b.String(), included
}

// sanitizeMarkdown drops raw HTML from markdown text. The policy escapes the
// text it keeps, so entities are decoded again to leave markdown and maths intact.
func (s *classReportService) sanitizeMarkdown(text string) string {
	return html.UnescapeString(s.policy.Sanitize(text))
}

// ReviewSection returns the report from the first heading that introduces the
// per-question review.
func ReviewSection(report string) (string, bool) {
	lines := strings.Split(report, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		lower := strings.ToLower(trimmed)
		for _, marker := range reviewHeadingMarkers {
			if strings.Contains(lower, marker) {
				return strings.Join(lines[i:], "\n"), true
			}
		}
	}
	return "", false
}
