package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/grading"
	"github.com/noah-isme/gema-grader/internal/repository"
)

// Export layouts.
const (
	ExportFormWide = "wide"
	ExportFormLong = "long"
)

// ErrUnsupportedExportForm indicates an unknown export layout was requested.
var ErrUnsupportedExportForm = errors.New("unsupported export form")

var wideHeader = []string{"student_name", "student_id", "total_questions", "correct", "partial", "result_wrong", "wrong", "grade"}

var longHeader = []string{"student_name", "student_id", "key", "status", "grade"}

// ExportService renders the graded reports of an assignment as CSV.
type ExportService interface {
	Export(ctx context.Context, assignmentID uint, form string, actor Actor) ([]byte, error)
}

type exportService struct {
	assignments repository.AssignmentRepository
	loader      *ReportLoader
	logger      zerolog.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(assignments repository.AssignmentRepository, loader *ReportLoader, logger zerolog.Logger) ExportService {
	return &exportService{
		assignments: assignments,
		loader:      loader,
		logger:      logger.With().Str("component", "export_service").Logger(),
	}
}

func (s *exportService) Export(ctx context.Context, assignmentID uint, form string, actor Actor) ([]byte, error) {
	form = strings.ToLower(strings.TrimSpace(form))
	if form == "" {
		form = ExportFormWide
	}
	if form != ExportFormWide && form != ExportFormLong {
		return nil, ErrUnsupportedExportForm
	}

	if _, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor); err != nil {
		return nil, err
	}

	artifacts, err := s.loader.GradeReports(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	reports := make([]grading.GradeReport, 0, len(artifacts))
	for _, artifact := range artifacts {
		reports = append(reports, artifact.Report)
	}

	var buf bytes.Buffer
	if form == ExportFormLong {
		err = WriteLongCSV(&buf, reports)
	} else {
		err = WriteWideCSV(&buf, reports)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().Uint("assignment_id", assignmentID).Str("form", form).Int("students", len(reports)).Msg("grades exported")
	return buf.Bytes(), nil
}

// WriteWideCSV writes one row per student with a column per observed question key.
func WriteWideCSV(w io.Writer, reports []grading.GradeReport) error {
	keys := observedKeys(reports)
	writer := csv.NewWriter(w)

	header := append(append([]string{}, wideHeader...), keys...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, report := range reports {
		statuses := make(map[string]grading.Status, len(report.Questions))
		for _, q := range report.Questions {
			statuses[q.Key] = q.Status
		}

		row := []string{
			report.StudentName,
			report.StudentID,
			strconv.Itoa(report.TotalQuestions),
			strconv.Itoa(report.Counts.Correct),
			strconv.Itoa(report.Counts.Partial),
			strconv.Itoa(report.Counts.ResultWrong),
			strconv.Itoa(report.Counts.Wrong),
			string(report.Grade),
		}
		for _, key := range keys {
			row = append(row, string(statuses[key]))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteLongCSV writes one row per student and question key. Keys a student
// did not answer carry an empty status.
func WriteLongCSV(w io.Writer, reports []grading.GradeReport) error {
	keys := observedKeys(reports)
	writer := csv.NewWriter(w)

	if err := writer.Write(longHeader); err != nil {
		return err
	}

	for _, report := range reports {
		statuses := make(map[string]grading.Status, len(report.Questions))
		for _, q := range report.Questions {
			statuses[q.Key] = q.Status
		}
		for _, key := range keys {
			row := []string{report.StudentName, report.StudentID, key, string(statuses[key]), string(report.Grade)}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func observedKeys(reports []grading.GradeReport) []string {
	seen := map[string]struct{}{}
	for _, report := range reports {
		for _, q := range report.Questions {
			seen[q.Key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
