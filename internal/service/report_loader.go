package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-grader/internal/grading"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/storage"
)

const reportLoadConcurrency = 8

var gradedStatuses = []string{models.SubmissionStatusGraded, models.SubmissionStatusPublished}

// StudentArtifact pairs a graded submission with one of its stored artifacts.
type StudentArtifact struct {
	Submission models.Submission
	Report     grading.GradeReport
	Text       string
}

// ReportLoader reads the stored artifacts of every graded submission of an assignment.
type ReportLoader struct {
	submissions repository.SubmissionRepository
	files       storage.FileStore
	logger      zerolog.Logger
}

// NewReportLoader constructs a ReportLoader.
func NewReportLoader(submissions repository.SubmissionRepository, files storage.FileStore, logger zerolog.Logger) *ReportLoader {
	return &ReportLoader{
		submissions: submissions,
		files:       files,
		logger:      logger.With().Str("component", "report_loader").Logger(),
	}
}

// GradeReports decodes the structured reports. Unreadable artifacts are
// skipped with a warning; the result keeps submission order.
func (l *ReportLoader) GradeReports(ctx context.Context, assignmentID uint) ([]StudentArtifact, error) {
	return l.load(ctx, assignmentID, func(submission models.Submission) string { return submission.DataPath },
		func(artifact *StudentArtifact, data []byte) error {
			report, err := grading.UnmarshalReport(data)
			if err != nil {
				return err
			}
			artifact.Report = report
			return nil
		})
}

// ReportTexts reads the markdown grading reports.
func (l *ReportLoader) ReportTexts(ctx context.Context, assignmentID uint) ([]StudentArtifact, error) {
	return l.load(ctx, assignmentID, func(submission models.Submission) string { return submission.ReportPath },
		func(artifact *StudentArtifact, data []byte) error {
			artifact.Text = string(data)
			return nil
		})
}

func (l *ReportLoader) load(ctx context.Context, assignmentID uint, pathOf func(models.Submission) string, decode func(*StudentArtifact, []byte) error) ([]StudentArtifact, error) {
	submissions, err := l.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: &assignmentID,
		Statuses:     gradedStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("list graded submissions: %w", err)
	}

	slots := make([]*StudentArtifact, len(submissions))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(reportLoadConcurrency)

	for i, submission := range submissions {
		path := pathOf(submission)
		if path == "" {
			continue
		}

		group.Go(func() error {
			data, err := l.files.Read(groupCtx, path)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					l.logger.Warn().Uint("submission_id", submission.ID).Str("path", path).Msg("graded submission artifact missing")
					return nil
				}
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				l.logger.Warn().Err(err).Uint("submission_id", submission.ID).Str("path", path).Msg("failed to read artifact")
				return nil
			}

			artifact := StudentArtifact{Submission: submission}
			if err := decode(&artifact, data); err != nil {
				l.logger.Warn().Err(err).Uint("submission_id", submission.ID).Str("path", path).Msg("skipping unreadable artifact")
				return nil
			}
			slots[i] = &artifact
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	artifacts := make([]StudentArtifact, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			artifacts = append(artifacts, *slot)
		}
	}
	return artifacts, nil
}
