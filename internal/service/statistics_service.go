package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/grading"
	"github.com/noah-isme/gema-grader/internal/observability"
	"github.com/noah-isme/gema-grader/internal/repository"
)

var lowScoreGrades = map[grading.Grade]struct{}{
	grading.GradeC:      {},
	grading.GradeCMinus: {},
	grading.GradeD:      {},
	grading.GradeF:      {},
}

// StatisticsService computes class statistics for an assignment.
type StatisticsService interface {
	ForAssignment(ctx context.Context, assignmentID uint, actor Actor) (dto.ClassStatistics, error)
}

type statisticsService struct {
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	loader      *ReportLoader
	logger      zerolog.Logger
}

// NewStatisticsService constructs a StatisticsService. Every call recomputes
// from the stored reports; results are never persisted.
func NewStatisticsService(assignments repository.AssignmentRepository, users repository.UserRepository, loader *ReportLoader, logger zerolog.Logger) StatisticsService {
	return &statisticsService{
		assignments: assignments,
		users:       users,
		loader:      loader,
		logger:      logger.With().Str("component", "statistics_service").Logger(),
	}
}

func (s *statisticsService) ForAssignment(ctx context.Context, assignmentID uint, actor Actor) (dto.ClassStatistics, error) {
	ctx, span := otel.Tracer("github.com/noah-isme/gema-grader/internal/service").Start(ctx, "statistics.for_assignment")
	defer span.End()
	span.SetAttributes(attribute.Int64("assignment_id", int64(assignmentID)))

	assignment, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor)
	if err != nil {
		return dto.ClassStatistics{}, err
	}

	roster, err := s.users.CountStudents(ctx, assignment.ClassID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "roster")
		return dto.ClassStatistics{}, fmt.Errorf("count students: %w", err)
	}

	artifacts, err := s.loader.GradeReports(ctx, assignment.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reports")
		return dto.ClassStatistics{}, err
	}

	reports := make([]grading.GradeReport, 0, len(artifacts))
	for _, artifact := range artifacts {
		reports = append(reports, artifact.Report)
	}

	stats := Aggregate(reports, int(roster))
	observability.StatisticsBuilds().Inc()
	s.logger.Debug().
		Uint("assignment_id", assignment.ID).
		Int("reports", len(reports)).
		Int("roster", int(roster)).
		Msg("class statistics computed")

	return stats, nil
}

// Aggregate folds grade reports into class statistics. It never mutates reports.
// SubmittedCount is the number of readable graded or published reports, not
// the number of submission rows: pending, processing and failed submissions
// are left out, so the rate trails uploads while the queue drains.
func Aggregate(reports []grading.GradeReport, totalStudents int) dto.ClassStatistics {
	stats := dto.ClassStatistics{
		TotalStudents:     totalStudents,
		SubmittedCount:    len(reports),
		GradeDistribution: map[string]int{},
		PerQuestionStats:  []dto.QuestionStats{},
		LowScoreRoster:    []dto.LowScoreStudent{},
	}

	if totalStudents > 0 {
		rate := float64(len(reports)) / float64(totalStudents) * 100
		stats.SubmissionRate = math.Round(rate*100) / 100
	}

	perQuestion := map[string]*dto.QuestionStats{}
	pointsTotal, graded := 0, 0

	for _, report := range reports {
		if report.Grade != "" {
			stats.GradeDistribution[string(report.Grade)]++
			if points, ok := grading.Points(report.Grade); ok {
				pointsTotal += points
				graded++
			}
			if _, low := lowScoreGrades[report.Grade]; low {
				stats.LowScoreRoster = append(stats.LowScoreRoster, dto.LowScoreStudent{
					StudentID:   report.StudentID,
					StudentName: report.StudentName,
					Grade:       report.Grade,
				})
			}
		}

		for _, question := range report.Questions {
			if question.Key == "" {
				continue
			}
			entry, ok := perQuestion[question.Key]
			if !ok {
				entry = &dto.QuestionStats{Key: question.Key}
				perQuestion[question.Key] = entry
			}
			entry.TotalCount++
			switch question.Status {
			case grading.StatusCorrect:
				entry.CorrectCount++
			case grading.StatusPartialProcess:
				entry.PartialCount++
			default:
				entry.WrongCount++
			}
		}
	}

	if graded > 0 {
		average := grading.GradeFromPoints(float64(pointsTotal) / float64(graded))
		stats.AverageGrade = &average
	}

	keys := make([]string, 0, len(perQuestion))
	for key := range perQuestion {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		stats.PerQuestionStats = append(stats.PerQuestionStats, *perQuestion[key])
	}

	return stats
}
