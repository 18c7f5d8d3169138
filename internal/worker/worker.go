// Package worker drains the submission queue and grades one submission at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/events"
	"github.com/noah-isme/gema-grader/internal/grading"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/observability"
	"github.com/noah-isme/gema-grader/internal/queue"
	"github.com/noah-isme/gema-grader/internal/retry"
	"github.com/noah-isme/gema-grader/internal/storage"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

const defaultErrorPause = 5 * time.Second

var (
	// ErrPrecondition marks submissions that cannot be graded as stored; they are failed without retry.
	ErrPrecondition = errors.New("grading precondition failed")
	// ErrSubmissionMissing is returned when a dequeued id has no record.
	ErrSubmissionMissing = errors.New("submission record missing")
	// ErrInterrupted is returned when shutdown stops grading mid-flight. The
	// record keeps its current status and is re-enqueued on the next start.
	ErrInterrupted = errors.New("grading interrupted")
)

// Dequeuer hands out queued submissions in FIFO order.
type Dequeuer interface {
	Dequeue(ctx context.Context) (queue.Job, error)
}

// SubmissionStore is the slice of the datastore the worker mutates.
type SubmissionStore interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
}

// Dependencies wires the collaborators of a GradingWorker.
type Dependencies struct {
	Queue       Dequeuer
	Submissions SubmissionStore
	Files       storage.FileStore
	Oracle      ai.Oracle
	Invoker     *retry.Invoker
	Events      events.Publisher
}

// Config tunes the worker loop.
type Config struct {
	Policy     grading.Policy
	ErrorPause time.Duration
}

// GradingWorker owns a submission from dequeue until it is graded or failed.
type GradingWorker struct {
	deps       Dependencies
	policy     grading.Policy
	errorPause time.Duration
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// New constructs a GradingWorker. The simple policy is used when none is configured.
func New(deps Dependencies, cfg Config, logger zerolog.Logger) *GradingWorker {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	policy := cfg.Policy
	if policy == nil {
		policy = grading.SimplePolicy{}
	}
	pause := cfg.ErrorPause
	if pause <= 0 {
		pause = defaultErrorPause
	}

	return &GradingWorker{
		deps:       deps,
		policy:     policy,
		errorPause: pause,
		logger:     logger.With().Str("component", "grading_worker").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/gema-grader/internal/worker"),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Run processes submissions until ctx is cancelled. A failing submission
// never stops the loop.
func (w *GradingWorker) Run(ctx context.Context) error {
	w.logger.Info().Str("policy", w.policy.Name()).Msg("grading worker started")

	for {
		job, err := w.deps.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info().Msg("grading worker stopped")
				return nil
			}
			w.logger.Error().Err(err).Dur("pause", w.errorPause).Msg("dequeue failed, pausing")
			if err := w.sleep(ctx, w.errorPause); err != nil {
				return nil
			}
			continue
		}

		w.handle(ctx, job)
	}
}

func (w *GradingWorker) handle(ctx context.Context, job queue.Job) {
	start := w.now()
	log := w.logger.With().Uint("submission_id", job.SubmissionID).Logger()

	record, err := w.safeProcess(ctx, job.SubmissionID)
	switch {
	case err == nil:
		observability.GradingOutcomes().WithLabelValues(models.SubmissionStatusGraded).Inc()
		log.Info().
			Str("grade", record.Grade).
			Dur("elapsed", w.now().Sub(start)).
			Msg("submission graded")
	case errors.Is(err, ErrSubmissionMissing):
		log.Warn().Err(err).Msg("dequeued submission has no record, skipping")
		return
	case errors.Is(err, ErrInterrupted):
		log.Warn().Err(err).Str("status", record.Status).Msg("grading interrupted by shutdown, leaving submission for requeue")
		return
	default:
		observability.GradingOutcomes().WithLabelValues(models.SubmissionStatusFailed).Inc()
		log.Error().Err(err).Msg("submission grading failed")
	}
	observability.GradingDuration().Observe(w.now().Sub(start).Seconds())

	w.publish(ctx, record)
}

// safeProcess converts panics in the grading pipeline into a failed submission.
func (w *GradingWorker) safeProcess(ctx context.Context, submissionID uint) (record models.Submission, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grading panicked: %v", r)
			if record.ID != 0 {
				record = w.markFailed(ctx, record, err)
			}
		}
	}()

	return w.process(ctx, submissionID, &record)
}

// process runs the grading steps. record is kept current so a panic handler can fail it.
func (w *GradingWorker) process(ctx context.Context, submissionID uint, record *models.Submission) (models.Submission, error) {
	ctx, span := w.tracer.Start(ctx, "worker.grade_submission", trace.WithAttributes(
		attribute.Int64("submission_id", int64(submissionID)),
	))
	defer span.End()

	loaded, err := w.deps.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "missing")
			return models.Submission{}, fmt.Errorf("%w: %d", ErrSubmissionMissing, submissionID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_failed")
		return models.Submission{}, fmt.Errorf("load submission: %w", err)
	}
	*record = loaded

	fail := func(err error) (models.Submission, error) {
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "interrupted")
			return *record, fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed")
		*record = w.markFailed(ctx, *record, err)
		return *record, err
	}

	assignment := record.Assignment
	if !assignment.HasFinalizedAnswerKey() {
		return fail(fmt.Errorf("%w: assignment %d has no finalized answer key", ErrPrecondition, record.AssignmentID))
	}

	homework, err := w.deps.Files.Read(ctx, record.HomeworkPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fail(fmt.Errorf("%w: homework file missing: %v", ErrPrecondition, err))
		}
		return fail(fmt.Errorf("read homework: %w", err))
	}

	record.Status = models.SubmissionStatusProcessing
	record.FailureReason = ""
	if err := w.deps.Submissions.Update(ctx, record); err != nil {
		return fail(fmt.Errorf("mark processing: %w", err))
	}

	document := ai.Document{Name: record.HomeworkPath, ContentType: "application/pdf", Data: homework}
	reportText, err := retry.Do(ctx, w.deps.Invoker, ai.OperationGrade, func(ctx context.Context) (string, error) {
		return w.deps.Oracle.Grade(ctx, document, assignment.AnswerContent)
	})
	if err != nil {
		return fail(fmt.Errorf("grade homework: %w", err))
	}

	paths := storage.StudentPathsFromHomework(record.HomeworkPath)
	if err := w.deps.Files.Write(ctx, paths.Report, []byte(reportText)); err != nil {
		return fail(fmt.Errorf("store grading report: %w", err))
	}
	record.ReportPath = paths.Report

	entries, err := retry.Do(ctx, w.deps.Invoker, ai.OperationExtractStructured, func(ctx context.Context) ([]ai.QuestionEntry, error) {
		return w.deps.Oracle.ExtractStructured(ctx, reportText)
	})
	if err != nil {
		if ai.KindOf(err) != ai.KindParse {
			return fail(fmt.Errorf("extract structured results: %w", err))
		}
		w.logger.Warn().Err(err).Uint("submission_id", record.ID).Msg("structured extraction unreadable, grading an empty question list")
		entries = nil
	}

	report := grading.BuildReport(studentName(record.Student), studentNumber(record.Student), rawEntries(entries), w.policy)
	payload, err := grading.MarshalReport(report)
	if err != nil {
		return fail(fmt.Errorf("encode grade report: %w", err))
	}
	if err := w.deps.Files.Write(ctx, paths.Data, payload); err != nil {
		return fail(fmt.Errorf("store grade report: %w", err))
	}

	gradedAt := w.now().UTC()
	record.DataPath = paths.Data
	record.Grade = string(report.Grade)
	record.Counts = datatypes.NewJSONType(report.Counts)
	record.GradedAt = &gradedAt
	record.Status = models.SubmissionStatusGraded
	if err := w.deps.Submissions.Update(ctx, record); err != nil {
		return fail(fmt.Errorf("save graded submission: %w", err))
	}

	span.SetAttributes(
		attribute.String("grade", record.Grade),
		attribute.Int("questions", report.TotalQuestions),
	)
	return *record, nil
}

// markFailed persists the failed state. It uses a context detached from
// cancellation so shutdown still records the outcome.
func (w *GradingWorker) markFailed(ctx context.Context, record models.Submission, cause error) models.Submission {
	record.Status = models.SubmissionStatusFailed
	record.FailureReason = cause.Error()

	if err := w.deps.Submissions.Update(context.WithoutCancel(ctx), &record); err != nil {
		w.logger.Error().Err(err).Uint("submission_id", record.ID).Msg("failed to persist failed status")
	}
	return record
}

func (w *GradingWorker) publish(ctx context.Context, record models.Submission) {
	if record.ID == 0 {
		return
	}

	event := events.GradingEvent{
		SubmissionID:  record.ID,
		AssignmentID:  record.AssignmentID,
		StudentID:     record.StudentID,
		Grade:         record.Grade,
		FailureReason: record.FailureReason,
	}
	if record.Status == models.SubmissionStatusGraded {
		event.Type = events.TypeGraded
	} else {
		event.Type = events.TypeFailed
	}

	if err := w.deps.Events.Publish(context.WithoutCancel(ctx), event); err != nil {
		w.logger.Warn().Err(err).Uint("submission_id", record.ID).Msg("failed to publish grading event")
	}
}

func rawEntries(entries []ai.QuestionEntry) []grading.RawEntry {
	raw := make([]grading.RawEntry, 0, len(entries))
	for _, entry := range entries {
		raw = append(raw, grading.RawEntry{Section: entry.Section, ID: entry.ID, Status: entry.Status})
	}
	return raw
}

func studentName(user models.User) string {
	if user.Username != "" {
		return user.Username
	}
	return fmt.Sprintf("student-%d", user.ID)
}

func studentNumber(user models.User) string {
	if user.StudentNumber != "" {
		return user.StudentNumber
	}
	return fmt.Sprintf("%d", user.ID)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
