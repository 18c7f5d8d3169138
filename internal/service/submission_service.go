package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/storage"
)

var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrInvalidFile indicates the upload is missing, empty or not a PDF.
	ErrInvalidFile = errors.New("homework must be a non-empty PDF file")
	// ErrFileTooLarge indicates the upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds the upload size limit")
	// ErrAssignmentNotOpen indicates the assignment does not accept submissions.
	ErrAssignmentNotOpen = errors.New("assignment is not open for submissions")
	// ErrAssignmentPastDue indicates the assignment deadline has passed.
	ErrAssignmentPastDue = errors.New("assignment is past due")
	// ErrAlreadySubmitted indicates the student already has a live submission.
	ErrAlreadySubmitted = errors.New("homework already submitted")
	// ErrStudentNumberMissing indicates the student profile lacks a roster number.
	ErrStudentNumberMissing = errors.New("student number must be set before submitting")
	// ErrReportNotPublished indicates the grading report is not yet visible to the student.
	ErrReportNotPublished = errors.New("report not yet published")
)

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// Enqueuer hands a persisted submission to the grading worker.
type Enqueuer interface {
	Enqueue(submissionID uint)
}

// SubmissionService orchestrates homework intake and lookups.
type SubmissionService interface {
	Submit(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint, actor Actor) (dto.SubmissionResponse, error)
	ListMine(ctx context.Context, actor Actor) ([]dto.SubmissionResponse, error)
	Report(ctx context.Context, id uint, actor Actor) (string, error)
	RequeuePending(ctx context.Context) (int, error)
}

// SubmissionServiceConfig carries the collaborators of the intake service.
type SubmissionServiceConfig struct {
	Submissions    repository.SubmissionRepository
	Assignments    repository.AssignmentRepository
	Users          repository.UserRepository
	Files          storage.FileStore
	Mirror         FileUploader
	Queue          Enqueuer
	Validator      *validator.Validate
	MaxUploadBytes int64
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	files       storage.FileStore
	mirror      FileUploader
	queue       Enqueuer
	validator   *validator.Validate
	maxBytes    int64
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(cfg SubmissionServiceConfig, logger zerolog.Logger) SubmissionService {
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}

	return &submissionService{
		submissions: cfg.Submissions,
		assignments: cfg.Assignments,
		users:       cfg.Users,
		files:       cfg.Files,
		mirror:      cfg.Mirror,
		queue:       cfg.Queue,
		validator:   cfg.Validator,
		maxBytes:    maxBytes,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if file == nil || file.Size == 0 {
		return dto.SubmissionResponse{}, ErrInvalidFile
	}
	if file.Size > s.maxBytes {
		return dto.SubmissionResponse{}, ErrFileTooLarge
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if assignment.Status != models.AssignmentStatusPublished {
		return dto.SubmissionResponse{}, ErrAssignmentNotOpen
	}
	if assignment.IsPastDue(s.now()) {
		return dto.SubmissionResponse{}, ErrAssignmentPastDue
	}

	student, err := s.users.GetByID(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrForbidden
		}
		return dto.SubmissionResponse{}, err
	}
	if student.Role != models.RoleStudent || student.ClassID != assignment.ClassID {
		return dto.SubmissionResponse{}, ErrForbidden
	}
	if student.StudentNumber == "" {
		return dto.SubmissionResponse{}, ErrStudentNumberMissing
	}

	failed, err := s.retryableSubmission(ctx, assignment.ID, student.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	data, err := readUpload(file)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !mimetype.Detect(data).Is("application/pdf") {
		return dto.SubmissionResponse{}, ErrInvalidFile
	}

	paths := storage.StudentPaths(assignmentDir(assignment), student.StudentNumber, student.Username)
	if err := s.files.Write(ctx, paths.Homework, data); err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("store homework: %w", err)
	}

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    student.ID,
		HomeworkPath: paths.Homework,
		FileURL:      s.mirrorUpload(ctx, file.Filename, data),
		Status:       models.SubmissionStatusPending,
	}

	if failed != nil {
		// Reuse the failed record so the student keeps a single row per assignment.
		submission.ID = failed.ID
		submission.CreatedAt = failed.CreatedAt
		if err := s.submissions.Update(ctx, &submission); err != nil {
			return dto.SubmissionResponse{}, err
		}
	} else if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.queue.Enqueue(submission.ID)

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", created.ID).
		Uint("assignment_id", assignment.ID).
		Uint("student_id", student.ID).
		Msg("homework submitted")

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) Get(ctx context.Context, id uint, actor Actor) (dto.SubmissionResponse, error) {
	submission, err := s.visibleSubmission(ctx, id, actor)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) ListMine(ctx context.Context, actor Actor) ([]dto.SubmissionResponse, error) {
	studentID := actor.ID
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.NewSubmissionResponse(submission))
	}
	return responses, nil
}

// Report returns the markdown grading report. Students only see it once published.
func (s *submissionService) Report(ctx context.Context, id uint, actor Actor) (string, error) {
	submission, err := s.visibleSubmission(ctx, id, actor)
	if err != nil {
		return "", err
	}

	if !actor.IsTeacher() && submission.Status != models.SubmissionStatusPublished {
		return "", ErrReportNotPublished
	}
	if submission.ReportPath == "" {
		return "", ErrSubmissionNotFound
	}

	data, err := s.files.Read(ctx, submission.ReportPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrSubmissionNotFound
		}
		return "", err
	}
	return string(data), nil
}

// RequeuePending re-enqueues submissions left pending by a previous process.
func (s *submissionService) RequeuePending(ctx context.Context) (int, error) {
	pending, err := s.submissions.List(ctx, repository.SubmissionFilter{
		Statuses: []string{models.SubmissionStatusPending, models.SubmissionStatusProcessing},
	})
	if err != nil {
		return 0, fmt.Errorf("list pending submissions: %w", err)
	}

	for _, submission := range pending {
		s.queue.Enqueue(submission.ID)
	}

	if len(pending) > 0 {
		s.logger.Info().Int("count", len(pending)).Msg("re-enqueued unfinished submissions")
	}
	return len(pending), nil
}

func (s *submissionService) visibleSubmission(ctx context.Context, id uint, actor Actor) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}

	switch {
	case actor.IsTeacher() && submission.Assignment.TeacherID == actor.ID:
	case !actor.IsTeacher() && submission.StudentID == actor.ID:
	default:
		return models.Submission{}, ErrForbidden
	}
	return submission, nil
}

// retryableSubmission returns the failed record a new upload should reset, or
// nil when the student has not submitted yet. Any live submission blocks.
func (s *submissionService) retryableSubmission(ctx context.Context, assignmentID, studentID uint) (*models.Submission, error) {
	existing, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: &assignmentID,
		StudentID:    &studentID,
	})
	if err != nil {
		return nil, err
	}

	var failed *models.Submission
	for i := range existing {
		if existing[i].Status != models.SubmissionStatusFailed {
			return nil, ErrAlreadySubmitted
		}
		if failed == nil || existing[i].ID > failed.ID {
			failed = &existing[i]
		}
	}
	return failed, nil
}

func (s *submissionService) mirrorUpload(ctx context.Context, name string, data []byte) string {
	if s.mirror == nil {
		return ""
	}

	url, err := s.mirror.Upload(ctx, name, bytes.NewReader(data))
	if err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("homework mirror upload failed")
		return ""
	}
	return url
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
