package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/retry"
	"github.com/noah-isme/gema-grader/internal/storage"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

var (
	// ErrAnswerKeyMissing indicates the assignment has no answer key yet.
	ErrAnswerKeyMissing = errors.New("answer key missing")
	// ErrInvalidDeadline indicates an unparseable deadline.
	ErrInvalidDeadline = errors.New("invalid deadline")
	// ErrAnswerKeyNotFinalized blocks opening an assignment for submissions.
	ErrAnswerKeyNotFinalized = errors.New("answer key must be finalized before publishing the assignment")
)

// AssignmentService covers the teacher side of an assignment: answer key and publishing.
type AssignmentService interface {
	Create(ctx context.Context, payload dto.AssignmentCreateRequest, actor Actor) (dto.AssignmentResponse, error)
	Update(ctx context.Context, assignmentID uint, payload dto.AssignmentUpdateRequest, actor Actor) (dto.AssignmentResponse, error)
	ListMine(ctx context.Context, actor Actor) ([]dto.AssignmentResponse, error)
	ExtractAnswerKey(ctx context.Context, assignmentID uint, payload dto.AnswerKeyExtractRequest, file *multipart.FileHeader, actor Actor) (dto.AnswerKeyResponse, error)
	FinalizeAnswerKey(ctx context.Context, assignmentID uint, payload dto.AnswerKeyFinalizeRequest, actor Actor) (dto.AnswerKeyResponse, error)
	GetAnswerKey(ctx context.Context, assignmentID uint, actor Actor) (dto.AnswerKeyResponse, error)
	Publish(ctx context.Context, assignmentID uint, actor Actor) (dto.PublishResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	files       storage.FileStore
	oracle      ai.Oracle
	invoker     *retry.Invoker
	validator   *validator.Validate
	maxBytes    int64
	logger      zerolog.Logger
}

// NewAssignmentService constructs the AssignmentService.
func NewAssignmentService(
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	files storage.FileStore,
	oracle ai.Oracle,
	invoker *retry.Invoker,
	validate *validator.Validate,
	maxUploadBytes int64,
	logger zerolog.Logger,
) AssignmentService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 * 1024 * 1024
	}
	return &assignmentService{
		assignments: assignments,
		submissions: submissions,
		files:       files,
		oracle:      oracle,
		invoker:     invoker,
		validator:   validate,
		maxBytes:    maxUploadBytes,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
	}
}

// Create stores a draft assignment owned by the calling teacher. A new
// assignment has no answer key, so it cannot start published.
func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest, actor Actor) (dto.AssignmentResponse, error) {
	if !actor.IsTeacher() {
		return dto.AssignmentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if payload.Status != "" && payload.Status != models.AssignmentStatusDraft {
		return dto.AssignmentResponse{}, ErrAnswerKeyNotFinalized
	}

	deadline, err := parseDeadline(payload.Deadline)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Title:     strings.TrimSpace(payload.Title),
		TeacherID: actor.ID,
		ClassID:   strings.TrimSpace(payload.ClassID),
		Status:    models.AssignmentStatusDraft,
		Deadline:  deadline,
	}
	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("create assignment: %w", err)
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Str("class_id", assignment.ClassID).Msg("assignment created")
	return dto.NewAssignmentResponse(assignment), nil
}

// Update changes the deadline or status. Opening an assignment for
// submissions requires a finalized answer key.
func (s *assignmentService) Update(ctx context.Context, assignmentID uint, payload dto.AssignmentUpdateRequest, actor Actor) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Deadline != nil {
		deadline, err := parseDeadline(*payload.Deadline)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.Deadline = deadline
	}
	if payload.Status != nil {
		if *payload.Status == models.AssignmentStatusPublished && !assignment.HasFinalizedAnswerKey() {
			return dto.AssignmentResponse{}, ErrAnswerKeyNotFinalized
		}
		assignment.Status = *payload.Status
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("update assignment: %w", err)
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Str("status", assignment.Status).Msg("assignment updated")
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListMine(ctx context.Context, actor Actor) ([]dto.AssignmentResponse, error) {
	if !actor.IsTeacher() {
		return nil, ErrForbidden
	}

	assignments, err := s.assignments.ListByTeacher(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	result := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		result = append(result, dto.NewAssignmentResponse(assignment))
	}
	return result, nil
}

func (s *assignmentService) ExtractAnswerKey(ctx context.Context, assignmentID uint, payload dto.AnswerKeyExtractRequest, file *multipart.FileHeader, actor Actor) (dto.AnswerKeyResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerKeyResponse{}, err
	}
	if file == nil || file.Size == 0 {
		return dto.AnswerKeyResponse{}, ErrInvalidFile
	}
	if file.Size > s.maxBytes {
		return dto.AnswerKeyResponse{}, ErrFileTooLarge
	}

	assignment, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor)
	if err != nil {
		return dto.AnswerKeyResponse{}, err
	}

	data, err := readUpload(file)
	if err != nil {
		return dto.AnswerKeyResponse{}, err
	}
	if !mimetype.Detect(data).Is("application/pdf") {
		return dto.AnswerKeyResponse{}, ErrInvalidFile
	}

	dir := assignmentDir(assignment)
	bookPath := storage.TeacherBookPath(dir)
	if err := s.files.Write(ctx, bookPath, data); err != nil {
		return dto.AnswerKeyResponse{}, fmt.Errorf("store teacher book: %w", err)
	}

	book := ai.Document{Name: bookPath, ContentType: "application/pdf", Data: data}
	text, err := retry.Do(ctx, s.invoker, ai.OperationExtractAnswerKey, func(ctx context.Context) (string, error) {
		return s.oracle.ExtractAnswerKey(ctx, book, payload.Instructions)
	})
	if err != nil {
		return dto.AnswerKeyResponse{}, fmt.Errorf("extract answer key: %w", err)
	}

	rawPath := storage.AnswerRawPath(dir)
	if err := s.files.Write(ctx, rawPath, []byte(text)); err != nil {
		return dto.AnswerKeyResponse{}, fmt.Errorf("store answer key: %w", err)
	}

	assignment.AnswerPath = rawPath
	assignment.AnswerContent = text
	assignment.AnswerFinalized = false
	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AnswerKeyResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Int("chars", len(text)).Msg("answer key extracted")
	return dto.NewAnswerKeyResponse(assignment), nil
}

func (s *assignmentService) FinalizeAnswerKey(ctx context.Context, assignmentID uint, payload dto.AnswerKeyFinalizeRequest, actor Actor) (dto.AnswerKeyResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerKeyResponse{}, err
	}
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		return dto.AnswerKeyResponse{}, ErrAnswerKeyMissing
	}

	assignment, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor)
	if err != nil {
		return dto.AnswerKeyResponse{}, err
	}

	selectedPath := storage.AnswerSelectedPath(assignmentDir(assignment))
	if err := s.files.Write(ctx, selectedPath, []byte(content)); err != nil {
		return dto.AnswerKeyResponse{}, fmt.Errorf("store answer key: %w", err)
	}

	assignment.AnswerPath = selectedPath
	assignment.AnswerContent = content
	assignment.AnswerFinalized = true
	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AnswerKeyResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("answer key finalized")
	return dto.NewAnswerKeyResponse(assignment), nil
}

func (s *assignmentService) GetAnswerKey(ctx context.Context, assignmentID uint, actor Actor) (dto.AnswerKeyResponse, error) {
	assignment, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor)
	if err != nil {
		return dto.AnswerKeyResponse{}, err
	}
	if assignment.AnswerContent == "" {
		return dto.AnswerKeyResponse{}, ErrAnswerKeyMissing
	}
	return dto.NewAnswerKeyResponse(assignment), nil
}

// Publish makes every graded submission of the assignment visible to its student.
func (s *assignmentService) Publish(ctx context.Context, assignmentID uint, actor Actor) (dto.PublishResponse, error) {
	assignment, err := loadOwnedAssignment(ctx, s.assignments, assignmentID, actor)
	if err != nil {
		return dto.PublishResponse{}, err
	}

	count, err := s.submissions.PublishGraded(ctx, assignment.ID)
	if err != nil {
		return dto.PublishResponse{}, fmt.Errorf("publish graded submissions: %w", err)
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Int64("published", count).Msg("grades published")
	return dto.PublishResponse{AssignmentID: assignment.ID, Published: count}, nil
}

// parseDeadline accepts RFC3339; an empty string clears the deadline.
func parseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	deadline, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: deadline must be RFC3339", ErrInvalidDeadline)
	}
	deadline = deadline.UTC()
	return &deadline, nil
}

func assignmentDir(assignment models.Assignment) string {
	return storage.AssignmentDir(assignment.Teacher.Username, assignment.TeacherID, assignment.Title, assignment.ID)
}
