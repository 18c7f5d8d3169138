package dto

import (
	"time"

	"github.com/noah-isme/gema-grader/internal/models"
)

// AssignmentCreateRequest describes a new assignment. Deadline is RFC3339.
type AssignmentCreateRequest struct {
	Title    string `json:"title" validate:"required,min=3,max=255"`
	ClassID  string `json:"class_id" validate:"required,max=64"`
	Deadline string `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Status   string `json:"status" validate:"omitempty,oneof=draft published closed"`
}

// AssignmentUpdateRequest patches assignment metadata; nil fields are kept.
// The title is fixed because it names the artifact directory.
type AssignmentUpdateRequest struct {
	Deadline *string `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Status   *string `json:"status" validate:"omitempty,oneof=draft published closed"`
}

// AnswerKeyExtractRequest carries the teacher's selection instructions for answer key extraction.
type AnswerKeyExtractRequest struct {
	Instructions string `form:"instructions" validate:"required,min=2,max=4000"`
}

// AnswerKeyFinalizeRequest confirms the answer key text used for grading.
type AnswerKeyFinalizeRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

// AnswerKeyResponse exposes the current answer key of an assignment.
type AnswerKeyResponse struct {
	AssignmentID uint   `json:"assignment_id"`
	Content      string `json:"content"`
	Path         string `json:"path"`
	Finalized    bool   `json:"finalized"`
}

// AssignmentResponse summarizes an assignment.
type AssignmentResponse struct {
	ID              uint       `json:"id"`
	Title           string     `json:"title"`
	ClassID         string     `json:"class_id"`
	Status          string     `json:"status"`
	AnswerFinalized bool       `json:"answer_finalized"`
	Deadline        *time.Time `json:"deadline"`
}

// NewAssignmentResponse converts an Assignment into its summary view.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:              model.ID,
		Title:           model.Title,
		ClassID:         model.ClassID,
		Status:          model.Status,
		AnswerFinalized: model.HasFinalizedAnswerKey(),
		Deadline:        model.Deadline,
	}
}

// NewAnswerKeyResponse converts an Assignment into its answer key view.
func NewAnswerKeyResponse(model models.Assignment) AnswerKeyResponse {
	return AnswerKeyResponse{
		AssignmentID: model.ID,
		Content:      model.AnswerContent,
		Path:         model.AnswerPath,
		Finalized:    model.AnswerFinalized,
	}
}

// PublishResponse reports how many graded submissions became visible to students.
type PublishResponse struct {
	AssignmentID uint  `json:"assignment_id"`
	Published    int64 `json:"published"`
}
