package dto

import (
	"time"

	"github.com/noah-isme/gema-grader/internal/grading"
	"github.com/noah-isme/gema-grader/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for homework upload.
type SubmissionCreateRequest struct {
	AssignmentID uint `form:"assignment_id" validate:"required,gt=0"`
	StudentID    uint `form:"-" validate:"required,gt=0"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID            uint            `json:"id"`
	AssignmentID  uint            `json:"assignment_id"`
	StudentID     uint            `json:"student_id"`
	FileURL       string          `json:"file_url,omitempty"`
	Status        string          `json:"status"`
	Grade         string          `json:"grade,omitempty"`
	Counts        *grading.Counts `json:"counts,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	GradedAt      *time.Time      `json:"graded_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Assignment    AssignmentLite  `json:"assignment"`
	Student       StudentLite     `json:"student"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID       uint       `json:"id"`
	Title    string     `json:"title"`
	Deadline *time.Time `json:"deadline"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	StudentNumber string `json:"student_number"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:            model.ID,
		AssignmentID:  model.AssignmentID,
		StudentID:     model.StudentID,
		FileURL:       model.FileURL,
		Status:        model.Status,
		Grade:         model.Grade,
		FailureReason: model.FailureReason,
		GradedAt:      model.GradedAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}

	if model.IsGraded() {
		counts := model.Counts.Data()
		response.Counts = &counts
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:       model.Assignment.ID,
			Title:    model.Assignment.Title,
			Deadline: model.Assignment.Deadline,
		}
	}

	if model.Student.ID != 0 {
		response.Student = StudentLite{
			ID:            model.Student.ID,
			Username:      model.Student.Username,
			StudentNumber: model.Student.StudentNumber,
		}
	}

	return response
}
