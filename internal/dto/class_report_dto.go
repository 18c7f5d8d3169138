package dto

import (
	"time"

	"github.com/noah-isme/gema-grader/internal/models"
)

// ClassReportResponse returns a generated class report with its content.
type ClassReportResponse struct {
	ID           uint      `json:"id"`
	AssignmentID uint      `json:"assignment_id"`
	Path         string    `json:"path"`
	Content      string    `json:"content,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewClassReportResponse converts a ClassReport model into a DTO.
func NewClassReportResponse(model models.ClassReport, content string) ClassReportResponse {
	return ClassReportResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		Path:         model.Path,
		Content:      content,
		CreatedAt:    model.CreatedAt,
	}
}
