package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gema-grader/internal/grading"
)

// Submission lifecycle states. Only the grading worker moves a record out of pending.
const (
	SubmissionStatusPending    = "pending"
	SubmissionStatusProcessing = "processing"
	SubmissionStatusGraded     = "graded"
	SubmissionStatusFailed     = "failed"
	SubmissionStatusPublished  = "published"
)

// Submission is one student's homework upload and its grading outcome.
type Submission struct {
	ID            uint                               `gorm:"primaryKey" json:"id"`
	AssignmentID  uint                               `gorm:"not null;index" json:"assignment_id"`
	StudentID     uint                               `gorm:"not null;index" json:"student_id"`
	HomeworkPath  string                             `gorm:"size:512;not null" json:"homework_path"`
	ReportPath    string                             `gorm:"size:512" json:"report_path"`
	DataPath      string                             `gorm:"size:512" json:"data_path"`
	FileURL       string                             `gorm:"size:512" json:"file_url"`
	Status        string                             `gorm:"size:32;not null;index" json:"status"`
	Grade         string                             `gorm:"size:4" json:"grade"`
	Counts        datatypes.JSONType[grading.Counts] `json:"counts"`
	FailureReason string                             `gorm:"type:text" json:"failure_reason,omitempty"`
	GradedAt      *time.Time                         `json:"graded_at"`
	CreatedAt     time.Time                          `json:"created_at"`
	UpdatedAt     time.Time                          `json:"updated_at"`
	Assignment    Assignment                         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student       User                               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsGraded reports whether the submission carries a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded || s.Status == SubmissionStatusPublished
}
