package models

import "time"

// Assignment lifecycle states.
const (
	AssignmentStatusDraft     = "draft"
	AssignmentStatusPublished = "published"
	AssignmentStatusClosed    = "closed"
)

// Assignment is a homework set owned by a teacher and graded against its answer key.
type Assignment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	TeacherID       uint       `gorm:"not null;index" json:"teacher_id"`
	ClassID         string     `gorm:"size:64;index" json:"class_id"`
	Status          string     `gorm:"size:32;not null;default:draft" json:"status"`
	AnswerPath      string     `gorm:"size:512" json:"answer_path"`
	AnswerContent   string     `gorm:"type:text" json:"-"`
	AnswerFinalized bool       `gorm:"not null;default:false" json:"answer_finalized"`
	Deadline        *time.Time `json:"deadline"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Teacher         User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// HasFinalizedAnswerKey reports whether grading can run against this assignment.
func (a Assignment) HasFinalizedAnswerKey() bool {
	return a.AnswerFinalized && a.AnswerContent != ""
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	if a.Deadline == nil {
		return false
	}
	return reference.After(*a.Deadline)
}
