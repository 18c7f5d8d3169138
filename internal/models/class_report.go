package models

import "time"

// ClassReport records one generated class-wide report artifact.
type ClassReport struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;index" json:"assignment_id"`
	Path         string    `gorm:"size:512;not null" json:"path"`
	CreatedAt    time.Time `json:"created_at"`
}
