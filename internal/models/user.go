package models

import "time"

// Roles recognised by the API.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User is a teacher or a student. Students belong to one class and carry a roster number.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"size:255;uniqueIndex;not null" json:"username"`
	Role          string    `gorm:"size:32;not null;index" json:"role"`
	ClassID       string    `gorm:"size:64;index" json:"class_id"`
	StudentNumber string    `gorm:"size:64" json:"student_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsTeacher reports whether the user may manage assignments.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}
