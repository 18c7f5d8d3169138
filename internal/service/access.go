package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates the assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrForbidden indicates the actor may not act on the resource.
	ErrForbidden = errors.New("forbidden")
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role string
}

// IsTeacher reports whether the actor holds the teacher role.
func (a Actor) IsTeacher() bool {
	return a.Role == models.RoleTeacher
}

func loadOwnedAssignment(ctx context.Context, repo repository.AssignmentRepository, assignmentID uint, actor Actor) (models.Assignment, error) {
	assignment, err := repo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}

	if !actor.IsTeacher() || assignment.TeacherID != actor.ID {
		return models.Assignment{}, ErrForbidden
	}

	return assignment, nil
}
