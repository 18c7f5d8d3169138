package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grader/internal/models"
)

// UserRepository provides access to teacher and student records.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	UpsertBatch(ctx context.Context, users []models.User) (int64, error)
	CountStudents(ctx context.Context, classID string) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

// UpsertBatch inserts users keyed by username, refreshing role and roster
// fields of existing rows.
func (r *userRepository) UpsertBatch(ctx context.Context, users []models.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "class_id", "student_number", "updated_at"}),
	}).Create(&users)
	return tx.RowsAffected, tx.Error
}

// CountStudents returns the roster size of a class.
func (r *userRepository) CountStudents(ctx context.Context, classID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND class_id = ?", models.RoleStudent, classID).
		Count(&total).Error
	return total, err
}
