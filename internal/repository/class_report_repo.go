package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grader/internal/models"
)

// ClassReportRepository stores the history of generated class reports.
type ClassReportRepository interface {
	Create(ctx context.Context, report *models.ClassReport) error
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.ClassReport, error)
	Latest(ctx context.Context, assignmentID uint) (models.ClassReport, error)
}

type classReportRepository struct {
	db *gorm.DB
}

// NewClassReportRepository constructs the repository.
func NewClassReportRepository(db *gorm.DB) ClassReportRepository {
	return &classReportRepository{db: db}
}

func (r *classReportRepository) Create(ctx context.Context, report *models.ClassReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *classReportRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.ClassReport, error) {
	var reports []models.ClassReport
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").Order("id DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *classReportRepository) Latest(ctx context.Context, assignmentID uint) (models.ClassReport, error) {
	var report models.ClassReport
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").Order("id DESC").
		First(&report).Error; err != nil {
		return models.ClassReport{}, err
	}
	return report, nil
}
