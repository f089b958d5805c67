package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/wenzhi-edu/report-api/internal/models"
)

// EvaluationRepository defines data operations for stored evaluations.
type EvaluationRepository interface {
	GetByEssayID(ctx context.Context, essayID uint) (models.Evaluation, error)
	ListByAssignmentID(ctx context.Context, assignmentID uint) ([]models.Evaluation, error)
	IsReviewed(ctx context.Context, essayID uint) (bool, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) GetByEssayID(ctx context.Context, essayID uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).
		Where("essay_id = ?", essayID).
		First(&evaluation).Error; err != nil {
		return models.Evaluation{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) ListByAssignmentID(ctx context.Context, assignmentID uint) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("student_no ASC, student_name ASC, essay_id ASC").
		Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}

func (r *evaluationRepository) IsReviewed(ctx context.Context, essayID uint) (bool, error) {
	evaluation, err := r.GetByEssayID(ctx, essayID)
	if err != nil {
		return false, err
	}

	return evaluation.IsReviewed(), nil
}
