package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"moneta/internal/models"
)

type transitionRepository struct {
	db *gorm.DB
}

func NewTransitionRepository(db *gorm.DB) TransitionRepository {
	return &transitionRepository{db: db}
}

func (r *transitionRepository) Create(ctx context.Context, transition *models.Transition) error {
	if err := r.db.WithContext(ctx).Create(transition).Error; err != nil {
		return fmt.Errorf("failed to create transition: %w", err)
	}
	return nil
}

func (r *transitionRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.Transition, error) {
	var transitions []models.Transition
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id").
		Find(&transitions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction transitions: %w", err)
	}
	return transitions, nil
}

func (r *transitionRepository) GetByAccountID(ctx context.Context, accountID uint) ([]models.Transition, error) {
	var transitions []models.Transition
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id").
		Find(&transitions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get account transitions: %w", err)
	}
	return transitions, nil
}

func (r *transitionRepository) GetDanglingTransfers(ctx context.Context, before time.Time) ([]models.Transition, error) {
	singleLeg := r.db.Model(&models.Transition{}).
		Select("transaction_id").
		Where("type = ?", models.TransitionTypeTransfer).
		Group("transaction_id").
		Having("COUNT(*) = 1")

	var transitions []models.Transition
	err := r.db.WithContext(ctx).
		Where("type = ? AND created_at < ? AND transaction_id IN (?)",
			models.TransitionTypeTransfer, before, singleLeg).
		Order("id").
		Find(&transitions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get dangling transfers: %w", err)
	}
	return transitions, nil
}
