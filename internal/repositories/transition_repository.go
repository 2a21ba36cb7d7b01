package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"moneta/internal/models"
)

// TransitionRepository is the append-only transition log. Rows are never
// updated or deleted.
type TransitionRepository interface {
	Create(ctx context.Context, transition *models.Transition) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.Transition, error)
	GetByAccountID(ctx context.Context, accountID uint) ([]models.Transition, error)

	// GetDanglingTransfers returns TRANSFER transitions created before
	// the cutoff whose transaction group has exactly one leg persisted.
	// The cutoff keeps transfers that are still appending their second
	// leg out of the result.
	GetDanglingTransfers(ctx context.Context, before time.Time) ([]models.Transition, error)
}
