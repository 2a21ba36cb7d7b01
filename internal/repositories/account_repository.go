package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/models"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account already exists for user and currency")
)

// AccountRepository defines the account store. UpdateAmount is the only
// write path for balances after creation.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currencyID int) (*models.Account, error)
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error)
	GetAll(ctx context.Context) ([]*models.Account, error)

	// UpdateAmount writes newAmount only if the row still holds oldAmount,
	// and records transition in the same store transaction, so a log row
	// exists exactly when its balance change committed. Returns false with
	// no error when another writer got there first; the transition is not
	// written in that case.
	UpdateAmount(ctx context.Context, id uint, newAmount, oldAmount decimal.Decimal, transition *models.Transition) (bool, error)
}
