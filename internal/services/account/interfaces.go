package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/models"
)

// Service is the balance mutation core. Each operation is atomic from the
// caller's point of view: the visible state changes exactly as specified
// or an error is returned with no change.
type Service interface {
	// Balance mutations
	Deposit(ctx context.Context, userID uuid.UUID, currencyID int, amount decimal.Decimal) (*models.Account, error)
	Withdraw(ctx context.Context, userID uuid.UUID, currencyID int, amount decimal.Decimal) (*models.Account, error)
	Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferReceipt, error)

	// Account management
	CreateAccount(ctx context.Context, userID uuid.UUID, currencyID int, initialAmount decimal.Decimal) (*models.Account, error)
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
	GetAccountsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	// Audit log projections
	GetTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Transition, error)
	GetAccountTransitions(ctx context.Context, accountID uint) ([]models.Transition, error)
}

// Cache is the account snapshot cache used by read paths. The mutation
// loops never read through it.
type Cache interface {
	GetAccountByID(ctx context.Context, id uint) (*models.Account, bool)
	CacheAccount(ctx context.Context, account *models.Account) error
	InvalidateAccount(ctx context.Context, account *models.Account) error
}
