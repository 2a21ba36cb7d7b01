package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account holds the current balance for one (user, currency) pair.
// The store assigns IDs; ascending ID is the global order used when an
// operation touches two accounts.
type Account struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_account_user_currency" json:"userId"`
	CurrencyID int             `gorm:"not null;uniqueIndex:idx_account_user_currency" json:"currencyId"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	CreatedAt  time.Time       `json:"-"`
	UpdatedAt  time.Time       `json:"-"`
}
