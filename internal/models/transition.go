package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transition types
const (
	TransitionTypeIncome     = "INCOME"
	TransitionTypeWithdrawal = "WITHDRAWAL"
	TransitionTypeTransfer   = "TRANSFER"
)

// Transition is one immutable balance delta in the audit log. The two legs
// of a transfer share a TransactionID and their amounts sum to zero.
type Transition struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	AccountID     uint            `gorm:"not null;index" json:"accountId"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"transactionId"`
	Type          string          `gorm:"not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	CreatedAt     time.Time       `json:"createdAt"`
}
