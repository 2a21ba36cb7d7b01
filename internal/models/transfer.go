package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferRequest is the transient input for a P2P transfer. It is parsed
// and field-validated by the handler layer before it reaches the core.
type TransferRequest struct {
	UserFrom   uuid.UUID       `json:"userFrom"`
	UserTo     uuid.UUID       `json:"userTo"`
	CurrencyID int             `json:"currencyId"`
	Amount     decimal.Decimal `json:"amount"`
}

// TransferReceipt confirms a completed transfer. TransactionID links the
// debit and credit transitions written for it.
type TransferReceipt struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
}
