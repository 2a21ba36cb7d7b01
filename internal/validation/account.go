package validation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/models"
)

// ValidateAmount checks the shared amount constraints for deposits,
// withdrawals, and transfers.
func ValidateAmount(v *Validator, amount decimal.Decimal) {
	v.Check(amount.IsPositive(), "amount", "must be greater than zero")
}

func ValidateCurrency(v *Validator, currencyID int) {
	v.Check(currencyID > 0, "currencyId", "must be a positive currency identifier")
}

func ValidateUserID(v *Validator, field string, userID uuid.UUID) {
	v.Check(userID != uuid.Nil, field, "must be a valid user identifier")
}

// ValidateTransferRequest checks all fields of a transfer request.
func ValidateTransferRequest(v *Validator, req models.TransferRequest) {
	ValidateUserID(v, "userFrom", req.UserFrom)
	ValidateUserID(v, "userTo", req.UserTo)
	ValidateCurrency(v, req.CurrencyID)
	ValidateAmount(v, req.Amount)
}
