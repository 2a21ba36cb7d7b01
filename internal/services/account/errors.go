package account

import "errors"

// Service errors
var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateAccount  = errors.New("account already exists for user and currency")
	ErrInsufficientFunds = errors.New("account doesn't have enough funds")
	ErrTooMuchContention = errors.New("concurrent update retries exhausted")
	ErrSelfTransfer      = errors.New("cannot transfer to self")
)
