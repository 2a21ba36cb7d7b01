package account

import "time"

// Operation names used in metrics and error wrapping.
const (
	OperationDeposit  = "deposit"
	OperationWithdraw = "withdraw"
	OperationTransfer = "transfer"
)

// Default configuration values
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 2 * time.Millisecond
)
