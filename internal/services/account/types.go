package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds tuning knobs for the optimistic retry loop.
type Config struct {
	// MaxAttempts bounds one read-compute-write sequence; exhausted
	// attempts surface ErrTooMuchContention.
	MaxAttempts int
	// RetryDelay is slept between attempts after a conflict.
	RetryDelay time.Duration
}

// MetricsCollector defines the interface for collecting core metrics.
type MetricsCollector interface {
	RecordTransaction(operation string, amount decimal.Decimal)
	RecordRetry(operation string)
	RecordError(operation, errType string)
}
