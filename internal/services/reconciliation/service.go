// Package reconciliation resolves transfers that were left half applied.
//
// Each transfer leg commits its balance update and its log row in one
// store transaction; a single-leg transfer group therefore means the
// other leg never committed, whether its retries were exhausted and the
// compensation failed too, or the process died between the legs. The
// sweep reverses the applied leg, writing the compensating transition
// under the same transaction-group ID in the same atomic step, restoring
// the zero-sum invariant.
package reconciliation

import (
	"context"
	"log"
	"time"

	"moneta/internal/models"
	"moneta/internal/repositories"
)

// Config holds tuning knobs for the sweep.
type Config struct {
	// MinAge keeps transfers that may still be appending their second
	// leg out of a sweep.
	MinAge time.Duration
	// MaxAttempts bounds the reversal's compare-and-swap retries.
	MaxAttempts int
}

const (
	DefaultMinAge      = time.Minute
	DefaultMaxAttempts = 5
)

// Service runs the reconciliation sweep over the transition log.
type Service struct {
	accounts    repositories.AccountRepository
	transitions repositories.TransitionRepository
	config      Config
}

// NewService creates a new reconciliation service
func NewService(
	accounts repositories.AccountRepository,
	transitions repositories.TransitionRepository,
	config Config,
) *Service {
	if accounts == nil {
		panic("account repository is required")
	}
	if transitions == nil {
		panic("transition repository is required")
	}
	if config.MinAge <= 0 {
		config.MinAge = DefaultMinAge
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	return &Service{
		accounts:    accounts,
		transitions: transitions,
		config:      config,
	}
}

// RunOnce resolves every dangling transfer leg it can and returns the
// number resolved. A leg whose reversal keeps losing the compare-and-swap,
// or would drive the balance negative, is left for the next sweep.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.config.MinAge)
	dangling, err := s.transitions.GetDanglingTransfers(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, leg := range dangling {
		if err := s.resolve(ctx, leg); err != nil {
			log.Printf("reconciliation: transfer %s account %d unresolved: %v",
				leg.TransactionID, leg.AccountID, err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

// Start runs the sweep on a fixed interval until the context is done.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.RunOnce(ctx); err != nil {
				log.Printf("reconciliation sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("reconciliation resolved %d dangling transfer(s)", n)
			}
		}
	}
}

// resolve reverses one dangling leg. The compensating transition rides
// the same store transaction as the reversal, so a resolved group always
// ends with both rows and can never be swept twice.
func (s *Service) resolve(ctx context.Context, leg models.Transition) error {
	reversal := leg.Amount.Neg()
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		acc, err := s.accounts.GetByID(ctx, leg.AccountID)
		if err != nil {
			return err
		}

		newAmount := acc.Amount.Add(reversal)
		if newAmount.IsNegative() {
			// A reversed credit was already spent; retry on a later
			// sweep once the account holds funds again.
			return errRetryLater
		}

		compensating := &models.Transition{
			AccountID:     leg.AccountID,
			TransactionID: leg.TransactionID,
			Type:          models.TransitionTypeTransfer,
			Amount:        reversal,
		}
		ok, err := s.accounts.UpdateAmount(ctx, leg.AccountID, newAmount, acc.Amount, compensating)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return errRetryLater
}
