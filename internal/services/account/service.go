package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/models"
	"moneta/internal/repositories"
)

type service struct {
	accounts    repositories.AccountRepository
	transitions repositories.TransitionRepository
	cache       Cache
	config      Config
	metrics     MetricsCollector
}

// NewService creates a new account service
func NewService(
	accounts repositories.AccountRepository,
	transitions repositories.TransitionRepository,
	cache Cache,
	config Config,
	metrics MetricsCollector,
) Service {
	if accounts == nil {
		panic("account repository is required")
	}
	if transitions == nil {
		panic("transition repository is required")
	}

	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	// Cache and metrics are optional, use no-op implementations if nil
	if cache == nil {
		cache = &NoopCache{}
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		accounts:    accounts,
		transitions: transitions,
		cache:       cache,
		config:      config,
		metrics:     metrics,
	}
}

func (s *service) Deposit(ctx context.Context, userID uuid.UUID, currencyID int, amount decimal.Decimal) (*models.Account, error) {
	if !amount.IsPositive() {
		s.metrics.RecordError(OperationDeposit, "invalid_amount")
		return nil, ErrInvalidAmount
	}

	acc, err := s.ensureAccount(ctx, userID, currencyID)
	if err != nil {
		return nil, err
	}

	updated, err := s.applyDelta(ctx, OperationDeposit, acc.ID, amount, uuid.New(), models.TransitionTypeIncome)
	if err != nil {
		s.metrics.RecordError(OperationDeposit, "apply_failed")
		return nil, err
	}

	s.cache.InvalidateAccount(ctx, updated)
	s.metrics.RecordTransaction(OperationDeposit, amount)
	return updated, nil
}

func (s *service) Withdraw(ctx context.Context, userID uuid.UUID, currencyID int, amount decimal.Decimal) (*models.Account, error) {
	if !amount.IsPositive() {
		s.metrics.RecordError(OperationWithdraw, "invalid_amount")
		return nil, ErrInvalidAmount
	}

	acc, err := s.accounts.GetByUserAndCurrency(ctx, userID, currencyID)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	updated, err := s.applyDelta(ctx, OperationWithdraw, acc.ID, amount.Neg(), uuid.New(), models.TransitionTypeWithdrawal)
	if err != nil {
		s.metrics.RecordError(OperationWithdraw, "apply_failed")
		return nil, err
	}

	s.cache.InvalidateAccount(ctx, updated)
	s.metrics.RecordTransaction(OperationWithdraw, amount)
	return updated, nil
}

// Transfer moves funds between two user accounts in the same currency.
// The two balance updates are applied in ascending account-ID order no
// matter which side is the source, so concurrent opposite-direction
// transfers over the same pair cannot livelock against each other.
func (s *service) Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferReceipt, error) {
	if !req.Amount.IsPositive() {
		s.metrics.RecordError(OperationTransfer, "invalid_amount")
		return nil, ErrInvalidAmount
	}
	if req.UserFrom == req.UserTo {
		return nil, ErrSelfTransfer
	}

	src, err := s.accounts.GetByUserAndCurrency(ctx, req.UserFrom, req.CurrencyID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, fmt.Errorf("source account: %w", ErrAccountNotFound)
		}
		return nil, err
	}
	dst, err := s.accounts.GetByUserAndCurrency(ctx, req.UserTo, req.CurrencyID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, fmt.Errorf("destination account: %w", ErrAccountNotFound)
		}
		return nil, err
	}

	// Pre-check on the source snapshot; the debit leg re-checks on every
	// re-read inside its retry loop.
	if src.Amount.LessThan(req.Amount) {
		s.metrics.RecordError(OperationTransfer, "insufficient_funds")
		return nil, ErrInsufficientFunds
	}

	type leg struct {
		accountID uint
		delta     decimal.Decimal
	}
	legs := [2]leg{
		{accountID: src.ID, delta: req.Amount.Neg()},
		{accountID: dst.ID, delta: req.Amount},
	}
	if legs[1].accountID < legs[0].accountID {
		legs[0], legs[1] = legs[1], legs[0]
	}

	txID := uuid.New()

	// Each leg commits its balance change and its log row together, so
	// the group holds a leg's transition exactly when that leg applied.
	if _, err := s.applyDelta(ctx, OperationTransfer, legs[0].accountID, legs[0].delta, txID, models.TransitionTypeTransfer); err != nil {
		s.metrics.RecordError(OperationTransfer, "first_leg_failed")
		return nil, err
	}

	if _, err := s.applyDelta(ctx, OperationTransfer, legs[1].accountID, legs[1].delta, txID, models.TransitionTypeTransfer); err != nil {
		return nil, s.compensate(ctx, txID, legs[0].accountID, legs[0].delta, err)
	}

	s.cache.InvalidateAccount(ctx, src)
	s.cache.InvalidateAccount(ctx, dst)
	s.metrics.RecordTransaction(OperationTransfer, req.Amount)

	return &models.TransferReceipt{TransactionID: txID, Amount: req.Amount}, nil
}

// compensate reverses an applied transfer leg after the other leg failed.
// The reversal keeps the leg's transaction-group ID, balancing the group
// back to zero. If the reversal itself cannot be applied, the applied
// leg's transition is already in the log as a single-leg group, which the
// reconciliation sweep detects and reverses later; the balance change is
// never silently dropped.
func (s *service) compensate(ctx context.Context, txID uuid.UUID, accountID uint, delta decimal.Decimal, cause error) error {
	if _, err := s.applyDelta(ctx, OperationTransfer, accountID, delta.Neg(), txID, models.TransitionTypeTransfer); err == nil {
		return cause
	}

	s.metrics.RecordError(OperationTransfer, "compensation_failed")
	return fmt.Errorf("transfer partially applied, queued for reconciliation: %w", cause)
}

// applyDelta runs one bounded read-compute-write sequence against the
// account's balance. The non-negativity check always uses the same
// snapshot the compare-and-swap is issued with, and the transition is
// committed by the store together with the swap.
func (s *service) applyDelta(ctx context.Context, operation string, accountID uint, delta decimal.Decimal, txID uuid.UUID, transitionType string) (*models.Account, error) {
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		acc, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			return nil, s.mapRepoError(err)
		}

		newAmount := acc.Amount.Add(delta)
		if newAmount.IsNegative() {
			return nil, ErrInsufficientFunds
		}

		transition := &models.Transition{
			AccountID:     accountID,
			TransactionID: txID,
			Type:          transitionType,
			Amount:        delta,
		}
		ok, err := s.accounts.UpdateAmount(ctx, accountID, newAmount, acc.Amount, transition)
		if err != nil {
			return nil, err
		}
		if ok {
			acc.Amount = newAmount
			return acc, nil
		}

		// Another writer changed the balance between read and write.
		s.metrics.RecordRetry(operation)
		if s.config.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
		}
	}
	return nil, ErrTooMuchContention
}

// ensureAccount returns the account for (user, currency), creating it with
// a zero balance on first use. A creation race falls back to re-reading.
func (s *service) ensureAccount(ctx context.Context, userID uuid.UUID, currencyID int) (*models.Account, error) {
	acc, err := s.accounts.GetByUserAndCurrency(ctx, userID, currencyID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, repositories.ErrAccountNotFound) {
		return nil, err
	}

	acc = &models.Account{
		UserID:     userID,
		CurrencyID: currencyID,
		Amount:     decimal.Zero,
	}
	createErr := s.accounts.Create(ctx, acc)
	if createErr == nil {
		return acc, nil
	}
	if errors.Is(createErr, repositories.ErrDuplicateAccount) {
		acc, err = s.accounts.GetByUserAndCurrency(ctx, userID, currencyID)
		if err != nil {
			return nil, s.mapRepoError(err)
		}
		return acc, nil
	}
	return nil, createErr
}

func (s *service) CreateAccount(ctx context.Context, userID uuid.UUID, currencyID int, initialAmount decimal.Decimal) (*models.Account, error) {
	if initialAmount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	acc := &models.Account{
		UserID:     userID,
		CurrencyID: currencyID,
		Amount:     initialAmount,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repositories.ErrDuplicateAccount) {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}

	if initialAmount.IsPositive() {
		if err := s.appendTransition(ctx, acc.ID, uuid.New(), models.TransitionTypeIncome, initialAmount); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (s *service) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	if acc, ok := s.cache.GetAccountByID(ctx, id); ok {
		return acc, nil
	}

	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	s.cache.CacheAccount(ctx, acc)
	return acc, nil
}

func (s *service) GetAccountsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Account, error) {
	return s.accounts.GetByUser(ctx, userID)
}

func (s *service) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.accounts.GetAll(ctx)
}

func (s *service) GetTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Transition, error) {
	return s.transitions.GetByTransactionID(ctx, transactionID)
}

func (s *service) GetAccountTransitions(ctx context.Context, accountID uint) ([]models.Transition, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, s.mapRepoError(err)
	}
	return s.transitions.GetByAccountID(ctx, accountID)
}

func (s *service) appendTransition(ctx context.Context, accountID uint, txID uuid.UUID, transitionType string, amount decimal.Decimal) error {
	t := &models.Transition{
		AccountID:     accountID,
		TransactionID: txID,
		Type:          transitionType,
		Amount:        amount,
	}
	if err := s.transitions.Create(ctx, t); err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

func (s *service) mapRepoError(err error) error {
	if errors.Is(err, repositories.ErrAccountNotFound) {
		return ErrAccountNotFound
	}
	return err
}
