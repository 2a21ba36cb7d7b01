package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneta/internal/models"
	"moneta/internal/repositories"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeAccountRepo implements repositories.AccountRepository in memory.
// UpdateAmount compares, writes, and logs under one lock, matching the
// atomicity the real store gets from a conditional UPDATE plus the
// transition insert in one database transaction.
type fakeAccountRepo struct {
	mu          sync.Mutex
	nextID      uint
	accounts    map[uint]*models.Account
	transitions *fakeTransitionRepo
	failUpdate  func(id uint) bool
}

func newFakes() (*fakeAccountRepo, *fakeTransitionRepo) {
	transitions := &fakeTransitionRepo{}
	return &fakeAccountRepo{
		accounts:    make(map[uint]*models.Account),
		transitions: transitions,
	}, transitions
}

func (f *fakeAccountRepo) Create(_ context.Context, acc *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.UserID == acc.UserID && existing.CurrencyID == acc.CurrencyID {
			return repositories.ErrDuplicateAccount
		}
	}
	f.nextID++
	acc.ID = f.nextID
	cp := *acc
	f.accounts[acc.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id uint) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeAccountRepo) GetByUserAndCurrency(_ context.Context, userID uuid.UUID, currencyID int) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.UserID == userID && acc.CurrencyID == currencyID {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, repositories.ErrAccountNotFound
}

func (f *fakeAccountRepo) GetByUser(_ context.Context, userID uuid.UUID) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Account
	for _, acc := range f.accounts {
		if acc.UserID == userID {
			cp := *acc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) GetAll(_ context.Context) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Account
	for _, acc := range f.accounts {
		cp := *acc
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeAccountRepo) UpdateAmount(ctx context.Context, id uint, newAmount, oldAmount decimal.Decimal, transition *models.Transition) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil && f.failUpdate(id) {
		return false, nil
	}
	acc, ok := f.accounts[id]
	if !ok {
		return false, nil
	}
	if !acc.Amount.Equal(oldAmount) {
		return false, nil
	}
	// A rejected log insert rolls back the balance write with it.
	if err := f.transitions.Create(ctx, transition); err != nil {
		return false, err
	}
	acc.Amount = newAmount
	return true, nil
}

type fakeTransitionRepo struct {
	mu          sync.Mutex
	nextID      uint
	transitions []models.Transition
	failCreate  func(t *models.Transition) bool
}

func (f *fakeTransitionRepo) Create(_ context.Context, t *models.Transition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil && f.failCreate(t) {
		return errors.New("transition insert rejected")
	}
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now()
	f.transitions = append(f.transitions, *t)
	return nil
}

func (f *fakeTransitionRepo) GetByTransactionID(_ context.Context, txID uuid.UUID) ([]models.Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transition
	for _, t := range f.transitions {
		if t.TransactionID == txID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTransitionRepo) GetByAccountID(_ context.Context, accountID uint) ([]models.Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transition
	for _, t := range f.transitions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTransitionRepo) GetDanglingTransfers(_ context.Context, before time.Time) ([]models.Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[uuid.UUID]int)
	for _, t := range f.transitions {
		if t.Type == models.TransitionTypeTransfer {
			counts[t.TransactionID]++
		}
	}
	var out []models.Transition
	for _, t := range f.transitions {
		if t.Type == models.TransitionTypeTransfer && counts[t.TransactionID] == 1 && !t.CreatedAt.After(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func newTestService(accounts *fakeAccountRepo, transitions *fakeTransitionRepo, cfg Config) Service {
	return NewService(accounts, transitions, nil, cfg, nil)
}

func TestDeposit(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name        string
		amount      decimal.Decimal
		wantErr     error
		wantBalance string
	}{
		{name: "creates account on first deposit", amount: dec("50"), wantBalance: "50"},
		{name: "zero amount rejected", amount: decimal.Zero, wantErr: ErrInvalidAmount},
		{name: "negative amount rejected", amount: dec("-5"), wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, transitions := newFakes()
			svc := newTestService(accounts, transitions, Config{})

			acc, err := svc.Deposit(context.Background(), userID, 1, tt.amount)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, transitions.transitions)
				return
			}
			require.NoError(t, err)
			assert.True(t, acc.Amount.Equal(dec(tt.wantBalance)))

			logged, err := svc.GetAccountTransitions(context.Background(), acc.ID)
			require.NoError(t, err)
			require.Len(t, logged, 1)
			assert.Equal(t, models.TransitionTypeIncome, logged[0].Type)
			assert.True(t, logged[0].Amount.Equal(tt.amount))
		})
	}
}

func TestDepositExistingAccount(t *testing.T) {
	userID := uuid.New()
	accounts, transitions := newFakes()
	svc := newTestService(accounts, transitions, Config{})

	_, err := svc.Deposit(context.Background(), userID, 1, dec("100"))
	require.NoError(t, err)

	acc, err := svc.Deposit(context.Background(), userID, 1, dec("50"))
	require.NoError(t, err)
	assert.True(t, acc.Amount.Equal(dec("150")))

	all, err := svc.GetAccountsForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "second deposit must reuse the account")
}

func TestWithdraw(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name        string
		initial     string
		amount      string
		wantErr     error
		wantBalance string
	}{
		{name: "successful withdrawal", initial: "100", amount: "40", wantBalance: "60"},
		{name: "exact balance withdrawal", initial: "100", amount: "100", wantBalance: "0"},
		{name: "insufficient funds", initial: "100", amount: "150", wantErr: ErrInsufficientFunds, wantBalance: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, transitions := newFakes()
			svc := newTestService(accounts, transitions, Config{})

			_, err := svc.Deposit(context.Background(), userID, 1, dec(tt.initial))
			require.NoError(t, err)

			acc, err := svc.Withdraw(context.Background(), userID, 1, dec(tt.amount))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				current, getErr := accounts.GetByUserAndCurrency(context.Background(), userID, 1)
				require.NoError(t, getErr)
				assert.True(t, current.Amount.Equal(dec(tt.wantBalance)), "balance must be unchanged")
				return
			}
			require.NoError(t, err)
			assert.True(t, acc.Amount.Equal(dec(tt.wantBalance)))

			logged, err := svc.GetAccountTransitions(context.Background(), acc.ID)
			require.NoError(t, err)
			last := logged[len(logged)-1]
			assert.Equal(t, models.TransitionTypeWithdrawal, last.Type)
			assert.True(t, last.Amount.Equal(dec(tt.amount).Neg()))
		})
	}
}

func TestWithdrawUnknownAccount(t *testing.T) {
	accounts, transitions := newFakes()
	svc := newTestService(accounts, transitions, Config{})

	_, err := svc.Withdraw(context.Background(), uuid.New(), 1, dec("10"))
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTransfer(t *testing.T) {
	from := uuid.New()
	to := uuid.New()
	ctx := context.Background()

	setup := func(t *testing.T) (Service, *fakeAccountRepo, *fakeTransitionRepo) {
		accounts, transitions := newFakes()
		svc := newTestService(accounts, transitions, Config{})

		_, err := svc.Deposit(ctx, from, 1, dec("100"))
		require.NoError(t, err)
		_, err = svc.Deposit(ctx, to, 1, dec("0.01"))
		require.NoError(t, err)
		_, err = svc.Withdraw(ctx, to, 1, dec("0.01"))
		require.NoError(t, err)
		return svc, accounts, transitions
	}

	t.Run("successful transfer", func(t *testing.T) {
		svc, accounts, _ := setup(t)

		receipt, err := svc.Transfer(ctx, models.TransferRequest{
			UserFrom: from, UserTo: to, CurrencyID: 1, Amount: dec("100"),
		})
		require.NoError(t, err)
		assert.True(t, receipt.Amount.Equal(dec("100")))

		src, err := accounts.GetByUserAndCurrency(ctx, from, 1)
		require.NoError(t, err)
		dst, err := accounts.GetByUserAndCurrency(ctx, to, 1)
		require.NoError(t, err)
		assert.True(t, src.Amount.Equal(dec("0")))
		assert.True(t, dst.Amount.Equal(dec("100")))

		legs, err := svc.GetTransaction(ctx, receipt.TransactionID)
		require.NoError(t, err)
		require.Len(t, legs, 2)
		sum := legs[0].Amount.Add(legs[1].Amount)
		assert.True(t, sum.IsZero(), "transfer legs must sum to zero")
	})

	t.Run("insufficient funds leaves both untouched", func(t *testing.T) {
		svc, accounts, transitions := setup(t)
		before := len(transitions.transitions)

		_, err := svc.Transfer(ctx, models.TransferRequest{
			UserFrom: from, UserTo: to, CurrencyID: 1, Amount: dec("100.01"),
		})
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		src, _ := accounts.GetByUserAndCurrency(ctx, from, 1)
		dst, _ := accounts.GetByUserAndCurrency(ctx, to, 1)
		assert.True(t, src.Amount.Equal(dec("100")))
		assert.True(t, dst.Amount.Equal(dec("0")))
		assert.Len(t, transitions.transitions, before)
	})

	t.Run("missing destination", func(t *testing.T) {
		svc, accounts, _ := setup(t)

		_, err := svc.Transfer(ctx, models.TransferRequest{
			UserFrom: from, UserTo: uuid.New(), CurrencyID: 1, Amount: dec("10"),
		})
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.Contains(t, err.Error(), "destination")

		src, _ := accounts.GetByUserAndCurrency(ctx, from, 1)
		assert.True(t, src.Amount.Equal(dec("100")))
	})

	t.Run("missing source", func(t *testing.T) {
		svc, _, _ := setup(t)

		_, err := svc.Transfer(ctx, models.TransferRequest{
			UserFrom: uuid.New(), UserTo: to, CurrencyID: 1, Amount: dec("10"),
		})
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.Contains(t, err.Error(), "source")
	})

	t.Run("self transfer rejected", func(t *testing.T) {
		svc, _, _ := setup(t)

		_, err := svc.Transfer(ctx, models.TransferRequest{
			UserFrom: from, UserTo: from, CurrencyID: 1, Amount: dec("10"),
		})
		assert.ErrorIs(t, err, ErrSelfTransfer)
	})

	t.Run("invalid amount", func(t *testing.T) {
		svc, _, _ := setup(t)

		_, err := svc.Transfer(ctx, models.TransferRequest{
			UserFrom: from, UserTo: to, CurrencyID: 1, Amount: dec("-1"),
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestTransferCompensatesFailedSecondLeg(t *testing.T) {
	from := uuid.New()
	to := uuid.New()
	ctx := context.Background()

	accounts, transitions := newFakes()
	svc := newTestService(accounts, transitions, Config{MaxAttempts: 3})

	_, err := svc.Deposit(ctx, from, 1, dec("100"))
	require.NoError(t, err)
	dst, err := svc.Deposit(ctx, to, 1, dec("5"))
	require.NoError(t, err)

	// Destination account was created second, so its leg runs second.
	// Refusing its updates exhausts the credit leg's retries.
	accounts.failUpdate = func(id uint) bool { return id == dst.ID }

	_, err = svc.Transfer(ctx, models.TransferRequest{
		UserFrom: from, UserTo: to, CurrencyID: 1, Amount: dec("40"),
	})
	require.Error(t, err)

	accounts.failUpdate = nil
	src, _ := accounts.GetByUserAndCurrency(ctx, from, 1)
	assert.True(t, src.Amount.Equal(dec("100")), "debit must be compensated")

	var legs []models.Transition
	for _, tr := range transitions.transitions {
		if tr.Type == models.TransitionTypeTransfer {
			legs = append(legs, tr)
		}
	}
	require.Len(t, legs, 2, "debit and its reversal must both be logged")
	assert.True(t, legs[0].Amount.Add(legs[1].Amount).IsZero())

	dangling, err := transitions.GetDanglingTransfers(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, dangling, "a fully reverted transfer leaves nothing to reconcile")
}

func TestTransferLogsDanglingLegWhenCompensationFails(t *testing.T) {
	from := uuid.New()
	to := uuid.New()
	ctx := context.Background()

	accounts, transitions := newFakes()
	svc := newTestService(accounts, transitions, Config{MaxAttempts: 3})

	src, err := svc.Deposit(ctx, from, 1, dec("100"))
	require.NoError(t, err)
	dst, err := svc.Deposit(ctx, to, 1, dec("5"))
	require.NoError(t, err)

	// Let the debit leg through once, then refuse every update so both
	// the credit leg and the compensation fail.
	var srcUpdates int
	accounts.failUpdate = func(id uint) bool {
		if id == dst.ID {
			return true
		}
		srcUpdates++
		return srcUpdates > 1
	}

	_, err = svc.Transfer(ctx, models.TransferRequest{
		UserFrom: from, UserTo: to, CurrencyID: 1, Amount: dec("40"),
	})
	require.Error(t, err)

	accounts.failUpdate = nil
	current, _ := accounts.GetByID(ctx, src.ID)
	assert.True(t, current.Amount.Equal(dec("60")), "debit stays applied when compensation fails")

	dangling, err := transitions.GetDanglingTransfers(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, dangling, 1)
	assert.Equal(t, src.ID, dangling[0].AccountID)
	assert.True(t, dangling[0].Amount.Equal(dec("-40")))
}

func TestTransferFailedLogWriteCannotCreateMoney(t *testing.T) {
	from := uuid.New()
	to := uuid.New()
	ctx := context.Background()

	accounts, transitions := newFakes()
	svc := newTestService(accounts, transitions, Config{MaxAttempts: 3})

	_, err := svc.Deposit(ctx, from, 1, dec("100"))
	require.NoError(t, err)
	dst, err := svc.Deposit(ctx, to, 1, dec("5"))
	require.NoError(t, err)

	// The store refuses to persist the credit leg's log row. The credit
	// itself must roll back with it: no state may exist where both
	// balances moved but only one leg is logged, or a later sweep would
	// refund a debit whose credit already landed.
	transitions.failCreate = func(tr *models.Transition) bool {
		return tr.AccountID == dst.ID && tr.Type == models.TransitionTypeTransfer
	}

	_, err = svc.Transfer(ctx, models.TransferRequest{
		UserFrom: from, UserTo: to, CurrencyID: 1, Amount: dec("40"),
	})
	require.Error(t, err)
	transitions.failCreate = nil

	src, _ := accounts.GetByUserAndCurrency(ctx, from, 1)
	dstAcc, _ := accounts.GetByUserAndCurrency(ctx, to, 1)
	assert.True(t, src.Amount.Equal(dec("100")), "debit must be compensated, got %s", src.Amount)
	assert.True(t, dstAcc.Amount.Equal(dec("5")), "credit must not land, got %s", dstAcc.Amount)
	assert.True(t, src.Amount.Add(dstAcc.Amount).Equal(dec("105")), "money must be conserved")

	dangling, err := transitions.GetDanglingTransfers(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, dangling, "nothing may be left for the sweep to reverse")
}

func TestDepositFailedLogWriteLeavesBalance(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	accounts, transitions := newFakes()
	svc := newTestService(accounts, transitions, Config{})

	acc, err := svc.Deposit(ctx, userID, 1, dec("100"))
	require.NoError(t, err)

	transitions.failCreate = func(tr *models.Transition) bool {
		return tr.Type == models.TransitionTypeIncome
	}
	_, err = svc.Deposit(ctx, userID, 1, dec("50"))
	require.Error(t, err)
	transitions.failCreate = nil

	current, err := accounts.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, current.Amount.Equal(dec("100")), "balance may not diverge from the log")

	logged, err := svc.GetAccountTransitions(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, logged, 1)
}

func TestConcurrentDepositsConverge(t *testing.T) {
	const writers = 50
	userID := uuid.New()
	ctx := context.Background()

	accounts, transitions := newFakes()
	// High attempt ceiling: every failed CAS means another writer made
	// progress, so writers*attempts bounds the worst case.
	svc := newTestService(accounts, transitions, Config{MaxAttempts: 10 * writers})

	_, err := svc.Deposit(ctx, userID, 1, dec("0.01"))
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, userID, 1, dec("0.01"))
	require.NoError(t, err)

	amount := dec("3")
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Deposit(ctx, userID, 1, amount); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent deposit failed: %v", err)
	}

	acc, err := accounts.GetByUserAndCurrency(ctx, userID, 1)
	require.NoError(t, err)
	assert.True(t, acc.Amount.Equal(amount.Mul(decimal.NewFromInt(writers))),
		"no deposit may be lost, got %s", acc.Amount)

	logged, err := svc.GetAccountTransitions(ctx, acc.ID)
	require.NoError(t, err)
	deposits := 0
	for _, tr := range logged {
		if tr.Type == models.TransitionTypeIncome {
			deposits++
		}
	}
	assert.Equal(t, writers, deposits)
}

func TestConcurrentOppositeTransfers(t *testing.T) {
	userX := uuid.New()
	userY := uuid.New()
	ctx := context.Background()

	accounts, transitions := newFakes()
	svc := newTestService(accounts, transitions, Config{MaxAttempts: 100})

	_, err := svc.Deposit(ctx, userX, 1, dec("100"))
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, userY, 1, dec("100"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Transfer(ctx, models.TransferRequest{
			UserFrom: userX, UserTo: userY, CurrencyID: 1, Amount: dec("10"),
		})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.Transfer(ctx, models.TransferRequest{
			UserFrom: userY, UserTo: userX, CurrencyID: 1, Amount: dec("25"),
		})
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	x, _ := accounts.GetByUserAndCurrency(ctx, userX, 1)
	y, _ := accounts.GetByUserAndCurrency(ctx, userY, 1)
	assert.True(t, x.Amount.Equal(dec("115")), "got %s", x.Amount)
	assert.True(t, y.Amount.Equal(dec("85")), "got %s", y.Amount)
	assert.True(t, x.Amount.Add(y.Amount).Equal(dec("200")), "money must be conserved")
}

func TestCreateAccount(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	accounts, transitions := newFakes()
	svc := newTestService(accounts, transitions, Config{})

	acc, err := svc.CreateAccount(ctx, userID, 1, dec("25"))
	require.NoError(t, err)
	assert.True(t, acc.Amount.Equal(dec("25")))

	logged, err := svc.GetAccountTransitions(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, models.TransitionTypeIncome, logged[0].Type)

	_, err = svc.CreateAccount(ctx, userID, 1, decimal.Zero)
	assert.ErrorIs(t, err, ErrDuplicateAccount)

	_, err = svc.CreateAccount(ctx, userID, 2, dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAccountLifecycle(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	ctx := context.Background()

	accounts, transitions := newFakes()
	svc := newTestService(accounts, transitions, Config{})

	a, err := svc.CreateAccount(ctx, userA, 1, dec("100.00"))
	require.NoError(t, err)
	b, err := svc.CreateAccount(ctx, userB, 1, dec("0.00"))
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, userA, 1, dec("150.00"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	cur, _ := accounts.GetByID(ctx, a.ID)
	assert.True(t, cur.Amount.Equal(dec("100.00")))

	cur, err = svc.Deposit(ctx, userA, 1, dec("50.00"))
	require.NoError(t, err)
	assert.True(t, cur.Amount.Equal(dec("150.00")))

	receipt, err := svc.Transfer(ctx, models.TransferRequest{
		UserFrom: userA, UserTo: userB, CurrencyID: 1, Amount: dec("100.00"),
	})
	require.NoError(t, err)

	cur, _ = accounts.GetByID(ctx, a.ID)
	assert.True(t, cur.Amount.Equal(dec("50.00")))
	cur, _ = accounts.GetByID(ctx, b.ID)
	assert.True(t, cur.Amount.Equal(dec("100.00")))

	legs, err := svc.GetTransaction(ctx, receipt.TransactionID)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.True(t, legs[0].Amount.Add(legs[1].Amount).IsZero())
}
