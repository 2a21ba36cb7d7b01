/*
Package account implements the balance mutation core.

All serialization of conflicting writers is pushed down to the account
store's conditional update: a write succeeds only while the row still
holds the balance the writer read. The service holds no locks and no
in-process state between requests; a failed conditional update re-runs
the read-compute-write sequence up to Config.MaxAttempts times.

Operations touching two accounts (transfers) always apply their updates
in ascending account-ID order, independent of which account is the
source. Two concurrent transfers over the same account pair may retry
against each other but cannot deadlock or livelock permanently.

Every applied balance change is recorded in the append-only transition
log, committed by the store in the same transaction as the balance
update, so a log row exists exactly when its balance change took effect.
The two legs of a transfer share one transaction-group ID and sum to
zero; a transfer that could only be half applied (its second leg stuck,
or the process died between the legs) leaves a single-leg group behind,
which the reconciliation service detects and reverses.

Usage:

	svc := account.NewService(accountRepo, transitionRepo, cache, account.Config{}, nil)

	acc, err := svc.Deposit(ctx, userID, currencyID, amount)
	acc, err = svc.Withdraw(ctx, userID, currencyID, amount)
	receipt, err := svc.Transfer(ctx, models.TransferRequest{
	    UserFrom:   from,
	    UserTo:     to,
	    CurrencyID: currencyID,
	    Amount:     amount,
	})

Error Handling:

The service returns specific errors for different scenarios:
  - ErrInvalidAmount: non-positive amount
  - ErrAccountNotFound: no account for the id or (user, currency) pair
  - ErrInsufficientFunds: withdrawal or debit below zero
  - ErrTooMuchContention: optimistic retries exhausted, caller may retry
  - ErrDuplicateAccount: (user, currency) pair already exists
*/
package account
