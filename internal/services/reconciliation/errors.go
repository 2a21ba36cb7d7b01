package reconciliation

import "errors"

// errRetryLater marks a dangling leg the current sweep could not resolve;
// it stays in the log for the next run.
var errRetryLater = errors.New("leg not resolvable yet, will retry on next sweep")
