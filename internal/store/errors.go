package store

import "errors"

// ErrStoreUnavailable wraps connectivity-class failures from the backing
// database. Callers decide the policy: the sweeper logs and retries on its
// next tick, the mutator surfaces the failure to its caller.
var ErrStoreUnavailable = errors.New("store unavailable")
