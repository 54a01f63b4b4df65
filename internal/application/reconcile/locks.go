package reconcile

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadyRunning is returned when a reconciliation is already in flight
// for the same account. Callers should surface it as a conflict, not retry.
var ErrAlreadyRunning = errors.New("reconciliation already running for this account")

// LockRegistry serializes reconciliation runs per (budget, account) pair.
// A second acquisition for the same key fails fast while the first is in
// flight; different accounts proceed independently. The registry is meant
// to be constructed once and injected into whatever executes runs.
//
// Entries are retained for the registry's lifetime, one mutex per account
// pair ever reconciled; they are never removed, so a stable mutex identity
// backs repeated runs against the same account. The map stays bounded by
// the number of distinct accounts.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.Mutex)}
}

// Acquire takes the lock for one account. On success it returns a release
// function the caller must defer so the lock is freed on every exit path.
func (r *LockRegistry) Acquire(budgetID, accountID string) (func(), error) {
	key := fmt.Sprintf("%s/%s", budgetID, accountID)

	r.mu.Lock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	r.mu.Unlock()

	if !lock.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, key)
	}
	return lock.Unlock, nil
}
