package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/nmehta6/churnbank/internal/apperrors"
)

// lockTable provides per-account mutual exclusion with a bounded wait.
//
// Every processor operation acquires the locks for all accounts it touches,
// in ascending account-id order, before validating or mutating anything.
// The fixed ordering makes lock acquisition independent of call direction so
// two opposite transfers between the same pair of accounts cannot deadlock.
// A timed-out acquisition releases everything already held and surfaces as
// apperrors.ErrBusy, distinct from business-rule failures.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]chan struct{})}
}

// lockFor returns the channel acting as the mutex for one account id,
// creating it on first use. Entries are never removed; the set of active
// accounts is bounded and small relative to the table's cost.
func (t *lockTable) lockFor(id string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[id] = ch
	}
	return ch
}

// Acquire locks every given account id, sorted ascending, waiting at most
// timeout for each. It returns a release function that unlocks everything in
// reverse order. On timeout or context cancellation, locks already held are
// released and no state has changed.
func (t *lockTable) Acquire(ctx context.Context, accountIDs []string, timeout time.Duration) (func(), error) {
	ids := make([]string, len(accountIDs))
	copy(ids, accountIDs)
	sort.Strings(ids)
	ids = slices.Compact(ids) // a duplicate id must not be acquired twice

	held := make([]chan struct{}, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for _, id := range ids {
		ch := t.lockFor(id)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-timer.C:
			release()
			return nil, fmt.Errorf("%w: lock wait exceeded %s for account %s", apperrors.ErrBusy, timeout, id)
		case <-ctx.Done():
			release()
			return nil, fmt.Errorf("%w: %v", apperrors.ErrBusy, ctx.Err())
		}
	}

	return release, nil
}
