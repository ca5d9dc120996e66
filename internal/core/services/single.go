package services

import (
	"context"
	"sync"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
)

// Ensure SingleItemUpdater implements the interface.
var _ driving.SingleRefresher = (*SingleItemUpdater)(nil)

// SingleItemUpdater checks one item on demand. Its guard is independent of
// the bulk orchestrator, so a single refresh may run during a bulk run.
type SingleItemUpdater struct {
	checker *Checker

	mu   sync.Mutex
	busy bool
}

// NewSingleItemUpdater creates an updater over checker.
func NewSingleItemUpdater(checker *Checker) *SingleItemUpdater {
	return &SingleItemUpdater{checker: checker}
}

// Refresh probes and commits the item identified by key.
//
// Skipped and failed checks return their cause alongside the result.
// A check abandoned because ctx ended returns ctx.Err().
func (u *SingleItemUpdater) Refresh(ctx context.Context, key domain.ItemKey) (domain.CheckResult, error) {
	u.mu.Lock()
	if u.busy {
		u.mu.Unlock()
		return domain.CheckResult{Key: key}, domain.ErrRefreshInProgress
	}
	u.busy = true
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.busy = false
		u.mu.Unlock()
	}()

	result := u.checker.Check(ctx, key)
	switch {
	case result.Kind == domain.ResultCancelled:
		return result, ctx.Err()
	case result.IsError():
		return result, result.Err
	}
	return result, nil
}
