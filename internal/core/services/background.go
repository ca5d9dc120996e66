package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// Ensure BackgroundRefreshCycle implements the interface.
var _ driving.BackgroundRefresher = (*BackgroundRefreshCycle)(nil)

// BackgroundRefreshCycle is the unattended refresh entry point.
//
// The caller grants an execution window through ctx; its cancellation is
// the expiration signal. Only self-owned live items are checked, one at a
// time. Commits made before expiration persist.
type BackgroundRefreshCycle struct {
	checker   *Checker
	store     driven.ItemStore
	scheduler driven.RefreshScheduler
	notifier  driven.Notifier
	interval  time.Duration
	now       func() time.Time
}

// NewBackgroundRefreshCycle creates a cycle that asks scheduler for the next
// invocation interval from now at the start of every run. notifier may be nil.
func NewBackgroundRefreshCycle(
	checker *Checker,
	store driven.ItemStore,
	scheduler driven.RefreshScheduler,
	notifier driven.Notifier,
	interval time.Duration,
) *BackgroundRefreshCycle {
	if interval <= 0 {
		interval = domain.DefaultBackgroundInterval
	}
	return &BackgroundRefreshCycle{
		checker:   checker,
		store:     store,
		scheduler: scheduler,
		notifier:  notifier,
		interval:  interval,
		now:       time.Now,
	}
}

// Run checks eligible items and reports whether the cycle completed.
func (b *BackgroundRefreshCycle) Run(ctx context.Context) bool {
	_, err := b.RunCycle(ctx)
	return err == nil
}

// RunCycle checks eligible items sequentially.
//
// The next invocation is requested before any work. Expiration before an item, or while
// its probe was in flight, stops the cycle and returns an error wrapping
// ctx.Err(). A failure to list the worklist is also returned. Item-level
// errors are counted in the summary and do not fail the cycle.
func (b *BackgroundRefreshCycle) RunCycle(ctx context.Context) (domain.CycleSummary, error) {
	logger.Section("Background Refresh")

	summary := domain.CycleSummary{
		RunID:     uuid.NewString(),
		StartedAt: b.now(),
	}

	if err := b.scheduler.ScheduleNext(context.WithoutCancel(ctx), b.interval); err != nil {
		logger.Warn("background refresh: failed to schedule next run: %v", err)
	} else {
		logger.Debug("background refresh: next run in %s", b.interval)
	}

	items, err := b.store.List(ctx, domain.BackgroundFilter())
	if err != nil {
		summary.FinishedAt = b.now()
		return summary, fmt.Errorf("list background items: %w", err)
	}

	summary.Total = len(items)
	if len(items) == 0 {
		logger.Info("background refresh: nothing to check")
		summary.FinishedAt = b.now()
		return summary, nil
	}

	for i := range items {
		item := &items[i]

		if ctx.Err() != nil {
			b.dropRemaining(&summary, items[i:])
			logger.Warn("background refresh: expired after %d of %d items", i, len(items))
			summary.FinishedAt = b.now()
			return summary, fmt.Errorf("background refresh expired: %w", ctx.Err())
		}

		result := b.checker.Check(ctx, item.Key)
		if result.Kind == domain.ResultCancelled {
			b.dropRemaining(&summary, items[i:])
			logger.Warn("background refresh: expired while checking %s", item.Key)
			summary.FinishedAt = b.now()
			return summary, fmt.Errorf("background refresh expired: %w", ctx.Err())
		}

		summary.Record(result)
		if result.Kind == domain.ResultChanged && result.To == domain.StatusRemoved {
			b.notify(ctx, result.ItemName)
		}
	}

	summary.FinishedAt = b.now()
	logger.Info("background refresh: checked %d, removed %d, errors %d",
		summary.Checked, summary.Removed, summary.Errors)
	return summary, nil
}

// dropRemaining records the items a cycle never got to as cancelled.
func (b *BackgroundRefreshCycle) dropRemaining(summary *domain.CycleSummary, remaining []domain.TrackedItem) {
	for i := range remaining {
		summary.Record(domain.CheckResult{Key: remaining[i].Key, Kind: domain.ResultCancelled})
	}
}

// notify delivers a ban notification. Failures are logged and swallowed.
func (b *BackgroundRefreshCycle) notify(ctx context.Context, name string) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.Notify(context.WithoutCancel(ctx), name); err != nil {
		logger.Warn("background refresh: notify %q: %v", name, err)
	}
}
