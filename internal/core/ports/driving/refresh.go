package driving

import (
	"context"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// BulkRefresher checks many items through a concurrency-limited queue.
type BulkRefresher interface {
	// Start begins an asynchronous run over keys. The returned channel yields
	// exactly one summary when every task has reported, then closes.
	// Returns domain.ErrRefreshInProgress if a run is already in flight.
	Start(ctx context.Context, keys []domain.ItemKey) (<-chan domain.CycleSummary, error)

	// RefreshAll starts a run over every tracked item.
	RefreshAll(ctx context.Context) (<-chan domain.CycleSummary, error)

	// Cancel drops outstanding tasks of the current run. No-op when idle.
	Cancel()

	// Progress returns the live progress of the current or last run.
	Progress() domain.RefreshProgress

	// LastSummary returns the summary of the last completed run, if any.
	LastSummary() *domain.CycleSummary
}

// SingleRefresher checks exactly one item, independent of bulk runs.
type SingleRefresher interface {
	// Refresh probes and commits one item.
	// Returns domain.ErrRefreshInProgress if this updater is already busy.
	Refresh(ctx context.Context, key domain.ItemKey) (domain.CheckResult, error)
}

// BackgroundRefresher is the unattended entry point.
type BackgroundRefresher interface {
	// Run checks eligible items sequentially until done or until ctx expires.
	// Returns false when the run was cut short or could not list its worklist.
	Run(ctx context.Context) bool

	// RunCycle is Run with the cycle's summary. The error is non-nil exactly
	// when Run would report false.
	RunCycle(ctx context.Context) (domain.CycleSummary, error)
}
