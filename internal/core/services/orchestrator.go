package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// Ensure RefreshOrchestrator implements the interface.
var _ driving.BulkRefresher = (*RefreshOrchestrator)(nil)

// RefreshOrchestrator runs bulk refreshes through a fixed-size worker pool.
//
// Each key becomes one task that probes and commits through the shared
// Checker. Tasks report to a single aggregating goroutine, which is the only
// writer of the run's progress and counters. With one worker the run is
// strictly sequential; the worker count is a tunable, not a code path.
type RefreshOrchestrator struct {
	checker *Checker
	store   driven.ItemStore
	workers int
	now     func() time.Time

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	progress domain.RefreshProgress
	last     *domain.CycleSummary
}

// NewRefreshOrchestrator creates an orchestrator with maxConcurrency workers.
// Values below one are raised to one.
func NewRefreshOrchestrator(checker *Checker, store driven.ItemStore, maxConcurrency int) *RefreshOrchestrator {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &RefreshOrchestrator{
		checker: checker,
		store:   store,
		workers: maxConcurrency,
		now:     time.Now,
	}
}

// RefreshAll starts a run over every tracked item.
func (o *RefreshOrchestrator) RefreshAll(ctx context.Context) (<-chan domain.CycleSummary, error) {
	items, err := o.store.List(ctx, domain.ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	keys := make([]domain.ItemKey, len(items))
	for i := range items {
		keys[i] = items[i].Key
	}
	return o.Start(ctx, keys)
}

// Start begins an asynchronous run over keys.
//
// The returned channel receives exactly one summary once every task has
// reported, then closes. Cancelling ctx has the same effect as Cancel.
// Returns domain.ErrRefreshInProgress without starting anything if a run is
// already in flight.
func (o *RefreshOrchestrator) Start(ctx context.Context, keys []domain.ItemKey) (<-chan domain.CycleSummary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil, domain.ErrRefreshInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	summary := domain.CycleSummary{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		Total:     len(keys),
	}

	o.running = true
	o.cancel = cancel
	o.progress = domain.RefreshProgress{
		RunID:   summary.RunID,
		Running: true,
		Total:   summary.Total,
	}
	if summary.Total == 0 {
		o.progress.Fraction = 1
	}

	logger.Section("Refresh")
	logger.Info("refresh %s: %d item(s), %d worker(s)", summary.RunID, len(keys), o.workers)

	out := make(chan domain.CycleSummary, 1)
	go o.run(runCtx, cancel, keys, summary, out)

	return out, nil
}

// Cancel drops outstanding tasks of the current run. A probe already in
// flight is allowed to finish but its outcome is not committed.
func (o *RefreshOrchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		logger.Info("refresh %s: cancel requested", o.progress.RunID)
		o.cancel()
	}
}

// Progress returns the live progress of the current or last run.
func (o *RefreshOrchestrator) Progress() domain.RefreshProgress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// LastSummary returns the summary of the last completed run, or nil.
func (o *RefreshOrchestrator) LastSummary() *domain.CycleSummary {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.last == nil {
		return nil
	}
	summary := *o.last
	return &summary
}

// run feeds the worker pool and aggregates results until every task reported.
func (o *RefreshOrchestrator) run(
	ctx context.Context,
	cancel context.CancelFunc,
	keys []domain.ItemKey,
	summary domain.CycleSummary,
	out chan<- domain.CycleSummary,
) {
	defer cancel()

	jobs := make(chan domain.ItemKey, len(keys))
	results := make(chan domain.CheckResult)

	workers := o.workers
	if workers > len(keys) {
		workers = len(keys)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				results <- o.safeCheck(ctx, key)
			}
		}()
	}

	for _, key := range keys {
		jobs <- key
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		summary.Record(result)
		o.publish(&summary)
	}

	summary.FinishedAt = o.now()
	logger.Info("refresh %s: checked %d/%d, updated %d, removed %d, restored %d, errors %d, cancelled %d",
		summary.RunID, summary.Checked, summary.Total, summary.Updated,
		summary.Removed, summary.Restored, summary.Errors, summary.Cancelled)

	o.mu.Lock()
	final := summary
	o.last = &final
	o.running = false
	o.cancel = nil
	o.progress.Running = false
	o.mu.Unlock()

	out <- summary
	close(out)
}

// publish copies the aggregate into the progress view.
func (o *RefreshOrchestrator) publish(summary *domain.CycleSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.progress.Checked = summary.Checked
	o.progress.Total = summary.Total
	o.progress.Fraction = summary.Progress()
}

// safeCheck runs one task with panic recovery.
// A panicking task is logged with a correlation ID and reported as failed.
func (o *RefreshOrchestrator) safeCheck(ctx context.Context, key domain.ItemKey) (result domain.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("refresh task panic for %s (correlation_id: %s): %v\n%s",
				key, correlationID, r, debug.Stack())

			result = domain.CheckResult{
				Key:  key,
				Kind: domain.ResultFailed,
				Err:  fmt.Errorf("task panic (correlation_id: %s)", correlationID),
			}
		}
	}()
	return o.checker.Check(ctx, key)
}
