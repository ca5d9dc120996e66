package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

func TestChecker_Changed(t *testing.T) {
	item := testItem(1, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	probe := newMockProbe().set(1, domain.OutcomeRemoved)
	checker := newTestEngine(store, probe)

	result := checker.Check(context.Background(), item.Key)

	assert.Equal(t, domain.ResultChanged, result.Kind)
	assert.Equal(t, domain.StatusLive, result.From)
	assert.Equal(t, domain.StatusRemoved, result.To)
	assert.Equal(t, domain.OutcomeRemoved, result.Outcome)
	assert.Equal(t, "App 1", result.ItemName)
	assert.True(t, result.IsBan())
	require.Len(t, probe.calls, 1)
	assert.Equal(t, "https://apps.example.test/us/app/app-1/id1", probe.calls[0])
}

func TestChecker_ProbeTimeoutIsUnchanged(t *testing.T) {
	item := testItem(2, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	probe := newMockProbe().set(2, domain.OutcomeUnavailable)
	checker := newTestEngine(store, probe)

	result := checker.Check(context.Background(), item.Key)

	assert.Equal(t, domain.ResultUnchanged, result.Kind)
	assert.Equal(t, domain.OutcomeUnavailable, result.Outcome)
	got := store.item(item.Key)
	assert.Equal(t, domain.StatusLive, got.Status)
	assert.NotNil(t, got.LastCheckedAt)
	assert.Empty(t, store.recordsFor(item.Key))
}

func TestChecker_MissingItemSkipped(t *testing.T) {
	store := newMockItemStore()
	probe := newMockProbe()
	checker := newTestEngine(store, probe)

	result := checker.Check(context.Background(), domain.NewItemKey(9, "us"))

	assert.Equal(t, domain.ResultSkipped, result.Kind)
	assert.ErrorIs(t, result.Err, domain.ErrNotFound)
	assert.True(t, result.IsError())
	assert.Zero(t, probe.callCount())
}

func TestChecker_NoCheckURLSkipped(t *testing.T) {
	item := testItem(3, domain.StatusLive, domain.OwnershipSelf)
	item.Key = domain.ItemKey{TrackID: 3}
	store := newMockItemStore(item)
	probe := newMockProbe()
	checker := newTestEngine(store, probe)

	result := checker.Check(context.Background(), item.Key)

	assert.Equal(t, domain.ResultSkipped, result.Kind)
	assert.ErrorIs(t, result.Err, domain.ErrNoCheckURL)
	assert.Zero(t, probe.callCount())
}

func TestChecker_CommitFailure(t *testing.T) {
	item := testItem(4, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	store.transactErrs[item.Key] = errors.New("locked")
	checker := newTestEngine(store, newMockProbe())

	result := checker.Check(context.Background(), item.Key)

	assert.Equal(t, domain.ResultFailed, result.Kind)
	assert.ErrorIs(t, result.Err, domain.ErrCommitFailed)
}

func TestChecker_CancelledBeforeProbe(t *testing.T) {
	item := testItem(5, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	probe := newMockProbe()
	checker := newTestEngine(store, probe)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := checker.Check(ctx, item.Key)

	assert.Equal(t, domain.ResultCancelled, result.Kind)
	assert.Zero(t, probe.callCount())
	assert.Zero(t, store.commits())
}

func TestChecker_CancelledDuringProbeDiscardsOutcome(t *testing.T) {
	item := testItem(6, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	probe := newMockProbe().set(6, domain.OutcomeRemoved)
	checker := newTestEngine(store, probe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	probe.hook = func(string) { cancel() }

	result := checker.Check(ctx, item.Key)

	assert.Equal(t, domain.ResultCancelled, result.Kind)
	assert.Equal(t, domain.OutcomeRemoved, result.Outcome)
	assert.Equal(t, 1, probe.callCount())
	assert.Zero(t, store.commits())
	assert.Equal(t, domain.StatusLive, store.item(item.Key).Status)
}

func TestChecker_SerializesSameItem(t *testing.T) {
	item := testItem(7, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	probe := newMockProbe()
	checker := newTestEngine(store, probe)

	var inFlight, maxInFlight int32
	probe.hook = func(string) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxInFlight)
			if n <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checker.Check(context.Background(), item.Key)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	assert.Equal(t, 5, probe.callCount())
	assert.Empty(t, checker.locks.locks)
}

func TestChecker_LockWaitHonoursContext(t *testing.T) {
	item := testItem(8, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	probe := newMockProbe()
	checker := newTestEngine(store, probe)

	unlock, err := checker.locks.lock(context.Background(), item.Key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := checker.Check(ctx, item.Key)

	assert.Equal(t, domain.ResultCancelled, result.Kind)
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, probe.callCount())
	assert.Zero(t, store.commits())

	unlock()
	assert.Empty(t, checker.locks.locks)

	result = checker.Check(context.Background(), item.Key)
	assert.Equal(t, domain.ResultUnchanged, result.Kind)
}
