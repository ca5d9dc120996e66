package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

func TestSingleItemUpdater_Refresh(t *testing.T) {
	item := testItem(1, domain.StatusRemoved, domain.OwnershipCompetitor)
	store := newMockItemStore(item)
	u := NewSingleItemUpdater(newTestEngine(store, newMockProbe()))

	result, err := u.Refresh(context.Background(), item.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultChanged, result.Kind)
	assert.True(t, result.IsRestore())
	assert.Nil(t, store.item(item.Key).BanDate)
}

func TestSingleItemUpdater_MissingItem(t *testing.T) {
	store := newMockItemStore()
	u := NewSingleItemUpdater(newTestEngine(store, newMockProbe()))

	result, err := u.Refresh(context.Background(), domain.NewItemKey(5, "gb"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.ResultSkipped, result.Kind)
}

func TestSingleItemUpdater_Cancelled(t *testing.T) {
	item := testItem(1, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	u := NewSingleItemUpdater(newTestEngine(store, newMockProbe()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := u.Refresh(ctx, item.Key)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.ResultCancelled, result.Kind)
}

func TestSingleItemUpdater_Guard(t *testing.T) {
	item := testItem(1, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	probe := newMockProbe()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	probe.hook = func(string) {
		once.Do(func() { close(entered) })
		<-release
	}

	u := NewSingleItemUpdater(newTestEngine(store, probe))

	done := make(chan error, 1)
	go func() {
		_, err := u.Refresh(context.Background(), item.Key)
		done <- err
	}()
	<-entered

	_, err := u.Refresh(context.Background(), item.Key)
	assert.ErrorIs(t, err, domain.ErrRefreshInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestSingleItemUpdater_IndependentOfBulkRun(t *testing.T) {
	bulkItem := testItem(1, domain.StatusLive, domain.OwnershipSelf)
	singleItem := testItem(2, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(bulkItem, singleItem)
	probe := newMockProbe().set(2, domain.OutcomeRemoved)

	entered := make(chan struct{})
	release := make(chan struct{})
	probe.hook = func(url string) {
		if trackIDFromURL(url) == 1 {
			close(entered)
			<-release
		}
	}

	checker := newTestEngine(store, probe)
	bulk := NewRefreshOrchestrator(checker, store, 1)
	single := NewSingleItemUpdater(checker)

	ch, err := bulk.Start(context.Background(), []domain.ItemKey{bulkItem.Key})
	require.NoError(t, err)
	<-entered

	result, err := single.Refresh(context.Background(), singleItem.Key)
	require.NoError(t, err)
	assert.True(t, result.IsBan())

	close(release)
	summary := waitSummary(t, ch)
	assert.Equal(t, 1, summary.Checked)
}
