package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

func newTestItemService(store *mockItemStore, catalog *mockCatalog) *ItemService {
	s := NewItemService(store, catalog, "")
	s.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestItemService_Add(t *testing.T) {
	store := newMockItemStore(testItem(111, domain.StatusLive, domain.OwnershipSelf))
	catalog := &mockCatalog{entries: map[int64]domain.CatalogEntry{
		284882215: {TrackID: 284882215, Name: "Facebook", Version: "450.0"},
		389801252: {TrackID: 389801252, Name: "Instagram"},
	}}
	s := newTestItemService(store, catalog)

	result, err := s.Add(context.Background(), []string{
		"https://apps.apple.com/us/app/facebook/id284882215",
		"https://apps.apple.com/gb/app/instagram/id389801252",
		"id284882215",
		"111",
		"not a link",
		"999",
	}, domain.OwnershipSelf)
	require.NoError(t, err)

	require.Len(t, result.Added, 2)
	assert.Equal(t, domain.NewItemKey(284882215, "us"), result.Added[0].Key)
	assert.Equal(t, "Facebook", result.Added[0].Name)
	assert.Equal(t, domain.StatusLive, result.Added[0].Status)
	assert.Equal(t, domain.OwnershipSelf, result.Added[0].Ownership)
	assert.Equal(t, domain.NewItemKey(389801252, "gb"), result.Added[1].Key)
	assert.Equal(t, "N/A", result.Added[1].Version)

	assert.Equal(t, []domain.ItemKey{domain.NewItemKey(111, "us")}, result.Existing)

	require.Len(t, result.Failed, 2)
	assert.ErrorIs(t, result.Failed["not a link"], domain.ErrInvalidInput)
	assert.ErrorIs(t, result.Failed["999"], domain.ErrNotFound)

	got, err := store.Get(context.Background(), domain.NewItemKey(389801252, "gb"))
	require.NoError(t, err)
	assert.Equal(t, "Instagram", got.Name)
}

func TestItemService_Add_NoRefs(t *testing.T) {
	s := newTestItemService(newMockItemStore(), &mockCatalog{})

	_, err := s.Add(context.Background(), nil, domain.OwnershipSelf)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestItemService_Add_SaveError(t *testing.T) {
	store := newMockItemStore()
	store.saveErr = errors.New("readonly")
	catalog := &mockCatalog{entries: map[int64]domain.CatalogEntry{5: {Name: "Five"}}}
	s := newTestItemService(store, catalog)

	result, err := s.Add(context.Background(), []string{"5"}, domain.OwnershipCompetitor)
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Contains(t, result.Failed["5"].Error(), "readonly")
}

func TestItemService_RemoveAndHistory(t *testing.T) {
	item := testItem(1, domain.StatusLive, domain.OwnershipSelf)
	store := newMockItemStore(item)
	s := newTestItemService(store, &mockCatalog{})
	ctx := context.Background()

	c := NewTransitionCommitter(store)
	_, err := c.Commit(ctx, item.Key, domain.OutcomeRemoved)
	require.NoError(t, err)
	_, err = c.Commit(ctx, item.Key, domain.OutcomeLive)
	require.NoError(t, err)

	history, err := s.History(ctx, item.Key, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "live", history[0].NewValue)
	assert.Equal(t, "removed", history[1].NewValue)

	require.NoError(t, s.Remove(ctx, item.Key))
	_, err = s.Get(ctx, item.Key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.Remove(ctx, item.Key), domain.ErrNotFound)
	_, err = s.History(ctx, item.Key, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemService_SetOwnership(t *testing.T) {
	item := testItem(1, domain.StatusRemoved, domain.OwnershipCompetitor)
	store := newMockItemStore(item)
	s := newTestItemService(store, &mockCatalog{})
	ctx := context.Background()

	require.NoError(t, s.SetOwnership(ctx, item.Key, domain.OwnershipSelf))

	got := store.item(item.Key)
	assert.Equal(t, domain.OwnershipSelf, got.Ownership)
	assert.Equal(t, domain.StatusRemoved, got.Status)
	assert.Equal(t, item.BanDate, got.BanDate)
	assert.Empty(t, store.recordsFor(item.Key))

	assert.ErrorIs(t, s.SetOwnership(ctx, item.Key, "friend"), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.SetOwnership(ctx, domain.NewItemKey(2, "us"), domain.OwnershipSelf), domain.ErrNotFound)
}

func TestItemService_List(t *testing.T) {
	store := newMockItemStore(
		testItem(1, domain.StatusLive, domain.OwnershipSelf),
		testItem(2, domain.StatusRemoved, domain.OwnershipSelf),
		testItem(3, domain.StatusLive, domain.OwnershipCompetitor),
	)
	s := newTestItemService(store, &mockCatalog{})

	items, err := s.List(context.Background(), domain.ItemFilter{Ownership: domain.OwnershipSelf})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = s.List(context.Background(), domain.ItemFilter{Status: domain.StatusLive})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
