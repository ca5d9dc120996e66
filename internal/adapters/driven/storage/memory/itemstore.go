package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
)

// Ensure ItemStore implements the interface.
var _ driven.ItemStore = (*ItemStore)(nil)

// ItemStore is an in-memory implementation of driven.ItemStore.
// Transact works on a copy of the item and swaps it in on success.
type ItemStore struct {
	mu      sync.RWMutex
	items   map[domain.ItemKey]domain.TrackedItem
	records map[domain.ItemKey][]domain.TransitionRecord
}

// NewItemStore creates a new in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{
		items:   make(map[domain.ItemKey]domain.TrackedItem),
		records: make(map[domain.ItemKey][]domain.TransitionRecord),
	}
}

// Get retrieves an item by key.
func (s *ItemStore) Get(_ context.Context, key domain.ItemKey) (*domain.TrackedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

// List returns items matching the filter, ordered by key.
func (s *ItemStore) List(_ context.Context, filter domain.ItemFilter) ([]domain.TrackedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.TrackedItem, 0, len(s.items))
	for _, item := range s.items {
		if filter.Matches(&item) {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Key, result[j].Key
		if a.TrackID != b.TrackID {
			return a.TrackID < b.TrackID
		}
		return a.Country < b.Country
	})
	return result, nil
}

// Save creates or replaces an item.
func (s *ItemStore) Save(_ context.Context, item domain.TrackedItem) error {
	if item.Key.IsZero() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.Key] = item
	return nil
}

// Delete removes an item and its history.
func (s *ItemStore) Delete(_ context.Context, key domain.ItemKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, key)
	delete(s.records, key)
	return nil
}

// Transact runs fn on a copy of the item under the store's write lock.
func (s *ItemStore) Transact(_ context.Context, key domain.ItemKey, fn func(tx driven.ItemTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		return domain.ErrNotFound
	}

	tx := &itemTx{item: item}
	if err := fn(tx); err != nil {
		return err
	}

	tx.item.Key = key
	s.items[key] = tx.item
	s.records[key] = append(s.records[key], tx.records...)
	return nil
}

// Transitions returns the item's records, most recent first.
func (s *ItemStore) Transitions(_ context.Context, key domain.ItemKey, limit int) ([]domain.TransitionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[key]
	n := len(recs)
	if limit > 0 && n > limit {
		n = limit
	}
	result := make([]domain.TransitionRecord, 0, n)
	for i := len(recs) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, recs[i])
	}
	return result, nil
}

type itemTx struct {
	item    domain.TrackedItem
	records []domain.TransitionRecord
}

func (t *itemTx) Item() *domain.TrackedItem { return &t.item }

func (t *itemTx) Append(record domain.TransitionRecord) error {
	t.records = append(t.records, record)
	return nil
}
