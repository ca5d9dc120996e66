package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
)

// --- Mock implementations for engine testing ---

// mockItemStore implements driven.ItemStore with copy-on-write transactions.
type mockItemStore struct {
	mu            sync.Mutex
	items         map[domain.ItemKey]domain.TrackedItem
	records       map[domain.ItemKey][]domain.TransitionRecord
	getErr        error
	listErr       error
	saveErr       error
	transactErrs  map[domain.ItemKey]error
	transactCalls int
	afterCommit   func(key domain.ItemKey, commits int)
}

func newMockItemStore(items ...domain.TrackedItem) *mockItemStore {
	m := &mockItemStore{
		items:        make(map[domain.ItemKey]domain.TrackedItem),
		records:      make(map[domain.ItemKey][]domain.TransitionRecord),
		transactErrs: make(map[domain.ItemKey]error),
	}
	for _, item := range items {
		m.items[item.Key] = item
	}
	return m
}

func (m *mockItemStore) Get(_ context.Context, key domain.ItemKey) (*domain.TrackedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	item, ok := m.items[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

func (m *mockItemStore) List(_ context.Context, filter domain.ItemFilter) ([]domain.TrackedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var items []domain.TrackedItem
	for _, item := range m.items {
		if filter.Matches(&item) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key.TrackID < items[j].Key.TrackID
	})
	return items, nil
}

func (m *mockItemStore) Save(_ context.Context, item domain.TrackedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[item.Key] = item
	return nil
}

func (m *mockItemStore) Delete(_ context.Context, key domain.ItemKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, key)
	delete(m.records, key)
	return nil
}

func (m *mockItemStore) Transact(_ context.Context, key domain.ItemKey, fn func(tx driven.ItemTx) error) error {
	m.mu.Lock()
	item, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}

	tx := &mockItemTx{item: item}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	if err := m.transactErrs[key]; err != nil {
		m.mu.Unlock()
		return err
	}
	m.items[key] = tx.item
	m.records[key] = append(m.records[key], tx.records...)
	m.transactCalls++
	commits := m.transactCalls
	hook := m.afterCommit
	m.mu.Unlock()

	if hook != nil {
		hook(key, commits)
	}
	return nil
}

func (m *mockItemStore) Transitions(_ context.Context, key domain.ItemKey, limit int) ([]domain.TransitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.records[key]
	out := make([]domain.TransitionRecord, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		out = append(out, recs[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockItemStore) item(key domain.ItemKey) domain.TrackedItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[key]
}

func (m *mockItemStore) recordsFor(key domain.ItemKey) []domain.TransitionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TransitionRecord(nil), m.records[key]...)
}

func (m *mockItemStore) commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactCalls
}

type mockItemTx struct {
	item    domain.TrackedItem
	records []domain.TransitionRecord
}

func (t *mockItemTx) Item() *domain.TrackedItem { return &t.item }

func (t *mockItemTx) Append(record domain.TransitionRecord) error {
	t.records = append(t.records, record)
	return nil
}

// mockProbe implements driven.StatusProbe. Outcomes are chosen per track id.
type mockProbe struct {
	mu       sync.Mutex
	outcomes map[int64]domain.ProbeOutcome
	calls    []string
	hook     func(url string)
}

func newMockProbe() *mockProbe {
	return &mockProbe{outcomes: make(map[int64]domain.ProbeOutcome)}
}

func (m *mockProbe) set(id int64, outcome domain.ProbeOutcome) *mockProbe {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[id] = outcome
	return m
}

func (m *mockProbe) Probe(_ context.Context, url string) domain.ProbeOutcome {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	hook := m.hook
	outcome, ok := m.outcomes[trackIDFromURL(url)]
	m.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if !ok {
		return domain.OutcomeLive
	}
	return outcome
}

func (m *mockProbe) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func trackIDFromURL(url string) int64 {
	idx := strings.LastIndex(url, "/id")
	if idx < 0 {
		return 0
	}
	id, _ := strconv.ParseInt(url[idx+3:], 10, 64)
	return id
}

// mockNotifier implements driven.Notifier.
type mockNotifier struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (m *mockNotifier) Notify(_ context.Context, itemName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, itemName)
	return m.err
}

// mockRescheduler implements driven.RefreshScheduler.
type mockRescheduler struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
	hook  func()
}

func (m *mockRescheduler) ScheduleNext(_ context.Context, notBefore time.Duration) error {
	m.mu.Lock()
	m.calls = append(m.calls, notBefore)
	hook := m.hook
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return m.err
}

// mockCatalog implements driven.CatalogLookup.
type mockCatalog struct {
	entries map[int64]domain.CatalogEntry
	err     error
}

func (m *mockCatalog) Lookup(_ context.Context, trackID int64, _ string) (*domain.CatalogEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	entry, ok := m.entries[trackID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// Ensure mocks implement interfaces
var (
	_ driven.ItemStore        = (*mockItemStore)(nil)
	_ driven.StatusProbe      = (*mockProbe)(nil)
	_ driven.Notifier         = (*mockNotifier)(nil)
	_ driven.RefreshScheduler = (*mockRescheduler)(nil)
	_ driven.CatalogLookup    = (*mockCatalog)(nil)
)

// testItem builds a tracked item with a resolvable check URL.
func testItem(id int64, status domain.Status, ownership domain.Ownership) domain.TrackedItem {
	item := domain.TrackedItem{
		Key:       domain.NewItemKey(id, "us"),
		Name:      "App " + strconv.FormatInt(id, 10),
		Version:   "1.0",
		DateAdded: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:    status,
		Ownership: ownership,
	}
	if status == domain.StatusRemoved {
		banned := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		item.BanDate = &banned
	}
	return item
}

// newTestEngine wires a checker over the given store and probe.
func newTestEngine(store *mockItemStore, probe *mockProbe) *Checker {
	return NewChecker(store, probe, NewTransitionCommitter(store), "https://apps.example.test")
}
