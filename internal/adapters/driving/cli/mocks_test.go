package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
)

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default so tests do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// useServices injects s for the duration of the test.
func useServices(t *testing.T, s *Services) {
	t.Helper()
	SetServices(s)
	t.Cleanup(func() { SetServices(nil) })
}

// mockItemService implements driving.ItemService for testing.
type mockItemService struct {
	mu        sync.Mutex
	items     []domain.TrackedItem
	history   []domain.TransitionRecord
	added     map[domain.Ownership][]string
	removed   []domain.ItemKey
	owned     map[domain.ItemKey]domain.Ownership
	filter    domain.ItemFilter
	limit     int
	addResult *driving.AddResult
	err       error
}

func newMockItemService(items ...domain.TrackedItem) *mockItemService {
	return &mockItemService{
		items: items,
		added: make(map[domain.Ownership][]string),
		owned: make(map[domain.ItemKey]domain.Ownership),
	}
}

func (m *mockItemService) Add(_ context.Context, refs []string, ownership domain.Ownership) (*driving.AddResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.added[ownership] = append(m.added[ownership], refs...)
	if m.addResult != nil {
		return m.addResult, nil
	}
	result := &driving.AddResult{Failed: map[string]error{}}
	for _, ref := range refs {
		key, err := domain.ParseListingRef(ref, "")
		if err != nil {
			result.Failed[ref] = err
			continue
		}
		result.Added = append(result.Added, domain.TrackedItem{Key: key, Name: "App " + ref, Ownership: ownership})
	}
	return result, nil
}

func (m *mockItemService) Get(_ context.Context, key domain.ItemKey) (*domain.TrackedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].Key == key {
			item := m.items[i]
			return &item, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockItemService) List(_ context.Context, filter domain.ItemFilter) ([]domain.TrackedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = filter
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.TrackedItem
	for i := range m.items {
		if filter.Matches(&m.items[i]) {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

func (m *mockItemService) Remove(_ context.Context, key domain.ItemKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, key)
	return nil
}

func (m *mockItemService) SetOwnership(_ context.Context, key domain.ItemKey, ownership domain.Ownership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.owned[key] = ownership
	return nil
}

func (m *mockItemService) History(_ context.Context, _ domain.ItemKey, limit int) ([]domain.TransitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = limit
	return m.history, m.err
}

// mockBulkRefresher implements driving.BulkRefresher for testing.
// RefreshAll publishes summary after delay.
type mockBulkRefresher struct {
	mu        sync.Mutex
	summary   domain.CycleSummary
	delay     time.Duration
	startErr  error
	cancelled int
}

func (m *mockBulkRefresher) Start(ctx context.Context, _ []domain.ItemKey) (<-chan domain.CycleSummary, error) {
	return m.RefreshAll(ctx)
}

func (m *mockBulkRefresher) RefreshAll(context.Context) (<-chan domain.CycleSummary, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	ch := make(chan domain.CycleSummary, 1)
	go func() {
		time.Sleep(m.delay)
		ch <- m.summary
		close(ch)
	}()
	return ch, nil
}

func (m *mockBulkRefresher) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
}

func (m *mockBulkRefresher) Progress() domain.RefreshProgress {
	return domain.RefreshProgress{RunID: m.summary.RunID, Running: true, Checked: 1, Total: m.summary.Total}
}

func (m *mockBulkRefresher) LastSummary() *domain.CycleSummary { return nil }

// mockSingleRefresher implements driving.SingleRefresher for testing.
type mockSingleRefresher struct {
	result domain.CheckResult
	err    error
	key    domain.ItemKey
}

func (m *mockSingleRefresher) Refresh(_ context.Context, key domain.ItemKey) (domain.CheckResult, error) {
	m.key = key
	r := m.result
	r.Key = key
	return r, m.err
}

// mockBackground implements driving.BackgroundRefresher for testing.
type mockBackground struct {
	summary  domain.CycleSummary
	err      error
	deadline time.Time
	hasLimit bool
}

func (m *mockBackground) Run(ctx context.Context) bool {
	_, err := m.RunCycle(ctx)
	return err == nil
}

func (m *mockBackground) RunCycle(ctx context.Context) (domain.CycleSummary, error) {
	m.deadline, m.hasLimit = ctx.Deadline()
	return m.summary, m.err
}

// mockScheduler implements driving.Scheduler for testing.
// Start blocks until ctx is done or Stop is called.
type mockScheduler struct {
	mu     sync.Mutex
	starts int
	stops  int
	stopCh chan struct{}
	err    error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.mu.Lock()
	m.starts++
	if m.err != nil {
		m.mu.Unlock()
		return m.err
	}
	stop := make(chan struct{})
	m.stopCh = stop
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return nil
	}
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
	return nil
}

func (m *mockScheduler) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}

// mockStatus implements driving.SchedulerStatus for testing.
type mockStatus struct {
	task    *domain.ScheduledTask
	history []domain.TaskResult
}

func (m *mockStatus) Task(context.Context) (*domain.ScheduledTask, error) { return m.task, nil }

func (m *mockStatus) History(context.Context, int) ([]domain.TaskResult, error) {
	return m.history, nil
}

// mockWatcher implements ConfigWatcher and fires onChange once.
type mockWatcher struct {
	fire chan struct{}
}

func (m *mockWatcher) Watch(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.fire:
			onChange()
		}
	}
}
