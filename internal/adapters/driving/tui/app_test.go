package tui

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui/messages"
	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui/styles"
	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// mockRefresher implements driving.BulkRefresher for testing.
type mockRefresher struct {
	progress domain.RefreshProgress
	cancels  atomic.Int32
}

func (m *mockRefresher) Start(context.Context, []domain.ItemKey) (<-chan domain.CycleSummary, error) {
	return nil, nil
}

func (m *mockRefresher) RefreshAll(context.Context) (<-chan domain.CycleSummary, error) {
	return nil, nil
}

func (m *mockRefresher) Cancel() { m.cancels.Add(1) }

func (m *mockRefresher) Progress() domain.RefreshProgress { return m.progress }

func (m *mockRefresher) LastSummary() *domain.CycleSummary { return nil }

func newTestApp(t *testing.T) (*App, *mockRefresher, chan domain.CycleSummary) {
	t.Helper()
	refresher := &mockRefresher{progress: domain.RefreshProgress{RunID: "r1", Running: true, Total: 4}}
	ch := make(chan domain.CycleSummary, 1)
	app, err := NewApp(NewPorts(refresher), ch)
	require.NoError(t, err)
	return app, refresher, ch
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewApp_Validation(t *testing.T) {
	_, err := NewApp(nil, make(chan domain.CycleSummary))
	assert.ErrorIs(t, err, ErrMissingRefresher)

	_, err = NewApp(&Ports{}, make(chan domain.CycleSummary))
	assert.ErrorIs(t, err, ErrMissingRefresher)

	_, err = NewApp(NewPorts(&mockRefresher{}), nil)
	assert.ErrorIs(t, err, ErrMissingSummaries)
}

func TestApp_Init(t *testing.T) {
	app, _, _ := newTestApp(t)

	assert.NotNil(t, app.Init())
}

func TestApp_ProgressTickPollsRefresher(t *testing.T) {
	app, refresher, _ := newTestApp(t)
	refresher.progress = domain.RefreshProgress{RunID: "r1", Running: true, Checked: 2, Total: 4, Fraction: 0.5}

	_, cmd := app.Update(messages.ProgressTick{At: time.Now()})

	assert.NotNil(t, cmd, "tick must reschedule itself")
	assert.Contains(t, app.View(), "2/4 checked")
	assert.Contains(t, app.View(), "esc")
	assert.Contains(t, app.View(), "cancel")
}

func TestApp_CancelKey(t *testing.T) {
	app, refresher, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.True(t, app.Cancelling())
	assert.Equal(t, int32(1), refresher.cancels.Load())
	assert.Contains(t, app.View(), "Cancelling")

	// A second cancel is not forwarded again.
	app.Update(runes("c"))
	assert.Equal(t, int32(1), refresher.cancels.Load())
}

func TestApp_QuitCancelsFirstThenQuits(t *testing.T) {
	app, refresher, _ := newTestApp(t)

	_, cmd := app.Update(runes("q"))
	assert.Nil(t, cmd)
	assert.Equal(t, int32(1), refresher.cancels.Load())

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Nil(t, app.Summary())
	assert.Empty(t, app.View())
}

func TestApp_RunFinished(t *testing.T) {
	app, _, _ := newTestApp(t)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	summary := domain.CycleSummary{
		RunID: "r1", StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
		Total: 4, Checked: 4, Updated: 2, Removed: 1, Restored: 1,
	}

	_, cmd := app.Update(messages.RunFinished{Summary: summary, OK: true})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	require.NotNil(t, app.Summary())
	assert.Equal(t, summary, *app.Summary())
	view := app.View()
	assert.Contains(t, view, "Checked 4 of 4 apps in 1.5s")
	assert.Contains(t, view, "Removed 1")
	assert.Contains(t, view, "Restored 1")
}

func TestApp_RunFinishedWithoutSummary(t *testing.T) {
	app, _, _ := newTestApp(t)

	_, cmd := app.Update(messages.RunFinished{})

	require.NotNil(t, cmd)
	assert.Nil(t, app.Summary())
}

func TestWaitForSummary(t *testing.T) {
	ch := make(chan domain.CycleSummary, 1)
	ch <- domain.CycleSummary{RunID: "r9", Total: 1, Checked: 1}
	close(ch)

	msg := waitForSummary(ch)()
	finished, ok := msg.(messages.RunFinished)
	require.True(t, ok)
	assert.True(t, finished.OK)
	assert.Equal(t, "r9", finished.Summary.RunID)

	msg = waitForSummary(ch)()
	assert.Equal(t, messages.RunFinished{}, msg)
}

func TestApp_WindowSize(t *testing.T) {
	app, _, _ := newTestApp(t)

	app.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	assert.Equal(t, 36, app.bar.Width)

	app.Update(tea.WindowSizeMsg{Width: 200, Height: 20})
	assert.Equal(t, maxBarWidth, app.bar.Width)

	app.Update(tea.WindowSizeMsg{Width: 2, Height: 20})
	assert.Equal(t, 10, app.bar.Width)
}

func TestRenderSummary_OmitsZeroCounts(t *testing.T) {
	out := RenderSummary(styles.DefaultStyles(), domain.CycleSummary{Total: 3, Checked: 3})

	assert.Contains(t, out, "Checked 3 of 3 apps")
	assert.Contains(t, out, "Updated 0")
	assert.NotContains(t, out, "Removed")
	assert.NotContains(t, out, "Errors")
	assert.NotContains(t, out, "Cancelled")
}

func TestRenderSummary_AllCounts(t *testing.T) {
	out := RenderSummary(styles.DefaultStyles(), domain.CycleSummary{
		Total: 5, Checked: 4, Unavailable: 1, Errors: 2, Cancelled: 1,
	})

	assert.Contains(t, out, "Unavailable 1")
	assert.Contains(t, out, "Errors 2")
	assert.Contains(t, out, "Cancelled 1")
}
