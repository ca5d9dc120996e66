package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui/keymap"
	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui/messages"
	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui/styles"
	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// PollInterval is how often the view samples the run's progress.
const PollInterval = 200 * time.Millisecond

const maxBarWidth = 60

// App is the refresh progress view following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports     *Ports
	summaries <-chan domain.CycleSummary

	styles *styles.Styles
	keys   keymap.KeyMap
	help   help.Model
	bar    progress.Model

	progress   domain.RefreshProgress
	summary    *domain.CycleSummary
	cancelling bool
	quitting   bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a view over a run already started on ports.Refresh.
// summaries is the channel Start returned.
func NewApp(ports *Ports, summaries <-chan domain.CycleSummary) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if summaries == nil {
		return nil, ErrMissingSummaries
	}

	st := styles.DefaultStyles()
	h := help.New()
	h.Styles.ShortDesc = st.Help

	return &App{
		ports:     ports,
		summaries: summaries,
		styles:    st,
		keys:      keymap.DefaultKeyMap(),
		help:      h,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(maxBarWidth),
		),
		progress: ports.Refresh.Progress(),
	}, nil
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(tick(), waitForSummary(a.summaries))
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.bar.Width = max(min(msg.Width-4, maxBarWidth), 10)
		a.help.Width = msg.Width
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			if a.cancelling {
				a.quitting = true
				return a, tea.Quit
			}
			a.cancel()
		case key.Matches(msg, a.keys.Cancel):
			a.cancel()
		}
		return a, nil

	case messages.ProgressTick:
		a.progress = a.ports.Refresh.Progress()
		return a, tick()

	case messages.RunFinished:
		if msg.OK {
			summary := msg.Summary
			a.summary = &summary
		}
		a.quitting = true
		return a, tea.Quit
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.summary != nil {
		return RenderSummary(a.styles, *a.summary) + "\n"
	}
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Checking App Store availability"))
	b.WriteString("\n\n")
	b.WriteString(a.bar.ViewAs(a.progress.Fraction))
	b.WriteString("\n")
	b.WriteString(a.styles.Muted.Render(fmt.Sprintf("%d/%d checked", a.progress.Checked, a.progress.Total)))
	b.WriteString("\n\n")
	if a.cancelling {
		b.WriteString(a.styles.Warning.Render("Cancelling, waiting for in-flight checks..."))
	} else {
		b.WriteString(a.help.View(a.keys))
	}
	b.WriteString("\n")
	return b.String()
}

// Summary returns the run's summary once it has been received.
func (a *App) Summary() *domain.CycleSummary {
	return a.summary
}

// Cancelling reports whether the user asked to cancel the run.
func (a *App) Cancelling() bool {
	return a.cancelling
}

func (a *App) cancel() {
	if a.cancelling {
		return
	}
	a.cancelling = true
	a.ports.Refresh.Cancel()
}

func tick() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return messages.ProgressTick{At: t}
	})
}

func waitForSummary(ch <-chan domain.CycleSummary) tea.Cmd {
	return func() tea.Msg {
		summary, ok := <-ch
		return messages.RunFinished{Summary: summary, OK: ok}
	}
}

// Run shows the view until the run finishes or the user quits, and
// returns the summary if one arrived.
func Run(ctx context.Context, ports *Ports, summaries <-chan domain.CycleSummary, in io.Reader, out io.Writer) (*domain.CycleSummary, error) {
	app, err := NewApp(ports, summaries)
	if err != nil {
		return nil, err
	}

	p := tea.NewProgram(app,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	if _, err := p.Run(); err != nil {
		return app.Summary(), fmt.Errorf("running refresh view: %w", err)
	}
	return app.Summary(), nil
}

// RenderSummary formats a run summary for display.
func RenderSummary(s *styles.Styles, summary domain.CycleSummary) string {
	lines := []string{
		s.Title.Render("Refresh complete"),
		fmt.Sprintf("Checked %d of %d apps in %s", summary.Checked, summary.Total,
			summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)),
		fmt.Sprintf("Updated %d", summary.Updated),
	}
	if summary.Removed > 0 {
		lines = append(lines, s.Error.Render(fmt.Sprintf("Removed %d", summary.Removed)))
	}
	if summary.Restored > 0 {
		lines = append(lines, s.Success.Render(fmt.Sprintf("Restored %d", summary.Restored)))
	}
	if summary.Unavailable > 0 {
		lines = append(lines, s.Warning.Render(fmt.Sprintf("Unavailable %d", summary.Unavailable)))
	}
	if summary.Errors > 0 {
		lines = append(lines, s.Error.Render(fmt.Sprintf("Errors %d", summary.Errors)))
	}
	if summary.Cancelled > 0 {
		lines = append(lines, s.Muted.Render(fmt.Sprintf("Cancelled %d", summary.Cancelled)))
	}
	return s.Summary.Render(strings.Join(lines, "\n"))
}
