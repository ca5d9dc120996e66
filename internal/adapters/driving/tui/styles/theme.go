// Package styles holds the lipgloss palette shared by the refresh view and
// the CLI tables.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// Theme is the colour palette. Live, Removed and Unavailable double as the
// listing status colours.
type Theme struct {
	Primary     lipgloss.Color
	Foreground  lipgloss.Color
	Muted       lipgloss.Color
	Border      lipgloss.Color
	Live        lipgloss.Color
	Removed     lipgloss.Color
	Unavailable lipgloss.Color
}

// DefaultTheme is a dark palette with an App Store blue accent.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:     "#0A84FF",
		Foreground:  "#CDD6F4",
		Muted:       "#6C7086",
		Border:      "#45475A",
		Live:        "#A6E3A1",
		Removed:     "#F38BA8",
		Unavailable: "#F9E2AF",
	}
}

// Styles are the rendered styles for one Theme.
type Styles struct {
	theme    *Theme
	byStatus map[domain.Status]lipgloss.Style

	Title   lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Help    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Summary frames the end-of-run report.
	Summary lipgloss.Style
}

// NewStyles builds styles for theme, falling back to DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	s := &Styles{
		theme:   theme,
		Title:   fg(theme.Primary).Bold(true),
		Text:    fg(theme.Foreground),
		Muted:   fg(theme.Muted),
		Help:    fg(theme.Muted),
		Success: fg(theme.Live),
		Warning: fg(theme.Unavailable),
		Error:   fg(theme.Removed).Bold(true),
		Summary: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
	s.byStatus = map[domain.Status]lipgloss.Style{
		domain.StatusLive:        s.Success,
		domain.StatusRemoved:     s.Error,
		domain.StatusUnavailable: s.Warning,
	}
	return s
}

func DefaultStyles() *Styles {
	return NewStyles(nil)
}

func (s *Styles) Theme() *Theme {
	return s.theme
}

// Status colours a listing status. Unknown values render as plain text.
func (s *Styles) Status(status domain.Status) lipgloss.Style {
	if st, ok := s.byStatus[status]; ok {
		return st
	}
	return s.Text
}
