// Package keymap binds keys for the refresh view.
package keymap

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap is the refresh view's bindings. It satisfies help.KeyMap.
type KeyMap struct {
	// Cancel drops outstanding checks and waits for the summary.
	Cancel key.Binding

	// Quit cancels the run. Pressed again it leaves without the summary.
	Quit key.Binding
}

var _ help.KeyMap = KeyMap{}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Cancel: key.NewBinding(key.WithKeys("esc", "c"), key.WithHelp("esc", "cancel")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
