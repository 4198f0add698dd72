package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the application keys handled before the tree dispatcher.
type KeyMap struct {
	Quit         key.Binding
	Help         key.Binding
	Copy         key.Binding
	Close        key.Binding
	ToggleSticky key.Binding
	Reload       key.Binding
}

// DefaultKeyMap returns the default application bindings. None of them is
// a plain printable key, so typeahead keeps every letter.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "toggle help"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy path of focused row"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close help"),
		),
		ToggleSticky: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "toggle sticky scroll"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload source"),
		),
	}
}

// Bindings lists the bindings in help order.
func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{k.Help, k.Close, k.Copy, k.ToggleSticky, k.Reload, k.Quit}
}
