package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the selection screen.
type KeyMap struct {
	ForceQuit  key.Binding
	Quit       key.Binding
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	SwitchPane key.Binding
	Toggle     key.Binding
	Apply      key.Binding
	Details    key.Binding
	Changes    key.Binding
	Reload     key.Binding
	Cancel     key.Binding
}

// Keys are the keybindings of the selection screen.
var Keys = KeyMap{
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "force quit"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("h/←", "environments"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("l/→", "add-ons"),
	),
	SwitchPane: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "switch pane"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "select"),
	),
	Apply: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "done"),
	),
	Details: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "error details"),
	),
	Changes: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "pending changes"),
	),
	Reload: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "reload source"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}
