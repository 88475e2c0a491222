package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the console.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding

	Details key.Binding
	Back    key.Binding
	Refresh key.Binding
	Launch  key.Binding
	Stop    key.Binding
	Kill    key.Binding
	Shift   key.Binding
	Manager key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Details: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Launch: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "launch"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Kill: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "kill"),
		),
		Shift: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "refresh shift"),
		),
		Manager: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "start manager"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Details, k.Refresh, k.Launch, k.Stop, k.Shift, k.Quit, k.Help}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Details, k.Back},
		{k.Refresh, k.Launch, k.Stop, k.Kill},
		{k.Shift, k.Manager},
		{k.Help, k.Quit},
	}
}
