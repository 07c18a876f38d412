package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the application-level key bindings. Table movement and the
// quick filter live in components.TableKeyMap.
type KeyMap struct {
	// Actions
	Download    key.Binding
	Fetch       key.Binding
	AddURL      key.Binding
	Scan        key.Binding
	Refresh     key.Binding
	ShortFilter key.Binding
	MinViews    key.Binding

	Quit   key.Binding
	Help   key.Binding
	Escape key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Download: key.NewBinding(
			key.WithKeys("d", "enter"),
			key.WithHelp("d", "download / re-check"),
		),
		Fetch: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "get file"),
		),
		AddURL: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add by URL"),
		),
		Scan: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "scan channel"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ShortFilter: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "shorts / long / all"),
		),
		MinViews: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "minimum views"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
	}
}

// Keys is the global keymap instance
var Keys = DefaultKeyMap()

// HelpEntries lists the action bindings in the order the help screen shows them
func (k KeyMap) HelpEntries() []key.Help {
	bindings := []key.Binding{
		k.Download, k.Fetch, k.AddURL, k.Scan, k.Refresh,
		k.ShortFilter, k.MinViews, k.Escape, k.Help, k.Quit,
	}
	help := make([]key.Help, 0, len(bindings))
	for _, b := range bindings {
		help = append(help, b.Help())
	}
	return help
}
