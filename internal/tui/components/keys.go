package components

import "github.com/charmbracelet/bubbles/key"

// TableKeyMap holds the keys the video table handles itself. Job and
// catalog actions live in the app's key map.
type TableKeyMap struct {
	PrevVideo    key.Binding
	NextVideo    key.Binding
	FirstVideo   key.Binding
	LastVideo    key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding
	PageUp       key.Binding
	PageDown     key.Binding

	// Quick filter over loaded titles and uploaders
	StartFilter  key.Binding
	AcceptFilter key.Binding
	ClearFilter  key.Binding
}

// DefaultTableKeyMap returns vim-style table keys
func DefaultTableKeyMap() TableKeyMap {
	return TableKeyMap{
		PrevVideo:    key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "previous video")),
		NextVideo:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next video")),
		FirstVideo:   key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first video")),
		LastVideo:    key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last video")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "half page up")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "half page down")),
		PageUp:       key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown:     key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		StartFilter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "quick filter")),
		AcceptFilter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "keep filter, back to table")),
		ClearFilter:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
	}
}

// Help lists the table bindings in the order the help screen shows them
func (k TableKeyMap) Help() []key.Help {
	bindings := []key.Binding{
		k.PrevVideo, k.NextVideo, k.FirstVideo, k.LastVideo,
		k.HalfPageUp, k.HalfPageDown, k.PageUp, k.PageDown,
		k.StartFilter, k.AcceptFilter, k.ClearFilter,
	}
	help := make([]key.Help, 0, len(bindings))
	for _, b := range bindings {
		help = append(help, b.Help())
	}
	return help
}

// TableKeys are the bindings every VideoTable uses
var TableKeys = DefaultTableKeyMap()
