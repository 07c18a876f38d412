package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// Fixed column widths; the title takes whatever is left
const (
	colUploader = 18
	colDuration = 8
	colViews    = 7
	colKind     = 6
	colJob      = 24
	colGaps     = 5
	minTitle    = 12
)

// StatusFunc renders the job cell for a video
type StatusFunc func(v domain.Video) string

// VideoTable is a scrollable table of videos with a fuzzy quick filter.
type VideoTable struct {
	videos []domain.Video

	cursor     int
	offset     int
	maxVisible int

	width  int
	height int

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filteredIdx  []int // indices into videos
}

// NewVideoTable creates an empty table
func NewVideoTable() *VideoTable {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &VideoTable{filterInput: ti}
}

// SetVideos replaces the rows. The selection follows the previously selected
// video when it is still present.
func (t *VideoTable) SetVideos(videos []domain.Video) {
	var selectedID string
	if v, ok := t.Selected(); ok {
		selectedID = v.VideoID
	}

	t.videos = videos
	if t.filterActive {
		t.applyFilter()
	}

	t.cursor = 0
	t.offset = 0
	if selectedID != "" {
		for i := 0; i < t.ItemCount(); i++ {
			if t.videos[t.mapIndex(i)].VideoID == selectedID {
				t.cursor = i
				break
			}
		}
	}
	t.ensureVisible()
}

// Videos returns every row, ignoring the filter
func (t *VideoTable) Videos() []domain.Video {
	return t.videos
}

// Selected returns the video under the cursor
func (t *VideoTable) Selected() (domain.Video, bool) {
	if t.cursor >= t.ItemCount() {
		return domain.Video{}, false
	}
	return t.videos[t.mapIndex(t.cursor)], true
}

// ItemCount returns the number of visible (filtered) rows
func (t *VideoTable) ItemCount() int {
	if t.filteredIdx != nil {
		return len(t.filteredIdx)
	}
	return len(t.videos)
}

// IsFiltering reports whether the filter input currently has focus
func (t *VideoTable) IsFiltering() bool {
	return t.filterActive && t.filterInput.Focused()
}

// FilterQuery returns the active filter text
func (t *VideoTable) FilterQuery() string {
	if !t.filterActive {
		return ""
	}
	return t.filterInput.Value()
}

// SetSize sets the outer dimensions
func (t *VideoTable) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.recalcMaxVisible()
	t.ensureVisible()
}

// Update handles navigation and filter keys
func (t *VideoTable) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	if t.IsFiltering() {
		switch {
		case key.Matches(keyMsg, TableKeys.ClearFilter):
			t.ClearFilter()
			return nil
		case key.Matches(keyMsg, TableKeys.AcceptFilter):
			t.filterInput.Blur()
			return nil
		case keyMsg.String() == "backspace" && t.filterInput.Value() == "":
			t.ClearFilter()
			return nil
		}
		var cmd tea.Cmd
		t.filterInput, cmd = t.filterInput.Update(msg)
		t.applyFilter()
		return cmd
	}

	switch {
	case key.Matches(keyMsg, TableKeys.StartFilter):
		t.filterActive = true
		t.recalcMaxVisible()
		return t.filterInput.Focus()
	case t.filterActive && key.Matches(keyMsg, TableKeys.ClearFilter):
		t.ClearFilter()
		return nil
	}

	count := t.ItemCount()
	if count == 0 {
		return nil
	}

	switch {
	case key.Matches(keyMsg, TableKeys.NextVideo):
		t.moveTo(t.cursor + 1)
	case key.Matches(keyMsg, TableKeys.PrevVideo):
		t.moveTo(t.cursor - 1)
	case key.Matches(keyMsg, TableKeys.FirstVideo):
		t.moveTo(0)
	case key.Matches(keyMsg, TableKeys.LastVideo):
		t.moveTo(count - 1)
	case key.Matches(keyMsg, TableKeys.HalfPageDown):
		t.moveTo(t.cursor + t.maxVisible/2)
	case key.Matches(keyMsg, TableKeys.HalfPageUp):
		t.moveTo(t.cursor - t.maxVisible/2)
	case key.Matches(keyMsg, TableKeys.PageDown):
		t.moveTo(t.cursor + t.maxVisible)
	case key.Matches(keyMsg, TableKeys.PageUp):
		t.moveTo(t.cursor - t.maxVisible)
	}
	return nil
}

// ClearFilter drops the filter and shows every row again
func (t *VideoTable) ClearFilter() {
	var selectedID string
	if v, ok := t.Selected(); ok {
		selectedID = v.VideoID
	}

	t.filterActive = false
	t.filteredIdx = nil
	t.filterInput.SetValue("")
	t.filterInput.Blur()
	t.recalcMaxVisible()

	t.cursor = 0
	for i, v := range t.videos {
		if v.VideoID == selectedID {
			t.cursor = i
			break
		}
	}
	t.ensureVisible()
}

func (t *VideoTable) moveTo(i int) {
	count := t.ItemCount()
	if i >= count {
		i = count - 1
	}
	if i < 0 {
		i = 0
	}
	t.cursor = i
	t.ensureVisible()
}

func (t *VideoTable) recalcMaxVisible() {
	// Header row, plus the filter line when active
	t.maxVisible = t.height - 1
	if t.filterActive {
		t.maxVisible--
	}
	if t.maxVisible < 1 {
		t.maxVisible = 1
	}
}

func (t *VideoTable) ensureVisible() {
	if t.maxVisible <= 0 {
		return
	}
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+t.maxVisible {
		t.offset = t.cursor - t.maxVisible + 1
	}
}

func (t *VideoTable) applyFilter() {
	query := t.filterInput.Value()
	if query == "" {
		t.filteredIdx = nil
		return
	}

	targets := make([]string, len(t.videos))
	for i, v := range t.videos {
		targets[i] = strings.ToLower(v.Title + " " + v.Uploader)
	}

	matches := fuzzy.Find(strings.ToLower(query), targets)
	t.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		t.filteredIdx[i] = match.Index
	}

	t.cursor = 0
	t.offset = 0
}

func (t *VideoTable) mapIndex(i int) int {
	if t.filteredIdx != nil && i < len(t.filteredIdx) {
		return t.filteredIdx[i]
	}
	return i
}

func (t *VideoTable) titleWidth() int {
	w := t.width - colUploader - colDuration - colViews - colKind - colJob - colGaps
	if w < minTitle {
		return minTitle
	}
	return w
}

// View renders the header, the visible rows and the filter line
func (t *VideoTable) View(status StatusFunc) string {
	titleW := t.titleWidth()

	var b strings.Builder
	header := strings.Join([]string{
		styles.Pad("TITLE", titleW),
		styles.Pad("UPLOADER", colUploader),
		styles.Pad("LENGTH", colDuration),
		styles.Pad("VIEWS", colViews),
		styles.Pad("KIND", colKind),
		"JOB",
	}, " ")
	b.WriteString(styles.HeaderStyle.Render(header))

	count := t.ItemCount()
	if count == 0 {
		b.WriteString("\n")
		if t.FilterQuery() != "" {
			b.WriteString(styles.DimStyle.Render("No matches"))
		} else {
			b.WriteString(styles.DimStyle.Render("No videos. Press a to add one or s to scan a channel."))
		}
	}

	end := t.offset + t.maxVisible
	if end > count {
		end = count
	}
	for i := t.offset; i < end; i++ {
		v := t.videos[t.mapIndex(i)]
		kind := "video"
		if v.IsShort {
			kind = "short"
		}
		cells := strings.Join([]string{
			styles.Pad(v.DisplayTitle(), titleW),
			styles.Pad(v.Uploader, colUploader),
			styles.Pad(v.FormattedDuration(), colDuration),
			styles.Pad(v.FormattedViews(), colViews),
			styles.Pad(kind, colKind),
		}, " ")

		rowStyle := styles.NormalRowStyle
		if i == t.cursor {
			rowStyle = styles.SelectedRowStyle
		}

		b.WriteString("\n")
		b.WriteString(rowStyle.Render(cells+" ") + status(v))
	}

	if t.filterActive {
		b.WriteString("\n")
		line := t.filterInput.View()
		if !t.filterInput.Focused() {
			line = styles.FilterStyle.Render(fmt.Sprintf("/ %s", t.filterInput.Value())) +
				styles.DimStyle.Render(fmt.Sprintf("  %d/%d", count, len(t.videos)))
		}
		b.WriteString(line)
	}

	return lipgloss.NewStyle().Width(t.width).Height(t.height).Render(b.String())
}
