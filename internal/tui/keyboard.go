package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/reel/internal/catalog"
	"github.com/mmcdole/reel/internal/domain"
)

// handleKeyMsg processes keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.State == StateInput {
		return m.routeToModal(msg)
	}

	if m.State == StateHelp {
		m.State = StateBrowsing
		return m, nil
	}

	// Typing into the quick filter
	if m.Table.IsFiltering() {
		return m, m.Table.Update(msg)
	}

	if key.Matches(msg, Keys.Escape) && m.Banner != nil {
		m.Banner = nil
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Download):
		v, ok := m.Table.Selected()
		if !ok {
			return m, nil
		}
		return m, StartDownloadCmd(m.Syncer, v)

	case key.Matches(msg, Keys.Fetch):
		return m.handleFetch()

	case key.Matches(msg, Keys.Refresh):
		m.Loading = true
		return m, LoadVideosCmd(m.Catalog, m.Filter)

	case key.Matches(msg, Keys.ShortFilter):
		m.setShortMode(nextShortMode(m.ShortMode))
		m.Loading = true
		return m, LoadVideosCmd(m.Catalog, m.Filter)

	case key.Matches(msg, Keys.AddURL):
		return m.openInput(inputAddURL, "Add video", "https://www.youtube.com/watch?v=...", "")

	case key.Matches(msg, Keys.Scan):
		return m.openInput(inputScan, "Scan channel", "@handle or youtube.com/@handle",
			"Shorts and videos, most recent 30")

	case key.Matches(msg, Keys.MinViews):
		return m.openInput(inputMinViews, "Minimum views", "e.g. 10000", "Leave empty to clear")
	}

	return m, m.Table.Update(msg)
}

func (m Model) openInput(kind inputKind, title, placeholder, hint string) (tea.Model, tea.Cmd) {
	m.State = StateInput
	m.input = kind
	m.InputModal.Show(title, placeholder, hint)
	return m, nil
}

// routeToModal sends keys to the open input modal
func (m Model) routeToModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var submitted bool
	m.InputModal, cmd, submitted = m.InputModal.Update(msg)

	if !m.InputModal.IsVisible() {
		m.State = StateBrowsing
		m.input = inputNone
		return m, cmd
	}
	if !submitted {
		return m, cmd
	}

	value := strings.TrimSpace(m.InputModal.Value())
	kind := m.input
	m.InputModal.Hide()
	m.State = StateBrowsing
	m.input = inputNone
	return m.submitInput(kind, value)
}

func (m Model) submitInput(kind inputKind, value string) (tea.Model, tea.Cmd) {
	switch kind {
	case inputAddURL:
		if value == "" {
			return m, nil
		}
		model, cmd := m.setStatus("Adding video...", false)
		return model, tea.Batch(cmd, AddURLCmd(m.Catalog, value))

	case inputScan:
		if value == "" {
			return m, nil
		}
		req := domain.ScanRequest{
			Channel:       value,
			IncludeShorts: true,
			IncludeVideos: true,
			MaxItems:      catalog.DefaultMaxItems,
		}
		model, cmd := m.setStatus("Scanning "+value+"...", false)
		return model, tea.Batch(cmd, ScanChannelCmd(m.Catalog, req))

	case inputMinViews:
		if value == "" {
			m.Filter.MinViews = nil
		} else {
			n, err := strconv.ParseInt(strings.ReplaceAll(value, ",", ""), 10, 64)
			if err != nil || n < 0 {
				return m.setStatus("Minimum views must be a whole number", true)
			}
			m.Filter.MinViews = &n
		}
		m.Loading = true
		return m, LoadVideosCmd(m.Catalog, m.Filter)
	}
	return m, nil
}

// handleFetch saves the selected video's file when its job succeeded
func (m Model) handleFetch() (tea.Model, tea.Cmd) {
	_, job, ok := m.selectedJob()
	if !ok || job.Status != domain.JobStatusSuccess {
		return m.setStatus(domain.ErrNotReady.Error(), true)
	}
	if m.DownloadDir == "" {
		m.Banner = errors.New("downloads.dir is not configured")
		return m, nil
	}
	model, cmd := m.setStatus("Fetching file...", false)
	return model, tea.Batch(cmd, SaveArtifactCmd(m.Syncer, job, m.DownloadDir))
}
