package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/reel/internal/catalog"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/jobs"
	"github.com/mmcdole/reel/internal/tui/components"
	"github.com/mmcdole/reel/internal/tui/styles"
)

// View renders the whole screen
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	if m.State == StateInput {
		return lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.InputModal.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitleBar(),
		m.renderBanner(),
		m.Table.View(m.jobCell),
		m.renderFooter(),
	)
}

func (m Model) renderTitleBar() string {
	left := styles.BadgeStyle.Render("reel")

	var filters []string
	switch m.ShortMode {
	case catalog.ShortsOnly:
		filters = append(filters, "shorts")
	case catalog.LongOnly:
		filters = append(filters, "long")
	default:
		filters = append(filters, "all")
	}
	if m.Filter.MinViews != nil {
		filters = append(filters, fmt.Sprintf("≥%d views", *m.Filter.MinViews))
	}
	left += " " + styles.DimBadgeStyle.Render(strings.Join(filters, " · "))

	right := styles.DimStyle.Render(fmt.Sprintf("%d videos", len(m.Table.Videos())))
	if active := countActive(m.Jobs); active > 0 {
		right = styles.RunningStyle.Render(fmt.Sprintf("%d active", active)) + styles.DimStyle.Render(" · ") + right
	}

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderBanner always takes one line so the table does not jump
func (m Model) renderBanner() string {
	if m.Banner == nil {
		return ""
	}
	text := styles.Truncate(m.Banner.Error(), m.Width-20)
	return styles.BannerStyle.Render(text) + styles.DimStyle.Render("  esc to dismiss")
}

func (m Model) renderFooter() string {
	var left string
	if m.Loading {
		left = RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Loading...")
	} else if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	}

	// Context hints follow the selected job
	var center string
	if _, job, ok := m.selectedJob(); ok {
		center = hint("d", ActionLabel(job, true))
		if job.Status == domain.JobStatusSuccess {
			center += "  " + hint("f", "Get file")
		}
	} else if _, ok := m.Table.Selected(); ok {
		center = hint("d", ActionLabel(domain.Job{}, false))
	}

	right := hint("?", "help")

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth >= m.Width {
		gap := m.Width - leftWidth - rightWidth
		if gap < 0 {
			gap = 0
		}
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad

	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

func hint(k, desc string) string {
	return styles.HelpKeyStyle.Render(k) + styles.HelpDescStyle.Render(" "+desc)
}

// renderHelp renders the help screen from the live key maps
func (m Model) renderHelp() string {
	table := helpColumn("TABLE", components.TableKeys.Help())
	actions := helpColumn("ACTIONS", Keys.HelpEntries())

	body := lipgloss.JoinHorizontal(lipgloss.Top, table, "    ", actions)
	help := body + "\n\n" + styles.DimStyle.Render("Press any key to return...")

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

func helpColumn(title string, help []key.Help) string {
	lines := []string{styles.TitleStyle.Render(title)}
	for _, h := range help {
		lines = append(lines, styles.HelpKeyStyle.Render(fmt.Sprintf("  %-8s", h.Key))+styles.HelpDescStyle.Render(" "+h.Desc))
	}
	return strings.Join(lines, "\n")
}

// jobCell renders the job column for v from the current snapshot
func (m Model) jobCell(v domain.Video) string {
	job, ok := m.Jobs.Get(v.VideoID)
	return JobCell(job, ok, m.Jobs.Stalled[v.VideoID])
}

// JobCellText is the plain text of the job column
func JobCellText(job domain.Job, ok, stalled bool) string {
	switch {
	case !ok:
		return "-"
	case stalled:
		return "stalled · " + job.Label()
	case job.Status == domain.JobStatusFailed && job.ErrorMessage != "":
		return "failed: " + job.ErrorMessage
	default:
		return job.Label()
	}
}

// JobCell renders the job column with status colour and a progress bar for
// running jobs
func JobCell(job domain.Job, ok, stalled bool) string {
	text := JobCellText(job, ok, stalled)
	if !ok {
		return styles.DimStyle.Render(text)
	}
	if stalled {
		return styles.StalledStyle.Render(text)
	}
	switch job.Status {
	case domain.JobStatusQueued:
		return styles.QueuedStyle.Render(text)
	case domain.JobStatusRunning:
		return styles.RenderProgressBar(job.Progress, 10) + " " + styles.RunningStyle.Render(text)
	case domain.JobStatusSuccess:
		return styles.SuccessJob.Render(text)
	case domain.JobStatusFailed:
		return styles.FailedStyle.Render(styles.Truncate(text, 48))
	default:
		return styles.DimStyle.Render(text)
	}
}

// ActionLabel names what the download key does for a video: a finished job
// is only re-checked against the server.
func ActionLabel(job domain.Job, ok bool) string {
	if ok && job.Status == domain.JobStatusSuccess {
		return "Re-check"
	}
	return "Download"
}

func countActive(s jobs.Snapshot) int {
	n := 0
	for id, j := range s.Jobs {
		if j.Status.IsActive() && !s.Stalled[id] {
			n++
		}
	}
	return n
}

// RenderSpinner renders a spinner frame
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
}
