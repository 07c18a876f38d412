package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ReelRed    = lipgloss.Color("#E5484D")
	Amber      = lipgloss.Color("#E5A00D")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
	Blue       = lipgloss.Color("#3B82F6")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(ReelRed)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(ReelRed).
			Padding(0, 1)

	DimBadgeStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Background(SlateLight).
			Padding(0, 1)
)

// Job status styles
var (
	QueuedStyle  = lipgloss.NewStyle().Foreground(LightGray)
	RunningStyle = lipgloss.NewStyle().Foreground(Blue)
	SuccessJob   = lipgloss.NewStyle().Foreground(Green)
	FailedStyle  = lipgloss.NewStyle().Foreground(Red)
	StalledStyle = lipgloss.NewStyle().Foreground(Amber)
)

// Table styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Bold(true)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight)

	NormalRowStyle = lipgloss.NewStyle().
			Foreground(LightGray)
)

// Banner is the dismissable error strip above the table
var BannerStyle = lipgloss.NewStyle().
	Foreground(White).
	Background(Red).
	Padding(0, 1)

// ModalStyle frames the help screen and input prompts
var ModalStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ReelRed).
	Padding(1, 2).
	Background(SlateDark)

// Help styles
var (
	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ReelRed)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// SpinnerFrames animate loading indicators in the TUI and the CLI
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ReelRed)

	FilterStyle = lipgloss.NewStyle().
			Foreground(ReelRed)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(ReelRed).
				Bold(true)

	ProgressFullStyle  = lipgloss.NewStyle().Foreground(Blue)
	ProgressEmptyStyle = lipgloss.NewStyle().Foreground(DimGray)
)

// Truncate shortens s to width runes, ending in "..." when cut
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// Pad truncates or right-pads s to exactly width runes
func Pad(s string, width int) string {
	s = Truncate(s, width)
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// RenderProgressBar renders percent (0-100) as a bar of width cells
func RenderProgressBar(percent, width int) string {
	if width < 3 {
		return ""
	}
	filled := width * percent / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return ProgressFullStyle.Render(strings.Repeat("█", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}
