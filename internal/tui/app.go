package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/reel/internal/catalog"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/jobs"
	"github.com/mmcdole/reel/internal/tui/components"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateInput
	StateHelp
)

// inputKind says what the open InputModal is collecting
type inputKind int

const (
	inputNone inputKind = iota
	inputAddURL
	inputScan
	inputMinViews
)

// ChromeHeight is the number of lines outside the table: title, banner, footer
const ChromeHeight = 3

// Options configures a Model
type Options struct {
	ShortFilter string        // catalog.ShortsOnly, LongOnly or AllVideos
	DownloadDir string        // Where fetched files are written
	Jobs        jobs.Snapshot // Initial state, usually restored from cache
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Services
	Syncer  *jobs.Synchronizer
	Catalog *catalog.Service
	Queries *catalog.Queries
	Updates <-chan jobs.Snapshot

	// UI Components
	Table      *components.VideoTable
	InputModal components.InputModal
	input      inputKind

	// Data
	Filter      domain.VideoFilter
	ShortMode   string
	Jobs        jobs.Snapshot
	DownloadDir string

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	Banner       error // Dismissed with esc
	Loading      bool
	SpinnerFrame int
}

// NewModel creates a new application model
func NewModel(
	syncer *jobs.Synchronizer,
	catalogSvc *catalog.Service,
	queries *catalog.Queries,
	updates <-chan jobs.Snapshot,
	opts Options,
) Model {
	mode := opts.ShortFilter
	if mode == "" {
		mode = catalog.ShortsOnly
	}
	snapshot := opts.Jobs
	if snapshot.Jobs == nil {
		snapshot.Jobs = map[string]domain.Job{}
	}

	m := Model{
		State:       StateBrowsing,
		Syncer:      syncer,
		Catalog:     catalogSvc,
		Queries:     queries,
		Updates:     updates,
		Table:       components.NewVideoTable(),
		InputModal:  components.NewInputModal(),
		Filter:      domain.VideoFilter{IsShort: catalog.ShortFilter(mode)},
		ShortMode:   mode,
		Jobs:        snapshot,
		DownloadDir: opts.DownloadDir,
		Loading:     true,
	}

	// Show the last cached page until the server answers
	if queries != nil {
		if cached, ok := queries.Cached(m.Filter); ok {
			m.Table.SetVideos(cached)
		}
	}
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		LoadVideosCmd(m.Catalog, m.Filter),
		WaitForJobsCmd(m.Updates),
		TickCmd(100*time.Millisecond),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(100 * time.Millisecond)

	case VideosLoadedMsg:
		// A reply for a filter the user already moved away from
		if msg.Filter.Key() != m.Filter.Key() {
			return m, nil
		}
		m.Loading = false
		m.Table.SetVideos(msg.Videos)
		return m, SyncJobsCmd(m.Syncer, msg.Videos)

	case JobsSyncedMsg:
		if msg.Result.Stale {
			return m, nil
		}
		if msg.Result.Polling > 0 {
			return m.setStatus(fmt.Sprintf("Tracking %d active download(s)", msg.Result.Polling), false)
		}
		return m, nil

	case JobsUpdatedMsg:
		m.Jobs = msg.Snapshot
		return m, WaitForJobsCmd(m.Updates)

	case DownloadStartedMsg:
		// The store notification may still be in flight. Once it has
		// arrived it is at least as new as this reply.
		if cur, ok := m.Jobs.Get(msg.Job.VideoID); !ok || cur.JobID != msg.Job.JobID {
			m.Jobs = withJob(m.Jobs, msg.Job)
		}
		verb := "Queued"
		if msg.Job.Status.IsTerminal() {
			verb = "Checked"
		}
		return m.setStatus(fmt.Sprintf("%s %s: %s", verb, msg.Video.DisplayTitle(), msg.Job.Status), false)

	case ArtifactSavedMsg:
		return m.setStatus("Saved "+msg.Path, false)

	case VideoAddedMsg:
		m.Loading = true
		model, cmd := m.setStatus("Added "+msg.VideoID, false)
		return model, tea.Batch(cmd, LoadVideosCmd(m.Catalog, m.Filter))

	case ChannelScannedMsg:
		// New uploads are mostly shorts; show them
		m.setShortMode(catalog.ShortsOnly)
		m.Loading = true
		status := fmt.Sprintf("Scanned @%s: %d new, %d updated", msg.Result.Channel, msg.Result.Inserted, msg.Result.Updated)
		model, cmd := m.setStatus(status, false)
		return model, tea.Batch(cmd, LoadVideosCmd(m.Catalog, m.Filter))

	case ErrMsg:
		m.Loading = false
		m.Banner = msg
		return m, nil

	case StatusMsg:
		return m.setStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	// Cursor blink and other textinput messages
	if m.InputModal.IsVisible() {
		var cmd tea.Cmd
		m.InputModal, cmd, _ = m.InputModal.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) setStatus(message string, isErr bool) (Model, tea.Cmd) {
	m.StatusMsg = message
	m.StatusIsErr = isErr
	return m, ClearStatusCmd(4 * time.Second)
}

// setShortMode switches the catalog filter's is_short parameter
func (m *Model) setShortMode(mode string) {
	m.ShortMode = mode
	m.Filter.IsShort = catalog.ShortFilter(mode)
}

// nextShortMode cycles shorts -> long -> all
func nextShortMode(mode string) string {
	switch mode {
	case catalog.ShortsOnly:
		return catalog.LongOnly
	case catalog.LongOnly:
		return catalog.AllVideos
	default:
		return catalog.ShortsOnly
	}
}

func (m *Model) updateLayout() {
	h := m.Height - ChromeHeight
	if h < 2 {
		h = 2
	}
	m.Table.SetSize(m.Width, h)
}

// selectedJob returns the selected video and its job, if any
func (m Model) selectedJob() (domain.Video, domain.Job, bool) {
	v, ok := m.Table.Selected()
	if !ok {
		return domain.Video{}, domain.Job{}, false
	}
	job, ok := m.Jobs.Get(v.VideoID)
	return v, job, ok
}

// withJob returns a copy of s with job stored, leaving s untouched
func withJob(s jobs.Snapshot, job domain.Job) jobs.Snapshot {
	out := jobs.Snapshot{
		Jobs:    make(map[string]domain.Job, len(s.Jobs)+1),
		Stalled: make(map[string]bool, len(s.Stalled)),
	}
	for k, v := range s.Jobs {
		out.Jobs[k] = v
	}
	for k, v := range s.Stalled {
		if k != job.VideoID {
			out.Stalled[k] = v
		}
	}
	out.Jobs[job.VideoID] = job
	return out
}
