package tui

import (
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/jobs"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// VideosLoadedMsg signals that a catalog page has been loaded
type VideosLoadedMsg struct {
	Videos []domain.Video
	Filter domain.VideoFilter
}

// JobsSyncedMsg signals that a bulk job sync finished
type JobsSyncedMsg struct {
	Result domain.SyncResult
}

// JobsUpdatedMsg carries a new job state snapshot
type JobsUpdatedMsg struct {
	Snapshot jobs.Snapshot
}

// DownloadStartedMsg signals that a job was created or re-checked
type DownloadStartedMsg struct {
	Video domain.Video
	Job   domain.Job
}

// ArtifactSavedMsg signals that a finished file was written locally
type ArtifactSavedMsg struct {
	JobID string
	Path  string
}

// VideoAddedMsg signals that a video was ingested by URL
type VideoAddedMsg struct {
	VideoID string
}

// ChannelScannedMsg signals that a channel scan completed
type ChannelScannedMsg struct {
	Result domain.ScanResult
}

// TickMsg is a general tick message for animations
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
