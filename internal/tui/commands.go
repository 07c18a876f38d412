package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/reel/internal/catalog"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/jobs"
)

// Command factories for async operations

// LoadVideosCmd loads one catalog page
func LoadVideosCmd(svc *catalog.Service, filter domain.VideoFilter) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		videos, err := svc.List(ctx, filter)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading videos"}
		}
		return VideosLoadedMsg{Videos: videos, Filter: filter}
	}
}

// SyncJobsCmd resolves the latest job of every listed video
func SyncJobsCmd(syncer *jobs.Synchronizer, videos []domain.Video) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := syncer.SyncAll(ctx, videos)
		if err != nil {
			return ErrMsg{Err: err, Context: "syncing jobs"}
		}
		return JobsSyncedMsg{Result: result}
	}
}

// StartDownloadCmd creates or re-checks the job for video
func StartDownloadCmd(syncer *jobs.Synchronizer, video domain.Video) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		job, err := syncer.StartDownload(ctx, video)
		if err != nil {
			return ErrMsg{Err: err, Context: "starting download"}
		}
		return DownloadStartedMsg{Video: video, Job: job}
	}
}

// SaveArtifactCmd writes a finished job's file into dir
func SaveArtifactCmd(syncer *jobs.Synchronizer, job domain.Job, dir string) tea.Cmd {
	return func() tea.Msg {
		// Large files; no deadline beyond the transport timeout
		path, err := syncer.SaveArtifact(context.Background(), job, dir)
		if err != nil {
			return ErrMsg{Err: err, Context: "fetching file"}
		}
		return ArtifactSavedMsg{JobID: job.JobID, Path: path}
	}
}

// AddURLCmd ingests a single video
func AddURLCmd(svc *catalog.Service, url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		id, err := svc.AddByURL(ctx, url)
		if err != nil {
			return ErrMsg{Err: err, Context: "adding video"}
		}
		return VideoAddedMsg{VideoID: id}
	}
}

// ScanChannelCmd ingests a channel's recent uploads
func ScanChannelCmd(svc *catalog.Service, req domain.ScanRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		result, err := svc.Scan(ctx, req)
		if err != nil {
			return ErrMsg{Err: err, Context: "scanning channel"}
		}
		return ChannelScannedMsg{Result: *result}
	}
}

// WaitForJobsCmd blocks until the job state changes
func WaitForJobsCmd(updates <-chan jobs.Snapshot) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		snapshot, ok := <-updates
		if !ok {
			return nil
		}
		return JobsUpdatedMsg{Snapshot: snapshot}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
