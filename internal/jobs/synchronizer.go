package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mmcdole/reel/internal/domain"
)

// Synchronizer reconciles videos with the registry. It is the only writer
// to State apart from the Poller's loops.
type Synchronizer struct {
	registry domain.JobRegistry
	state    *State
	poller   *Poller
	logger   *slog.Logger

	// token identifies the latest SyncAll; applyMu makes check+apply atomic
	token   atomic.Uint64
	applyMu sync.Mutex
}

// NewSynchronizer wires a Synchronizer over registry, state and poller
func NewSynchronizer(registry domain.JobRegistry, state *State, poller *Poller, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		registry: registry,
		state:    state,
		poller:   poller,
		logger:   logger,
	}
}

// SyncAll resolves the latest job of every video in one request, rebuilds
// the state from the result and starts polling active jobs. Videos with no
// job end up absent. If another SyncAll was issued after this one, the
// response is discarded and the result is marked Stale.
func (s *Synchronizer) SyncAll(ctx context.Context, videos []domain.Video) (domain.SyncResult, error) {
	token := s.token.Add(1)

	ids := uniqueIDs(videos)
	result := domain.SyncResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}

	jobs, err := s.registry.GetJobsByVideos(ctx, ids)
	if err != nil {
		s.logger.Error("failed to sync jobs", "count", len(ids), "error", err)
		return result, fmt.Errorf("sync jobs: %w", err)
	}

	s.applyMu.Lock()
	if s.token.Load() != token {
		s.applyMu.Unlock()
		s.logger.Debug("discarding stale sync", "token", token)
		result.Stale = true
		return result, nil
	}
	s.state.ReplaceAll(jobs)
	s.applyMu.Unlock()

	result.Resolved = len(jobs)
	for _, j := range jobs {
		if j.Status.IsActive() && s.poller.EnsurePolling(j.VideoID, j.JobID) {
			result.Polling++
		}
	}

	s.logger.Debug("synced jobs", "requested", result.Requested, "resolved", result.Resolved, "polling", result.Polling)
	return result, nil
}

// StartDownload creates (or, through server de-duplication, reuses) a job
// for video, reads its full snapshot once, stores it and polls it until
// terminal.
func (s *Synchronizer) StartDownload(ctx context.Context, video domain.Video) (domain.Job, error) {
	created, err := s.registry.CreateJob(ctx, video.VideoID)
	if err != nil {
		s.logger.Error("failed to create job", "videoID", video.VideoID, "error", err)
		return domain.Job{}, fmt.Errorf("start download: %w", err)
	}

	// The create response may lack progress and timestamps
	job, err := s.registry.GetJob(ctx, created.JobID)
	if err != nil {
		s.logger.Error("failed to read created job", "videoID", video.VideoID, "jobID", created.JobID, "error", err)
		return domain.Job{}, fmt.Errorf("start download: %w", err)
	}
	if job.VideoID == "" {
		job.VideoID = video.VideoID
	}

	s.state.Upsert(*job)
	if !job.Status.IsTerminal() {
		s.poller.EnsurePolling(job.VideoID, job.JobID)
	}

	s.logger.Info("download started", "videoID", job.VideoID, "jobID", job.JobID, "status", job.Status)
	return *job, nil
}

// Resume starts polling every active job in the current state, e.g. after
// restoring a cached snapshot.
func (s *Synchronizer) Resume() int {
	started := 0
	for _, j := range s.state.Snapshot().Jobs {
		if j.Status.IsActive() && s.poller.EnsurePolling(j.VideoID, j.JobID) {
			started++
		}
	}
	return started
}

func uniqueIDs(videos []domain.Video) []string {
	seen := make(map[string]bool, len(videos))
	ids := make([]string, 0, len(videos))
	for _, id := range domain.VideoIDs(videos) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
