// Package jobs keeps client-side download job state in step with the
// registry: a shared state map, one polling loop per active job, and the
// synchronizer that seeds both.
package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/mmcdole/reel/internal/domain"
)

// Snapshot is a point-in-time copy of the state. Subscribers own it.
type Snapshot struct {
	Jobs    map[string]domain.Job // videoID -> latest known job
	Stalled map[string]bool       // videoIDs whose polling gave up
}

// Get returns the job for videoID
func (s Snapshot) Get(videoID string) (domain.Job, bool) {
	j, ok := s.Jobs[videoID]
	return j, ok
}

// SnapshotSink persists every new snapshot (the local cache)
type SnapshotSink interface {
	SaveJobs(jobs map[string]domain.Job) error
}

// StateOption configures a State
type StateOption func(*State)

// WithSink persists every write to sink
func WithSink(sink SnapshotSink) StateOption {
	return func(s *State) {
		s.sink = sink
	}
}

// WithStateLogger sets the logger
func WithStateLogger(logger *slog.Logger) StateOption {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// State maps each video to the latest job snapshot the registry reported.
// Entries are replaced whole, never patched. Upsert never deletes;
// ReplaceAll drops every video it is not given.
type State struct {
	// notifyMu serializes write+notify so subscribers see writes in order.
	// Subscribers must not write to the State from their callback.
	notifyMu sync.Mutex

	mu      sync.RWMutex
	jobs    map[string]domain.Job
	stalled map[string]bool
	subs    map[int]func(Snapshot)
	nextSub int
	closed  bool

	sink   SnapshotSink
	logger *slog.Logger
}

// NewState creates an empty State
func NewState(opts ...StateOption) *State {
	s := &State{
		jobs:    make(map[string]domain.Job),
		stalled: make(map[string]bool),
		subs:    make(map[int]func(Snapshot)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore seeds the state from a cached snapshot without touching the sink
func (s *State) Restore(jobs map[string]domain.Job) {
	s.write(func() (bool, bool) {
		for id, j := range jobs {
			s.jobs[id] = j
		}
		return true, false
	})
}

// ReplaceAll rebuilds the map from jobs, keyed by VideoID
func (s *State) ReplaceAll(jobs []domain.Job) {
	s.write(func() (bool, bool) {
		s.jobs = make(map[string]domain.Job, len(jobs))
		s.stalled = make(map[string]bool)
		for _, j := range jobs {
			s.jobs[j.VideoID] = j
		}
		return true, true
	})
}

// Upsert replaces the entry for job.VideoID
func (s *State) Upsert(job domain.Job) {
	s.write(func() (bool, bool) {
		return true, s.putLocked(job)
	})
}

// UpsertCurrent replaces the entry for job.VideoID only while that entry is
// absent or still holds job.JobID. It reports whether the write happened.
func (s *State) UpsertCurrent(job domain.Job) bool {
	return s.write(func() (bool, bool) {
		if cur, ok := s.jobs[job.VideoID]; ok && cur.JobID != job.JobID {
			return false, false
		}
		return true, s.putLocked(job)
	})
}

// putLocked stores job and reports whether the sink should see it. Progress
// ticks are not persisted; a new job or status change is.
func (s *State) putLocked(job domain.Job) bool {
	prev, ok := s.jobs[job.VideoID]
	s.jobs[job.VideoID] = job
	delete(s.stalled, job.VideoID)
	return !ok || prev.JobID != job.JobID || prev.Status != job.Status
}

// MarkStalled flags a video whose polling stopped without a terminal
// status. The flag clears on the next write for that video.
func (s *State) MarkStalled(videoID string) {
	s.write(func() (bool, bool) {
		s.stalled[videoID] = true
		return true, false
	})
}

// Stalled reports whether polling gave up on videoID
func (s *State) Stalled(videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stalled[videoID]
}

// Get returns the latest job for videoID
func (s *State) Get(videoID string) (domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[videoID]
	return j, ok
}

// Len returns the number of videos with a known job
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Snapshot returns a copy of the current state
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every write.
// The returned func unsubscribes.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close drops all subscribers. Later writes are ignored.
func (s *State) Close() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func(Snapshot))
}

// write applies mutate, which reports whether it changed anything and
// whether the result should be persisted, then notifies subscribers.
func (s *State) write(mutate func() (changed, persist bool)) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	changed, persist := mutate()
	if !changed {
		s.mu.Unlock()
		return false
	}
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if persist && s.sink != nil {
		if err := s.sink.SaveJobs(snap.Jobs); err != nil {
			s.logger.Error("failed to persist job snapshot", "error", err)
		}
	}

	for _, fn := range subs {
		fn(snap)
	}
	return true
}

func (s *State) snapshotLocked() Snapshot {
	jobs := make(map[string]domain.Job, len(s.jobs))
	for k, v := range s.jobs {
		jobs[k] = v
	}
	stalled := make(map[string]bool, len(s.stalled))
	for k, v := range s.stalled {
		stalled[k] = v
	}
	return Snapshot{Jobs: jobs, Stalled: stalled}
}

// subscribersLocked returns callbacks in subscription order
func (s *State) subscribersLocked() []func(Snapshot) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	return fns
}

// WaitSettled blocks until every videoID has a terminal job or is
// stalled, and returns the snapshot that satisfied it.
func (s *State) WaitSettled(ctx context.Context, videoIDs []string) (Snapshot, error) {
	settled := func(snap Snapshot) bool {
		for _, id := range videoIDs {
			if snap.Stalled[id] {
				continue
			}
			j, ok := snap.Jobs[id]
			if !ok || !j.Status.IsTerminal() {
				return false
			}
		}
		return true
	}

	updates := make(chan Snapshot, 1)
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		// Keep only the newest snapshot
		select {
		case <-updates:
		default:
		}
		updates <- snap
	})
	defer unsubscribe()

	if snap := s.Snapshot(); settled(snap) {
		return snap, nil
	}

	for {
		select {
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		case snap := <-updates:
			if settled(snap) {
				return snap, nil
			}
		}
	}
}
