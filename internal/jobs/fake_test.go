package jobs

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

// step is one scripted GetJob answer
type step struct {
	job domain.Job
	err error
}

// fakeRegistry is a scripted domain.JobRegistry
type fakeRegistry struct {
	mu sync.Mutex

	created  map[string]domain.Job // videoID -> create response
	scripts  map[string][]step     // jobID -> GetJob answers; the last one sticks
	jobs     map[string]domain.Job // jobID -> last answered snapshot, for artifacts
	files    map[string][]byte
	byVideos func(ctx context.Context, ids []string) ([]domain.Job, error)

	// GetJob calls past gateAfter block until gate is closed
	gate      chan struct{}
	gateAfter int

	createCalls   int
	byVideosCalls int
	getCalls      []string // jobIDs in call order
	getTimes      []time.Time
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		created: make(map[string]domain.Job),
		scripts: make(map[string][]step),
		jobs:    make(map[string]domain.Job),
		files:   make(map[string][]byte),
	}
}

func (f *fakeRegistry) script(jobID string, steps ...step) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[jobID] = append(f.scripts[jobID], steps...)
}

func (f *fakeRegistry) holdAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.gateAfter = n
}

func (f *fakeRegistry) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

func (f *fakeRegistry) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.getCalls)
}

func (f *fakeRegistry) getLog() ([]string, []time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.getCalls...), append([]time.Time(nil), f.getTimes...)
}

func (f *fakeRegistry) creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func (f *fakeRegistry) bulkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byVideosCalls
}

func (f *fakeRegistry) CreateJob(ctx context.Context, videoID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	job, ok := f.created[videoID]
	if !ok {
		return nil, &domain.RegistryError{Code: domain.CodeStatus, Op: "POST /downloads", StatusCode: http.StatusNotFound, Message: "video not found"}
	}
	return &job, nil
}

func (f *fakeRegistry) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	f.getCalls = append(f.getCalls, jobID)
	f.getTimes = append(f.getTimes, time.Now())
	gate := f.gate
	if gate != nil && len(f.getCalls) <= f.gateAfter {
		gate = nil
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	steps := f.scripts[jobID]
	if len(steps) == 0 {
		return nil, &domain.RegistryError{Code: domain.CodeStatus, Op: "GET /downloads/" + jobID, StatusCode: http.StatusNotFound, Message: "job not found"}
	}
	next := steps[0]
	if len(steps) > 1 {
		f.scripts[jobID] = steps[1:]
	}
	if next.err != nil {
		return nil, next.err
	}
	f.jobs[jobID] = next.job
	job := next.job
	return &job, nil
}

func (f *fakeRegistry) GetJobsByVideos(ctx context.Context, ids []string) ([]domain.Job, error) {
	f.mu.Lock()
	f.byVideosCalls++
	fn := f.byVideos
	f.mu.Unlock()
	if fn == nil {
		return []domain.Job{}, nil
	}
	return fn(ctx, ids)
}

func (f *fakeRegistry) GetLatestJob(ctx context.Context, videoID string) (*domain.Job, error) {
	return nil, &domain.RegistryError{Code: domain.CodeStatus, Op: "GET /downloads/by_video/" + videoID, StatusCode: http.StatusNotFound, Message: "job not found"}
}

func (f *fakeRegistry) GetArtifact(ctx context.Context, jobID string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok || job.Status != domain.JobStatusSuccess {
		return nil, &domain.RegistryError{Code: domain.CodeNotReady, Op: "GET /downloads/" + jobID + "/file", StatusCode: http.StatusConflict, Message: "file is not ready"}
	}
	return io.NopCloser(bytes.NewReader(f.files[jobID])), nil
}

var transientErr = &domain.RegistryError{Code: domain.CodeTransport, Op: "GET /downloads/j1", Message: "connection refused"}

func running(videoID, jobID string, progress int) domain.Job {
	return domain.Job{JobID: jobID, VideoID: videoID, Status: domain.JobStatusRunning, Progress: progress}
}

func queued(videoID, jobID string) domain.Job {
	return domain.Job{JobID: jobID, VideoID: videoID, Status: domain.JobStatusQueued}
}

func succeeded(videoID, jobID string) domain.Job {
	return domain.Job{JobID: jobID, VideoID: videoID, Status: domain.JobStatusSuccess, Progress: 100, OutputPath: "/data/" + videoID + ".mp4"}
}

// recorder collects every snapshot a State publishes
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func record(s *State) *recorder {
	r := &recorder{}
	s.Subscribe(func(snap Snapshot) {
		r.mu.Lock()
		r.snaps = append(r.snaps, snap)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

// history returns the successive jobs seen for videoID, skipping snapshots without it
func (r *recorder) history(videoID string) []domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Job
	for _, s := range r.snaps {
		if j, ok := s.Jobs[videoID]; ok {
			out = append(out, j)
		}
	}
	return out
}

func testPollConfig() PollConfig {
	return PollConfig{Interval: 10 * time.Millisecond, RetryDelay: 25 * time.Millisecond}
}

// engine wires the three components over a fake registry
type engine struct {
	reg    *fakeRegistry
	state  *State
	poller *Poller
	sync   *Synchronizer
}

func newEngine(cfg PollConfig) *engine {
	reg := newFakeRegistry()
	state := NewState()
	poller := NewPoller(reg, state, cfg, nil)
	return &engine{
		reg:    reg,
		state:  state,
		poller: poller,
		sync:   NewSynchronizer(reg, state, poller, nil),
	}
}

func (e *engine) close() {
	e.reg.release()
	e.poller.Close()
	e.state.Close()
}
