package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

// JobFetcher is the registry call a polling loop needs
type JobFetcher interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

// PollConfig tunes polling loops
type PollConfig struct {
	Interval      time.Duration // Between ticks while queued/running
	RetryDelay    time.Duration // After a failed fetch
	MaxRetryDelay time.Duration // Greater than RetryDelay doubles the delay per failure up to this cap
	StallAfter    time.Duration // Continuous failure after which the loop gives up; 0 never gives up
}

// DefaultPollConfig returns 1s ticks, 1.5s retries and no retry bound
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:   1000 * time.Millisecond,
		RetryDelay: 1500 * time.Millisecond,
	}
}

// nextRetryDelay returns the delay after cur failed again
func (c PollConfig) nextRetryDelay(cur time.Duration) time.Duration {
	if c.MaxRetryDelay <= c.RetryDelay {
		return c.RetryDelay
	}
	next := cur * 2
	if next > c.MaxRetryDelay {
		return c.MaxRetryDelay
	}
	return next
}

// loop is the handle of one running poll goroutine
type loop struct {
	jobID  string
	cancel context.CancelFunc
}

// Poller runs at most one polling loop per video. Loops live until the job
// reaches a terminal status, the retry bound is hit, or Close is called.
type Poller struct {
	fetcher JobFetcher
	state   *State
	cfg     PollConfig
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	loops  map[string]*loop // videoID -> active loop
	closed bool
	wg     sync.WaitGroup
}

// NewPoller creates a Poller writing into state
func NewPoller(fetcher JobFetcher, state *State, cfg PollConfig, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultPollConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		fetcher: fetcher,
		state:   state,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		loops:   make(map[string]*loop),
	}
}

// EnsurePolling starts a loop for videoID polling jobID. It returns false
// without doing anything if a loop for videoID is already running, even
// for a different jobID.
func (p *Poller) EnsurePolling(videoID, jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	if _, ok := p.loops[videoID]; ok {
		return false
	}

	ctx, cancel := context.WithCancel(p.ctx)
	l := &loop{jobID: jobID, cancel: cancel}
	p.loops[videoID] = l
	p.wg.Add(1)

	p.logger.Debug("polling started", "videoID", videoID, "jobID", jobID)
	go p.run(ctx, videoID, l)
	return true
}

// Active reports whether a loop is running for videoID
func (p *Poller) Active(videoID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.loops[videoID]
	return ok
}

// ActiveCount returns the number of running loops
func (p *Poller) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.loops)
}

// Close cancels every loop and waits for them to exit
func (p *Poller) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context, videoID string, l *loop) {
	defer p.finish(videoID, l)

	jobID := l.jobID
	retryDelay := p.cfg.RetryDelay
	var failingSince time.Time

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.fetcher.GetJob(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if failingSince.IsZero() {
				failingSince = time.Now()
			}
			if p.cfg.StallAfter > 0 && time.Since(failingSince) >= p.cfg.StallAfter {
				p.logger.Warn("polling stalled", "videoID", videoID, "jobID", jobID, "error", err)
				p.state.MarkStalled(videoID)
				return
			}
			p.logger.Debug("poll tick failed", "videoID", videoID, "jobID", jobID, "retryIn", retryDelay, "error", err)
			if !sleep(ctx, retryDelay) {
				return
			}
			retryDelay = p.cfg.nextRetryDelay(retryDelay)
			continue
		}

		failingSince = time.Time{}
		retryDelay = p.cfg.RetryDelay

		if ctx.Err() != nil {
			return
		}
		if job.VideoID == "" {
			job.VideoID = videoID
		}
		if !p.state.UpsertCurrent(*job) {
			// A sync or download replaced the job this loop was following
			cur, ok := p.state.Get(videoID)
			if !ok || !cur.Status.IsActive() {
				p.logger.Debug("polling superseded", "videoID", videoID, "jobID", jobID)
				return
			}
			p.logger.Debug("polling switched job", "videoID", videoID, "from", jobID, "to", cur.JobID)
			jobID = cur.JobID
			if !sleep(ctx, p.cfg.Interval) {
				return
			}
			continue
		}

		if !job.Status.IsActive() {
			p.logger.Debug("polling finished", "videoID", videoID, "jobID", jobID, "status", job.Status)
			return
		}
		if !sleep(ctx, p.cfg.Interval) {
			return
		}
	}
}

// finish clears the handle unless a newer loop already replaced it
func (p *Poller) finish(videoID string, l *loop) {
	l.cancel()
	p.mu.Lock()
	if p.loops[videoID] == l {
		delete(p.loops, videoID)
	}
	p.mu.Unlock()
	p.wg.Done()
}

// sleep waits d or until ctx is done; false means cancelled
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
