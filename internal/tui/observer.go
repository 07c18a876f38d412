package tui

import "github.com/mmcdole/reel/internal/jobs"

// ChannelObserver adapts jobs.State subscriptions to a channel for Bubble Tea.
// The channel holds at most one pending snapshot; a newer one replaces it.
type ChannelObserver struct {
	ch chan jobs.Snapshot
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver() *ChannelObserver {
	return &ChannelObserver{ch: make(chan jobs.Snapshot, 1)}
}

// Updates returns the receive side for WaitForJobsCmd
func (o *ChannelObserver) Updates() <-chan jobs.Snapshot {
	return o.ch
}

// OnSnapshot queues snapshot without blocking the writer. State delivers
// notifications one at a time, so the drain-then-send never races another send.
func (o *ChannelObserver) OnSnapshot(snapshot jobs.Snapshot) {
	select {
	case o.ch <- snapshot:
		return
	default:
	}

	// Drop the stale pending snapshot
	select {
	case <-o.ch:
	default:
	}

	select {
	case o.ch <- snapshot:
	default:
	}
}

// Attach subscribes the observer to state and returns the unsubscribe func
func (o *ChannelObserver) Attach(state *jobs.State) func() {
	return state.Subscribe(o.OnSnapshot)
}
