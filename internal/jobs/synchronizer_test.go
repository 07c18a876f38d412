package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/reel/internal/domain"
)

func videos(ids ...string) []domain.Video {
	out := make([]domain.Video, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Video{VideoID: id})
	}
	return out
}

func TestSyncAll_ResolvesAndStartsPollingActiveOnly(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	e.reg.byVideos = func(ctx context.Context, ids []string) ([]domain.Job, error) {
		assert.Equal(t, []string{"a", "b"}, ids)
		return []domain.Job{running("a", "j1", 40)}, nil
	}
	e.reg.script("j1", step{job: running("a", "j1", 40)})
	e.reg.holdAfter(0)

	res, err := e.sync.SyncAll(context.Background(), videos("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{Requested: 2, Resolved: 1, Polling: 1}, res)

	got, ok := e.state.Get("a")
	require.True(t, ok)
	assert.Equal(t, running("a", "j1", 40), got)
	_, ok = e.state.Get("b")
	assert.False(t, ok)

	assert.True(t, e.poller.Active("a"))
	assert.False(t, e.poller.Active("b"))
	assert.Equal(t, 1, e.poller.ActiveCount())
}

func TestSyncAll_ClearsVideosNoLongerReported(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	e.state.Upsert(succeeded("b", "old"))
	e.reg.byVideos = func(ctx context.Context, ids []string) ([]domain.Job, error) {
		return []domain.Job{succeeded("a", "j1")}, nil
	}

	_, err := e.sync.SyncAll(context.Background(), videos("a", "b"))
	require.NoError(t, err)

	snap := e.state.Snapshot()
	assert.Equal(t, map[string]domain.Job{"a": succeeded("a", "j1")}, snap.Jobs)
	assert.Equal(t, 0, e.poller.ActiveCount())
}

func TestSyncAll_EmptyMakesNoCall(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()
	e.state.Upsert(succeeded("a", "j1"))

	res, err := e.sync.SyncAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncResult{}, res)
	assert.Equal(t, 0, e.reg.bulkCalls())
	assert.Equal(t, 1, e.state.Len())
}

func TestSyncAll_DeduplicatesIDs(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	var got []string
	e.reg.byVideos = func(ctx context.Context, ids []string) ([]domain.Job, error) {
		got = ids
		return nil, nil
	}

	_, err := e.sync.SyncAll(context.Background(), videos("a", "b", "a", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSyncAll_ErrorLeavesStateUnchanged(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()
	rec := record(e.state)

	e.state.Upsert(running("a", "j1", 20))
	e.reg.byVideos = func(ctx context.Context, ids []string) ([]domain.Job, error) {
		return nil, &domain.RegistryError{Code: domain.CodeTransport, Op: "POST /downloads/by_videos", Message: "connection refused"}
	}

	_, err := e.sync.SyncAll(context.Background(), videos("a", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)

	got, _ := e.state.Get("a")
	assert.Equal(t, running("a", "j1", 20), got)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, e.poller.ActiveCount())
}

func TestSyncAll_DiscardsStaleResponse(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	e.reg.byVideos = func(ctx context.Context, ids []string) ([]domain.Job, error) {
		if ids[0] == "old" {
			close(firstStarted)
			<-releaseFirst
			return []domain.Job{succeeded("old", "j-old")}, nil
		}
		return []domain.Job{succeeded("new", "j-new")}, nil
	}

	type outcome struct {
		res domain.SyncResult
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		res, err := e.sync.SyncAll(context.Background(), videos("old"))
		firstDone <- outcome{res, err}
	}()
	<-firstStarted

	res, err := e.sync.SyncAll(context.Background(), videos("new"))
	require.NoError(t, err)
	assert.False(t, res.Stale)

	close(releaseFirst)
	select {
	case out := <-firstDone:
		require.NoError(t, out.err)
		assert.True(t, out.res.Stale)
	case <-time.After(waitFor):
		t.Fatal("first SyncAll did not return")
	}

	snap := e.state.Snapshot()
	assert.Equal(t, map[string]domain.Job{"new": succeeded("new", "j-new")}, snap.Jobs)
}

func TestSyncAll_DoesNotDuplicateRunningLoops(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	e.reg.byVideos = func(ctx context.Context, ids []string) ([]domain.Job, error) {
		return []domain.Job{running("a", "j1", 10)}, nil
	}
	e.reg.script("j1", step{job: running("a", "j1", 10)})
	e.reg.holdAfter(0)

	first, err := e.sync.SyncAll(context.Background(), videos("a"))
	require.NoError(t, err)
	second, err := e.sync.SyncAll(context.Background(), videos("a"))
	require.NoError(t, err)

	assert.Equal(t, 1, first.Polling)
	assert.Equal(t, 0, second.Polling)
	assert.Equal(t, 1, e.poller.ActiveCount())
}

func TestStartDownload_NewJob(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()
	rec := record(e.state)

	e.reg.created["c"] = domain.Job{JobID: "j2", VideoID: "c", Status: domain.JobStatusQueued}
	e.reg.script("j2", step{job: domain.Job{JobID: "j2", VideoID: "c", Status: domain.JobStatusQueued, Progress: 0}})
	e.reg.holdAfter(1) // the loop's first tick blocks

	job, err := e.sync.StartDownload(context.Background(), domain.Video{VideoID: "c"})
	require.NoError(t, err)
	assert.Equal(t, queued("c", "j2"), job)

	got, ok := e.state.Get("c")
	require.True(t, ok)
	assert.Equal(t, queued("c", "j2"), got)

	// One create, one read by StartDownload, one write, one loop whose
	// first fetch is the second GetJob
	require.Eventually(t, func() bool { return e.reg.gets() == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, 1, e.reg.creates())
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 1, e.poller.ActiveCount())
	assert.True(t, e.poller.Active("c"))
}

func TestStartDownload_TerminalJobIsNotPolled(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	// Server de-dup hands back a finished job
	e.reg.created["a"] = domain.Job{JobID: "j1", Status: domain.JobStatusSuccess, OutputPath: "/data/a.mp4"}
	e.reg.script("j1", step{job: succeeded("a", "j1")})

	job, err := e.sync.StartDownload(context.Background(), domain.Video{VideoID: "a"})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSuccess, job.Status)
	assert.Equal(t, 0, e.poller.ActiveCount())
	assert.Equal(t, 1, e.reg.gets())
}

func TestStartDownload_CreateFailure(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()
	rec := record(e.state)

	_, err := e.sync.StartDownload(context.Background(), domain.Video{VideoID: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 0, rec.count())
	assert.Equal(t, 0, e.reg.gets())
	assert.Equal(t, 0, e.poller.ActiveCount())
}

func TestStartDownload_ReadFailure(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	e.reg.created["c"] = queued("c", "j2")
	e.reg.script("j2", step{err: transientErr})

	_, err := e.sync.StartDownload(context.Background(), domain.Video{VideoID: "c"})
	require.Error(t, err)

	var regErr *domain.RegistryError
	assert.True(t, errors.As(err, &regErr))
	assert.Equal(t, 0, e.state.Len())
	assert.Equal(t, 0, e.poller.ActiveCount())
}

func TestResume_PollsRestoredActiveJobs(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	e.reg.holdAfter(0)
	e.state.Restore(map[string]domain.Job{
		"a": running("a", "j1", 10),
		"b": succeeded("b", "j2"),
		"c": queued("c", "j3"),
	})

	assert.Equal(t, 2, e.sync.Resume())
	assert.True(t, e.poller.Active("a"))
	assert.False(t, e.poller.Active("b"))
	assert.True(t, e.poller.Active("c"))
}

func TestResume_LoopFollowsNewerJobFromSync(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()
	rec := record(e.state)

	e.reg.script("j0", step{job: domain.Job{JobID: "j0", VideoID: "a", Status: domain.JobStatusFailed, ErrorMessage: "old"}})
	e.reg.script("j1", step{job: running("a", "j1", 50)}, step{job: succeeded("a", "j1")})
	e.reg.byVideos = func(ctx context.Context, ids []string) ([]domain.Job, error) {
		return []domain.Job{running("a", "j1", 10)}, nil
	}

	// The cached job is outdated; its first fetch is still in flight when the sync lands
	e.reg.holdAfter(0)
	e.state.Restore(map[string]domain.Job{"a": running("a", "j0", 30)})
	require.Equal(t, 1, e.sync.Resume())
	require.Eventually(t, func() bool { return e.reg.gets() == 1 }, waitFor, time.Millisecond)

	res, err := e.sync.SyncAll(context.Background(), videos("a"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Polling)

	e.reg.release()
	require.Eventually(t, func() bool { return !e.poller.Active("a") }, waitFor, 5*time.Millisecond)

	got, _ := e.state.Get("a")
	assert.Equal(t, succeeded("a", "j1"), got)

	calls, _ := e.reg.getLog()
	assert.Equal(t, "j0", calls[0])
	assert.Contains(t, calls[1:], "j1")
	for _, j := range rec.history("a") {
		assert.NotEqual(t, domain.JobStatusFailed, j.Status, "old job overwrote the newer one")
	}
}
