package registry_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/registry"
	"github.com/mmcdole/reel/internal/registry/registrytest"
)

const testKey = "test-key"

func newClient(t *testing.T) (*registry.Client, *registrytest.Server) {
	t.Helper()
	srv := registrytest.NewServer(testKey)
	t.Cleanup(srv.Close)
	return registry.NewClient(srv.URL(), testKey, registry.WithRateLimit(0)), srv
}

func TestCreateJob_ThenGetJob(t *testing.T) {
	client, srv := newClient(t)
	srv.AddVideo(domain.Video{VideoID: "c"})
	ctx := context.Background()

	created, err := client.CreateJob(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "c", created.VideoID)
	assert.Equal(t, domain.JobStatusQueued, created.Status)
	assert.NotEmpty(t, created.JobID)

	full, err := client.GetJob(ctx, created.JobID)
	require.NoError(t, err)
	assert.Equal(t, created.JobID, full.JobID)
	assert.Equal(t, 0, full.Progress)
	require.NotNil(t, full.CreatedAt)
	assert.Equal(t, time.UTC, full.CreatedAt.Location())
}

func TestCreateJob_DeduplicatesInFlight(t *testing.T) {
	client, srv := newClient(t)
	srv.PutJob(domain.Job{JobID: "j1", VideoID: "a", Status: domain.JobStatusRunning, Progress: 40})

	job, err := client.CreateJob(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "j1", job.JobID)
	assert.Equal(t, domain.JobStatusRunning, job.Status)
}

func TestCreateJob_UnknownVideo(t *testing.T) {
	client, _ := newClient(t)

	_, err := client.CreateJob(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var regErr *domain.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, domain.CodeStatus, regErr.Code)
	assert.Equal(t, "video not found", regErr.Message)
}

func TestGetJobsByVideos(t *testing.T) {
	client, srv := newClient(t)
	srv.PutJob(domain.Job{JobID: "j1", VideoID: "a", Status: domain.JobStatusRunning, Progress: 40})

	jobs, err := client.GetJobsByVideos(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].VideoID)
	assert.Equal(t, 40, jobs[0].Progress)
}

func TestGetJobsByVideos_EmptyMakesNoRequest(t *testing.T) {
	client, srv := newClient(t)

	jobs, err := client.GetJobsByVideos(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 0, srv.Calls(registrytest.RouteByVideos))
}

func TestGetLatestJob(t *testing.T) {
	client, srv := newClient(t)
	srv.PutJob(domain.Job{JobID: "old", VideoID: "a", Status: domain.JobStatusFailed, ErrorMessage: "boom"})
	srv.PutJob(domain.Job{JobID: "new", VideoID: "a", Status: domain.JobStatusQueued})

	job, err := client.GetLatestJob(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "new", job.JobID)

	_, err = client.GetLatestJob(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetArtifact(t *testing.T) {
	client, srv := newClient(t)
	ctx := context.Background()
	srv.PutJob(domain.Job{JobID: "done", VideoID: "a", Status: domain.JobStatusSuccess, OutputPath: "/data/a.mp4"})
	srv.SetArtifact("done", []byte("mp4-bytes"))
	srv.PutJob(domain.Job{JobID: "busy", VideoID: "b", Status: domain.JobStatusRunning})
	srv.PutJob(domain.Job{JobID: "lost", VideoID: "c", Status: domain.JobStatusSuccess, OutputPath: "/data/c.mp4"})

	rc, err := client.GetArtifact(ctx, "done")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))

	_, err = client.GetArtifact(ctx, "busy")
	assert.ErrorIs(t, err, domain.ErrNotReady)

	_, err = client.GetArtifact(ctx, "lost")
	assert.ErrorIs(t, err, domain.ErrArtifactGone)
	assert.False(t, errors.Is(err, domain.ErrNotReady))
}

func TestUnauthorized(t *testing.T) {
	srv := registrytest.NewServer(testKey)
	defer srv.Close()
	client := registry.NewClient(srv.URL(), "wrong")

	err := client.Health(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTransportError(t *testing.T) {
	srv := registrytest.NewServer("")
	base := srv.URL()
	srv.Close()

	client := registry.NewClient(base, "", registry.WithTimeout(time.Second))
	_, err := client.GetJob(context.Background(), "j1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestDecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>proxy page</html>"))
	}))
	defer ts.Close()

	client := registry.NewClient(ts.URL, "")
	_, err := client.GetJob(context.Background(), "j1")

	var regErr *domain.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, domain.CodeDecode, regErr.Code)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer ts.Close()

	client := registry.NewClient(ts.URL+"/", "secret")
	require.NoError(t, client.Health(context.Background()))

	assert.Equal(t, "secret", got.Get("X-API-Key"))
	assert.Len(t, got.Get("X-Request-ID"), 36)
}

func TestListVideos_Filters(t *testing.T) {
	client, srv := newClient(t)
	short := 30
	long := 600
	views := int64(5000)
	srv.AddVideo(domain.Video{VideoID: "s1", Title: "cat short", Duration: &short, ViewCount: &views, IsShort: true})
	srv.AddVideo(domain.Video{VideoID: "l1", Title: "cat long", Duration: &long, ViewCount: &views})

	yes := true
	minViews := int64(1000)
	videos, err := client.ListVideos(context.Background(), domain.VideoFilter{Query: "cat", IsShort: &yes, MinViews: &minViews})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "s1", videos[0].VideoID)
	assert.True(t, videos[0].IsShort)
	assert.Equal(t, 30, *videos[0].Duration)

	q := srv.LastQuery()
	assert.Equal(t, "cat", q.Get("q"))
	assert.Equal(t, "1", q.Get("is_short"))
	assert.Equal(t, "1000", q.Get("min_views"))
	assert.False(t, q.Has("max_duration"))
}

func TestAddVideoByURL(t *testing.T) {
	client, _ := newClient(t)

	id, err := client.AddVideoByURL(context.Background(), "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	_, err = client.AddVideoByURL(context.Background(), "")
	var regErr *domain.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, http.StatusBadRequest, regErr.StatusCode)
	assert.Equal(t, "url is required", regErr.Message)
}

func TestScanChannel(t *testing.T) {
	client, srv := newClient(t)

	res, err := client.ScanChannel(context.Background(), domain.ScanRequest{
		Channel: "InnahBee", IncludeShorts: true, MaxItems: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, "InnahBee", res.Channel)
	assert.Equal(t, 30, res.Counts["shorts"])
	assert.Equal(t, 30, srv.LastScan().MaxItems)
}

func TestRetryableFailureSurfacesStatus(t *testing.T) {
	client, srv := newClient(t)
	srv.PutJob(domain.Job{JobID: "j1", VideoID: "a", Status: domain.JobStatusQueued})
	srv.FailNext(registrytest.RouteGet, 1)

	_, err := client.GetJob(context.Background(), "j1")
	var regErr *domain.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, http.StatusServiceUnavailable, regErr.StatusCode)

	job, err := client.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, "j1", job.JobID)
}

func TestNewClient_NilHTTPClientKeepsDefault(t *testing.T) {
	srv := registrytest.NewServer("k")
	defer srv.Close()

	var c *registry.Client
	require.NotPanics(t, func() {
		c = registry.NewClient(srv.URL(), "k",
			registry.WithHTTPClient(nil),
			registry.WithTimeout(time.Second),
		)
	})
	assert.NoError(t, c.Health(context.Background()))
}
