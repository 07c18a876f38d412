package jobs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/reel/internal/domain"
)

func TestFetchArtifact(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	e.reg.script("done", step{job: succeeded("a", "done")})
	e.reg.script("busy", step{job: running("b", "busy", 30)})
	e.reg.script("bad", step{job: domain.Job{JobID: "bad", VideoID: "c", Status: domain.JobStatusFailed, ErrorMessage: "HTTP Error 403"}})
	e.reg.files["done"] = []byte("video-bytes")
	for _, id := range []string{"done", "busy", "bad"} {
		job, err := e.reg.GetJob(context.Background(), id)
		require.NoError(t, err)
		e.state.Upsert(*job)
	}
	before := e.state.Snapshot()

	rc, err := e.sync.FetchArtifact(context.Background(), succeeded("a", "done"))
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "video-bytes", string(data))

	_, err = e.sync.FetchArtifact(context.Background(), running("b", "busy", 30))
	assert.ErrorIs(t, err, domain.ErrNotReady)

	_, err = e.sync.FetchArtifact(context.Background(), domain.Job{JobID: "bad", VideoID: "c", Status: domain.JobStatusFailed})
	assert.ErrorIs(t, err, domain.ErrNotReady)

	assert.Equal(t, before, e.state.Snapshot())
}

func TestSaveArtifact(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	e.reg.script("j1", step{job: succeeded("abc123", "j1")})
	_, err := e.reg.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	e.reg.files["j1"] = []byte("mp4")

	dir := filepath.Join(t.TempDir(), "downloads")
	path, err := e.sync.SaveArtifact(context.Background(), succeeded("abc123", "j1"), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc123.mp4"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mp4", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestSaveArtifact_NotReadyWritesNothing(t *testing.T) {
	e := newEngine(testPollConfig())
	defer e.close()

	dir := t.TempDir()
	_, err := e.sync.SaveArtifact(context.Background(), queued("a", "nope"), dir)
	assert.ErrorIs(t, err, domain.ErrNotReady)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "abc.mp4", ArtifactName(domain.Job{JobID: "j1", VideoID: "abc"}))
	assert.Equal(t, "j1.mp4", ArtifactName(domain.Job{JobID: "j1"}))
	assert.Equal(t, "evil.mp4", ArtifactName(domain.Job{JobID: "j1", VideoID: "../evil"}))
}
