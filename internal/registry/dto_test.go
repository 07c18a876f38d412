package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/reel/internal/domain"
)

func TestMapJob_ServerPayload(t *testing.T) {
	payload := `{
		"job_id": "j1",
		"video_id": "a",
		"status": "failed",
		"progress": 12,
		"output_path": null,
		"error_message": "HTTP Error 403",
		"started_at": "2025-03-01T10:00:00.123456",
		"finished_at": "2025-03-01T10:00:05+00:00",
		"created_at": "2025-03-01T09:59:59",
		"updated_at": null
	}`

	var dto JobDTO
	require.NoError(t, json.Unmarshal([]byte(payload), &dto))
	job := MapJob(dto)

	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, 12, job.Progress)
	assert.Empty(t, job.OutputPath)
	assert.Equal(t, "HTTP Error 403", job.ErrorMessage)
	require.NotNil(t, job.StartedAt)
	assert.True(t, time.Date(2025, 3, 1, 10, 0, 0, 123456000, time.UTC).Equal(*job.StartedAt))
	require.NotNil(t, job.FinishedAt)
	assert.Equal(t, 5, job.FinishedAt.Second())
	assert.Nil(t, job.UpdatedAt)
}

func TestMapJob_PartialCreateResponse(t *testing.T) {
	var dto JobDTO
	require.NoError(t, json.Unmarshal([]byte(`{"job_id":"j2","status":"queued"}`), &dto))
	job := MapJob(dto)

	assert.Equal(t, "j2", job.JobID)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
	assert.Zero(t, job.Progress)
	assert.Nil(t, job.CreatedAt)
}

func TestTimestamp_RejectsGarbage(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestIntBool(t *testing.T) {
	var v struct {
		A IntBool `json:"a"`
		B IntBool `json:"b"`
		C IntBool `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":false,"c":null}`), &v))
	assert.True(t, bool(v.A))
	assert.False(t, bool(v.B))
	assert.False(t, bool(v.C))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "job not found", errorMessage([]byte(`{"detail":"job not found"}`), "404 Not Found"))
	assert.Equal(t, "bad gateway", errorMessage([]byte("bad gateway\n"), "502 Bad Gateway"))
	assert.Equal(t, "502 Bad Gateway", errorMessage(nil, "502 Bad Gateway"))
	assert.Contains(t, errorMessage([]byte(`{"detail":[{"loc":["body"]}]}`), ""), "loc")
}
