package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_IsActive(t *testing.T) {
	tests := []struct {
		status   JobStatus
		expected bool
	}{
		{JobStatusQueued, true},
		{JobStatusRunning, true},
		{JobStatusSuccess, false},
		{JobStatusFailed, false},
		{JobStatus("unknown"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.status.IsActive(), "status %s", tt.status)
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		expected bool
	}{
		{JobStatusQueued, false},
		{JobStatusRunning, false},
		{JobStatusSuccess, true},
		{JobStatusFailed, true},
		{JobStatus("unknown"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.status.IsTerminal(), "status %s", tt.status)
	}
}

func TestJob_Label(t *testing.T) {
	j := Job{JobID: "j1", Status: JobStatusRunning, Progress: 40}
	assert.Equal(t, "running (40%)", j.Label())
}

func TestVideo_Formatting(t *testing.T) {
	dur := 75
	long := 3725
	views := int64(1_340_000)
	small := int64(999)

	assert.Equal(t, "1:15", Video{Duration: &dur}.FormattedDuration())
	assert.Equal(t, "1:02:05", Video{Duration: &long}.FormattedDuration())
	assert.Equal(t, "-", Video{}.FormattedDuration())
	assert.Equal(t, "1.3M", Video{ViewCount: &views}.FormattedViews())
	assert.Equal(t, "999", Video{ViewCount: &small}.FormattedViews())
	assert.Equal(t, "(no title)", Video{}.DisplayTitle())
}

func TestVideoFilter_Key(t *testing.T) {
	yes := true
	a := VideoFilter{Query: "cat", IsShort: &yes}
	b := VideoFilter{Query: "cat"}

	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), VideoFilter{Query: "cat", IsShort: &yes}.Key())
}

func TestRegistryError_Is(t *testing.T) {
	notReady := &RegistryError{Code: CodeNotReady, Op: "GET /downloads/j1/file", StatusCode: 409, Message: "file is not ready"}
	transport := &RegistryError{Code: CodeTransport, Op: "GET /downloads/j1", Message: "dial tcp: refused"}
	notFound := &RegistryError{Code: CodeStatus, Op: "GET /downloads/j9", StatusCode: 404, Message: "job not found"}

	assert.True(t, errors.Is(notReady, ErrNotReady))
	assert.False(t, errors.Is(notReady, ErrTransport))
	assert.True(t, errors.Is(transport, ErrTransport))
	assert.True(t, errors.Is(fmt.Errorf("polling: %w", notFound), ErrNotFound))
	assert.Equal(t, "GET /downloads/j9: 404 job not found", notFound.Error())
}
