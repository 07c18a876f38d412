package domain

import (
	"context"
	"io"
)

// JobRegistry is the remote job registry
type JobRegistry interface {
	// CreateJob enqueues a download. The server de-duplicates: an in-flight or
	// completed job for the same video is returned instead of a new one.
	// The response may be partial (no progress, no timestamps).
	CreateJob(ctx context.Context, videoID string) (*Job, error)

	// GetJob returns the full snapshot of a job
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// GetJobsByVideos resolves the latest job for many videos at once.
	// Videos without a job are absent from the result.
	GetJobsByVideos(ctx context.Context, videoIDs []string) ([]Job, error)

	// GetLatestJob returns the most recent job for one video (ErrNotFound if none)
	GetLatestJob(ctx context.Context, videoID string) (*Job, error)

	// GetArtifact streams the downloaded file. Fails with ErrNotReady unless
	// the job succeeded. The caller closes the reader.
	GetArtifact(ctx context.Context, jobID string) (io.ReadCloser, error)
}

// CatalogRepository provides the catalog operations around the engine
type CatalogRepository interface {
	// ListVideos returns the catalog filtered server-side
	ListVideos(ctx context.Context, filter VideoFilter) ([]Video, error)

	// AddVideoByURL ingests one video and returns its id
	AddVideoByURL(ctx context.Context, url string) (string, error)

	// ScanChannel ingests a channel's recent uploads
	ScanChannel(ctx context.Context, req ScanRequest) (*ScanResult, error)

	// Health checks that the server and its dependencies are up
	Health(ctx context.Context) error
}
