package registry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/mmcdole/reel/internal/domain"
)

// CreateJob enqueues a download for videoID
func (c *Client) CreateJob(ctx context.Context, videoID string) (*domain.Job, error) {
	var dto JobDTO
	if err := c.doJSON(ctx, http.MethodPost, "/downloads", nil, createJobRequest{VideoID: videoID}, &dto); err != nil {
		return nil, err
	}
	job := MapJob(dto)
	// The create response omits video_id
	if job.VideoID == "" {
		job.VideoID = videoID
	}
	return &job, nil
}

// GetJob returns the full snapshot of a job
func (c *Client) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var dto JobDTO
	if err := c.doJSON(ctx, http.MethodGet, "/downloads/"+url.PathEscape(jobID), nil, nil, &dto); err != nil {
		return nil, err
	}
	job := MapJob(dto)
	return &job, nil
}

// GetJobsByVideos resolves the latest job per video in one request.
// An empty id list makes no request.
func (c *Client) GetJobsByVideos(ctx context.Context, videoIDs []string) ([]domain.Job, error) {
	if len(videoIDs) == 0 {
		return []domain.Job{}, nil
	}
	var dtos []JobDTO
	if err := c.doJSON(ctx, http.MethodPost, "/downloads/by_videos", nil, byVideosRequest{VideoIDs: videoIDs}, &dtos); err != nil {
		return nil, err
	}
	return MapJobs(dtos), nil
}

// GetLatestJob returns the most recent job for videoID
func (c *Client) GetLatestJob(ctx context.Context, videoID string) (*domain.Job, error) {
	var dto JobDTO
	if err := c.doJSON(ctx, http.MethodGet, "/downloads/by_video/"+url.PathEscape(videoID), nil, nil, &dto); err != nil {
		return nil, err
	}
	job := MapJob(dto)
	return &job, nil
}

// GetArtifact streams a finished job's file. A 409 from the server
// becomes a not_ready error.
func (c *Client) GetArtifact(ctx context.Context, jobID string) (io.ReadCloser, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/downloads/"+url.PathEscape(jobID)+"/file", nil, nil)
	if err != nil {
		var regErr *domain.RegistryError
		if errors.As(err, &regErr) && regErr.StatusCode == http.StatusConflict {
			regErr.Code = domain.CodeNotReady
		}
		return nil, err
	}
	return resp.Body, nil
}
