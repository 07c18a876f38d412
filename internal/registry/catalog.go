package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mmcdole/reel/internal/domain"
)

// ListVideos returns the catalog, newest first, filtered server-side
func (c *Client) ListVideos(ctx context.Context, filter domain.VideoFilter) ([]domain.Video, error) {
	var dtos []VideoDTO
	if err := c.doJSON(ctx, http.MethodGet, "/videos", FilterQuery(filter), nil, &dtos); err != nil {
		return nil, err
	}
	return MapVideos(dtos), nil
}

// FilterQuery builds the /videos query string; unset fields are omitted
func FilterQuery(filter domain.VideoFilter) url.Values {
	query := url.Values{}
	if filter.Query != "" {
		query.Set("q", filter.Query)
	}
	if filter.IsShort != nil {
		if *filter.IsShort {
			query.Set("is_short", "1")
		} else {
			query.Set("is_short", "0")
		}
	}
	if filter.MinViews != nil {
		query.Set("min_views", strconv.FormatInt(*filter.MinViews, 10))
	}
	if filter.MaxDuration != nil {
		query.Set("max_duration", strconv.Itoa(*filter.MaxDuration))
	}
	return query
}

// AddVideoByURL asks the server to extract and store one video
func (c *Client) AddVideoByURL(ctx context.Context, videoURL string) (string, error) {
	var resp addByURLResponse
	if err := c.doJSON(ctx, http.MethodPost, "/videos/by_url", nil, addByURLRequest{URL: videoURL}, &resp); err != nil {
		return "", err
	}
	return resp.VideoID, nil
}

// ScanChannel asks the server to ingest a channel's tabs
func (c *Client) ScanChannel(ctx context.Context, req domain.ScanRequest) (*domain.ScanResult, error) {
	var result domain.ScanResult
	if err := c.doJSON(ctx, http.MethodPost, "/sources/scan", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks the server and its database/queue
func (c *Client) Health(ctx context.Context) error {
	var resp healthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, nil, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("health check reported not ok")
	}
	return nil
}

var (
	_ domain.JobRegistry       = (*Client)(nil)
	_ domain.CatalogRepository = (*Client)(nil)
)
