// Package catalog wraps the catalog endpoints (list, add by URL, channel
// scan) with input normalization and a page cache.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mmcdole/reel/internal/domain"
)

const (
	DefaultMaxItems = 30
	MaxMaxItems     = 500
)

// Short filter modes
const (
	ShortsOnly = "shorts"
	LongOnly   = "long"
	AllVideos  = "all"
)

var channelURLPattern = regexp.MustCompile(`youtube\.com/@([^/?#]+)`)

// Service runs catalog requests and keeps the page cache current.
type Service struct {
	repo   domain.CatalogRepository
	store  domain.Store
	logger *slog.Logger
}

// NewService creates a new catalog service.
func NewService(repo domain.CatalogRepository, store domain.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, logger: logger}
}

// List fetches the filtered catalog and caches the page
func (s *Service) List(ctx context.Context, filter domain.VideoFilter) ([]domain.Video, error) {
	videos, err := s.repo.ListVideos(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list videos", "filter", filter.Key(), "error", err)
		return nil, err
	}
	if err := s.store.SaveVideos(filter.Key(), videos); err != nil {
		s.logger.Error("failed to cache videos", "error", err)
	}
	s.logger.Debug("listed videos", "filter", filter.Key(), "count", len(videos))
	return videos, nil
}

// AddByURL ingests one video and drops cached pages
func (s *Service) AddByURL(ctx context.Context, rawURL string) (string, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return "", fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	id, err := s.repo.AddVideoByURL(ctx, u)
	if err != nil {
		s.logger.Error("failed to add video", "url", u, "error", err)
		return "", err
	}
	s.store.InvalidateVideos()
	s.logger.Info("added video", "videoID", id)
	return id, nil
}

// Scan normalizes req, asks the server to ingest the channel and drops
// cached pages
func (s *Service) Scan(ctx context.Context, req domain.ScanRequest) (*domain.ScanResult, error) {
	handle, err := NormalizeChannel(req.Channel)
	if err != nil {
		return nil, err
	}
	if !req.IncludeShorts && !req.IncludeVideos && !req.IncludeStreams {
		return nil, fmt.Errorf("%w: select at least one of shorts, videos or streams", domain.ErrInvalidInput)
	}
	req.Channel = handle
	req.MaxItems = ClampMaxItems(req.MaxItems)

	result, err := s.repo.ScanChannel(ctx, req)
	if err != nil {
		s.logger.Error("failed to scan channel", "channel", handle, "error", err)
		return nil, err
	}
	s.store.InvalidateVideos()
	s.logger.Info("scanned channel", "channel", result.Channel, "inserted", result.Inserted, "updated", result.Updated)
	return result, nil
}

// Health checks the server
func (s *Service) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}

// NormalizeChannel accepts "InnahBee", "@InnahBee" or a youtube.com/@ URL
// and returns the bare handle.
func NormalizeChannel(channel string) (string, error) {
	c := strings.TrimSpace(channel)
	if c == "" {
		return "", fmt.Errorf("%w: channel is required", domain.ErrInvalidInput)
	}
	if m := channelURLPattern.FindStringSubmatch(c); m != nil {
		return m[1], nil
	}
	c = strings.TrimLeft(c, "@")
	if c == "" || strings.ContainsAny(c, "/ ") {
		return "", fmt.Errorf("%w: channel must be a handle like InnahBee, @InnahBee or youtube.com/@InnahBee", domain.ErrInvalidInput)
	}
	return c, nil
}

// ClampMaxItems applies the default for 0 and bounds n to 1..500
func ClampMaxItems(n int) int {
	switch {
	case n == 0:
		return DefaultMaxItems
	case n < 1:
		return 1
	case n > MaxMaxItems:
		return MaxMaxItems
	}
	return n
}

// ShortFilter maps a filter mode to the is_short parameter
func ShortFilter(mode string) *bool {
	var v bool
	switch mode {
	case ShortsOnly:
		v = true
	case LongOnly:
		v = false
	default:
		return nil
	}
	return &v
}
