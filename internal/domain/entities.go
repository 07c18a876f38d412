package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Video is a catalogued item eligible for download.
// The engine never mutates it; the catalog owns it.
type Video struct {
	VideoID    string     `json:"video_id"`
	WebpageURL string     `json:"webpage_url"`
	Title      string     `json:"title,omitempty"`
	Uploader   string     `json:"uploader,omitempty"`
	UploadDate string     `json:"upload_date,omitempty"` // YYYYMMDD as reported by the server
	Duration   *int       `json:"duration,omitempty"`    // Seconds
	ViewCount  *int64     `json:"view_count,omitempty"`
	IsShort    bool       `json:"is_short"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// DisplayTitle returns the title or a placeholder when the server has none
func (v Video) DisplayTitle() string {
	if v.Title == "" {
		return "(no title)"
	}
	return v.Title
}

// FormattedDuration returns m:ss, or "-" when unknown
func (v Video) FormattedDuration() string {
	if v.Duration == nil {
		return "-"
	}
	d := *v.Duration
	if d >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", d/3600, (d%3600)/60, d%60)
	}
	return fmt.Sprintf("%d:%02d", d/60, d%60)
}

// FormattedViews returns a compact view count, or "-" when unknown
func (v Video) FormattedViews() string {
	if v.ViewCount == nil {
		return "-"
	}
	n := *v.ViewCount
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// VideoIDs extracts the identifiers of videos, preserving order
func VideoIDs(videos []Video) []string {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.VideoID)
	}
	return ids
}

// JobStatus is the lifecycle state of a download job
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsActive returns true while the job may still change (queued or running)
func (s JobStatus) IsActive() bool {
	return s == JobStatusQueued || s == JobStatusRunning
}

// IsTerminal returns true once no further transitions are expected
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

// Job is a server-tracked download of one video.
// Progress is 0-100 and only meaningful together with Status.
type Job struct {
	JobID        string     `json:"job_id"`
	VideoID      string     `json:"video_id"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	OutputPath   string     `json:"output_path,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Label renders status and progress the way the list shows it: "running (40%)"
func (j Job) Label() string {
	return fmt.Sprintf("%s (%d%%)", j.Status, j.Progress)
}

// VideoFilter holds the catalog list query parameters.
// Nil pointers are omitted from the request.
type VideoFilter struct {
	Query       string
	IsShort     *bool
	MinViews    *int64
	MaxDuration *int
}

// Key returns a stable identifier for caching a filtered page
func (f VideoFilter) Key() string {
	short := "any"
	if f.IsShort != nil {
		short = strconv.FormatBool(*f.IsShort)
	}
	minViews := ""
	if f.MinViews != nil {
		minViews = strconv.FormatInt(*f.MinViews, 10)
	}
	maxDur := ""
	if f.MaxDuration != nil {
		maxDur = strconv.Itoa(*f.MaxDuration)
	}
	return fmt.Sprintf("q=%s|short=%s|min=%s|max=%s", f.Query, short, minViews, maxDur)
}

// ScanRequest asks the server to ingest a channel's recent uploads
type ScanRequest struct {
	Channel        string `json:"channel"`
	IncludeShorts  bool   `json:"include_shorts"`
	IncludeVideos  bool   `json:"include_videos"`
	IncludeStreams bool   `json:"include_streams"`
	MaxItems       int    `json:"max_items"`
}

// ScanResult summarizes a channel scan
type ScanResult struct {
	Channel      string         `json:"channel"`
	MaxItems     int            `json:"max_items"`
	Counts       map[string]int `json:"counts"`
	UniqueVideos int            `json:"unique_videos"`
	Inserted     int            `json:"inserted"`
	Updated      int            `json:"updated"`
}
