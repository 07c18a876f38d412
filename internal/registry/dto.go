package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// JobDTO is a download job as the server encodes it. Create responses
// only carry job_id, status and sometimes output_path.
type JobDTO struct {
	JobID        string    `json:"job_id"`
	VideoID      string    `json:"video_id,omitempty"`
	Status       string    `json:"status"`
	Progress     *int      `json:"progress,omitempty"`
	OutputPath   *string   `json:"output_path,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	StartedAt    Timestamp `json:"started_at"`
	FinishedAt   Timestamp `json:"finished_at"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// VideoDTO is a catalog entry as the server encodes it
type VideoDTO struct {
	VideoID    string    `json:"video_id"`
	WebpageURL *string   `json:"webpage_url"`
	Title      *string   `json:"title"`
	Duration   *int      `json:"duration"`
	ViewCount  *int64    `json:"view_count"`
	UploadDate *string   `json:"upload_date"`
	Uploader   *string   `json:"uploader"`
	IsShort    IntBool   `json:"is_short"`
	CreatedAt  Timestamp `json:"created_at"`
}

type createJobRequest struct {
	VideoID string `json:"video_id"`
}

type byVideosRequest struct {
	VideoIDs []string `json:"video_ids"`
}

type addByURLRequest struct {
	URL string `json:"url"`
}

type addByURLResponse struct {
	OK      bool   `json:"ok"`
	VideoID string `json:"video_id"`
}

type healthResponse struct {
	OK bool `json:"ok"`
}

// errorBody is the server's error envelope
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// Timestamp accepts RFC 3339 and the server's zone-less ISO form, which
// is UTC. A JSON null leaves it unset.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp{Time: parsed.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Ptr returns nil when unset
func (t Timestamp) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// IntBool decodes the server's 0/1 flags as well as JSON booleans
type IntBool bool

func (b *IntBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null", "false", "0":
		*b = false
		return nil
	case "true", "1":
		*b = true
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("flag: unexpected value %s", data)
	}
	*b = n != 0
	return nil
}

func (b IntBool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}
