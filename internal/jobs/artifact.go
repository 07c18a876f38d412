package jobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mmcdole/reel/internal/domain"
)

// FetchArtifact streams the file of a finished job. The registry decides
// readiness; a job that has not succeeded fails with domain.ErrNotReady.
// The state is never touched.
func (s *Synchronizer) FetchArtifact(ctx context.Context, job domain.Job) (io.ReadCloser, error) {
	rc, err := s.registry.GetArtifact(ctx, job.JobID)
	if err != nil {
		s.logger.Debug("artifact unavailable", "videoID", job.VideoID, "jobID", job.JobID, "error", err)
		return nil, fmt.Errorf("fetch artifact: %w", err)
	}
	return rc, nil
}

// SaveArtifact writes the job's file to dir/<video_id>.mp4 and returns the
// path. A partial download never replaces an existing file.
func (s *Synchronizer) SaveArtifact(ctx context.Context, job domain.Job, dir string) (string, error) {
	rc, err := s.FetchArtifact(ctx, job)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".reel-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	dest := filepath.Join(dir, ArtifactName(job))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}

	s.logger.Info("artifact saved", "videoID", job.VideoID, "jobID", job.JobID, "path", dest, "bytes", n)
	return dest, nil
}

// ArtifactName is the local file name for a job's artifact
func ArtifactName(job domain.Job) string {
	name := job.VideoID
	if name == "" {
		name = job.JobID
	}
	return filepath.Base(name) + ".mp4"
}
