package registry

import (
	"github.com/mmcdole/reel/internal/domain"
)

// MapJob converts a wire job to the domain type
func MapJob(d JobDTO) domain.Job {
	job := domain.Job{
		JobID:      d.JobID,
		VideoID:    d.VideoID,
		Status:     domain.JobStatus(d.Status),
		StartedAt:  d.StartedAt.Ptr(),
		FinishedAt: d.FinishedAt.Ptr(),
		CreatedAt:  d.CreatedAt.Ptr(),
		UpdatedAt:  d.UpdatedAt.Ptr(),
	}
	if d.Progress != nil {
		job.Progress = *d.Progress
	}
	if d.OutputPath != nil {
		job.OutputPath = *d.OutputPath
	}
	if d.ErrorMessage != nil {
		job.ErrorMessage = *d.ErrorMessage
	}
	return job
}

// MapJobs converts a list of wire jobs
func MapJobs(ds []JobDTO) []domain.Job {
	jobs := make([]domain.Job, 0, len(ds))
	for _, d := range ds {
		jobs = append(jobs, MapJob(d))
	}
	return jobs
}

// MapVideo converts a wire video to the domain type
func MapVideo(d VideoDTO) domain.Video {
	return domain.Video{
		VideoID:    d.VideoID,
		WebpageURL: deref(d.WebpageURL),
		Title:      deref(d.Title),
		Uploader:   deref(d.Uploader),
		UploadDate: deref(d.UploadDate),
		Duration:   d.Duration,
		ViewCount:  d.ViewCount,
		IsShort:    bool(d.IsShort),
		CreatedAt:  d.CreatedAt.Ptr(),
	}
}

// MapVideos converts a list of wire videos
func MapVideos(ds []VideoDTO) []domain.Video {
	videos := make([]domain.Video, 0, len(ds))
	for _, d := range ds {
		videos = append(videos, MapVideo(d))
	}
	return videos
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
