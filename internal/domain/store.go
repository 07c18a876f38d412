package domain

// Store handles the local cache (BoltDB + memory).
// It only ever holds what the server already reported.
type Store interface {
	// === Catalog pages ===
	GetVideos(filterKey string) ([]Video, bool)
	SaveVideos(filterKey string, videos []Video) error
	AllVideos() []Video

	// === Last known job snapshots ===
	GetJobs() (map[string]Job, bool)
	SaveJobs(jobs map[string]Job) error

	// === Invalidation ===
	InvalidateVideos()
	InvalidateAll()

	Close() error
}
