package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/reel/internal/domain"
)

// Queries provides synchronous, cache-only reads.
type Queries struct {
	store domain.Store
}

// NewQueries creates a new Queries instance.
func NewQueries(store domain.Store) *Queries {
	return &Queries{store: store}
}

func (q *Queries) Cached(filter domain.VideoFilter) ([]domain.Video, bool) {
	return q.store.GetVideos(filter.Key())
}

// Search fuzzy-matches query against title and uploader of every cached
// video, best match first
func (q *Queries) Search(query string) []domain.Video {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	videos := q.store.AllVideos()
	targets := make([]string, len(videos))
	for i, v := range videos {
		targets[i] = v.Title + " " + v.Uploader
	}

	ranks := fuzzy.RankFindFold(query, targets)
	sort.Stable(ranks)

	results := make([]domain.Video, 0, len(ranks))
	for _, r := range ranks {
		results = append(results, videos[r.OriginalIndex])
	}
	return results
}
