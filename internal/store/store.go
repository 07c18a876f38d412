package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/reel/internal/domain"
)

// Bucket names
var (
	bucketVideos = []byte("videos")
	bucketJobs   = []byte("jobs")

	allBuckets = [][]byte{bucketVideos, bucketJobs}
)

const (
	pagePrefix  = "page:"
	snapshotKey = "snapshot"
)

// CacheStore implements domain.Store using BoltDB.
type CacheStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewCacheStore opens the cache for serverURL under baseCacheDir.
// An empty baseCacheDir keeps everything in memory.
func NewCacheStore(baseCacheDir, serverURL string) (*CacheStore, error) {
	if baseCacheDir == "" {
		return &CacheStore{cache: make(map[string][]byte)}, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "reel.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &CacheStore{db: db, cache: make(map[string][]byte)}, nil
}

// hashServerURL keeps caches for different servers apart
func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *CacheStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *CacheStore) get(bucket []byte, key string, dest any) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *CacheStore) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// scan calls fn for every value under prefix. Bolt is authoritative when
// open; memory-only stores scan the cache map.
func (s *CacheStore) scan(bucket []byte, prefix string, fn func(data []byte)) {
	if s.db == nil {
		cachePrefix := string(bucket) + ":" + prefix
		s.mu.RLock()
		defer s.mu.RUnlock()
		for k, v := range s.cache {
			if strings.HasPrefix(k, cachePrefix) {
				fn(v)
			}
		}
		return
	}

	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			fn(v)
		}
		return nil
	})
}

func (s *CacheStore) deletePrefix(bucket []byte, prefix string) {
	s.mu.Lock()
	cachePrefix := string(bucket) + ":" + prefix
	for k := range s.cache {
		if strings.HasPrefix(k, cachePrefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		// Collect first: deleting under a live cursor skips keys
		var keys [][]byte
		c := b.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// === Catalog pages ===

func (s *CacheStore) GetVideos(filterKey string) ([]domain.Video, bool) {
	var videos []domain.Video
	ok := s.get(bucketVideos, pagePrefix+filterKey, &videos)
	return videos, ok
}

func (s *CacheStore) SaveVideos(filterKey string, videos []domain.Video) error {
	return s.set(bucketVideos, pagePrefix+filterKey, videos)
}

// AllVideos returns every cached video once, across all filter pages
func (s *CacheStore) AllVideos() []domain.Video {
	seen := make(map[string]domain.Video)
	s.scan(bucketVideos, pagePrefix, func(data []byte) {
		var page []domain.Video
		if json.Unmarshal(data, &page) != nil {
			return
		}
		for _, v := range page {
			seen[v.VideoID] = v
		}
	})

	videos := make([]domain.Video, 0, len(seen))
	for _, v := range seen {
		videos = append(videos, v)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].VideoID < videos[j].VideoID })
	return videos
}

// === Job snapshots ===

func (s *CacheStore) GetJobs() (map[string]domain.Job, bool) {
	var jobs map[string]domain.Job
	ok := s.get(bucketJobs, snapshotKey, &jobs)
	return jobs, ok
}

func (s *CacheStore) SaveJobs(jobs map[string]domain.Job) error {
	return s.set(bucketJobs, snapshotKey, jobs)
}

// === Invalidation ===

// InvalidateVideos drops every cached catalog page
func (s *CacheStore) InvalidateVideos() {
	s.deletePrefix(bucketVideos, pagePrefix)
}

func (s *CacheStore) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if err := tx.DeleteBucket(bucket); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ domain.Store = (*CacheStore)(nil)
