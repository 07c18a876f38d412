// Package registrytest runs an in-memory download service over HTTP for
// tests. It follows the real server's routes, error envelope and create
// de-duplication, and lets tests script how a job advances between reads.
package registrytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmcdole/reel/internal/domain"
)

// Route names accepted by Calls and FailNext
const (
	RouteCreate   = "create"
	RouteGet      = "get"
	RouteByVideos = "by_videos"
	RouteByVideo  = "by_video"
	RouteFile     = "file"
	RouteVideos   = "videos"
	RouteByURL    = "by_url"
	RouteScan     = "scan"
	RouteHealth   = "health"
)

// naiveLayout is how the real server renders timestamps (no zone)
const naiveLayout = "2006-01-02T15:04:05.000000"

// Server is a fake download service. Its base URL for clients is URL().
type Server struct {
	srv *httptest.Server

	mu        sync.Mutex
	apiKey    string
	videos    map[string]domain.Video
	jobs      map[string]*domain.Job
	order     []string // job ids in creation order
	scripts   map[string][]domain.Job
	artifacts map[string][]byte
	calls     map[string]int
	failures  map[string]int
	lastQuery url.Values
	lastScan  *domain.ScanRequest
	nextID    int
	clock     time.Time
}

// NewServer starts a fake service. An empty apiKey disables the key check.
func NewServer(apiKey string) *Server {
	s := &Server{
		apiKey:    apiKey,
		videos:    make(map[string]domain.Video),
		jobs:      make(map[string]*domain.Job),
		scripts:   make(map[string][]domain.Job),
		artifacts: make(map[string][]byte),
		calls:     make(map[string]int),
		failures:  make(map[string]int),
		clock:     time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Get("/health", s.route(RouteHealth, s.handleHealth))
		r.Get("/videos", s.route(RouteVideos, s.handleListVideos))
		r.Post("/videos/by_url", s.route(RouteByURL, s.handleAddByURL))
		r.Post("/sources/scan", s.route(RouteScan, s.handleScan))
		r.Route("/downloads", func(r chi.Router) {
			r.Post("/", s.route(RouteCreate, s.handleCreate))
			r.Post("/by_videos", s.route(RouteByVideos, s.handleByVideos))
			r.Get("/by_video/{video_id}", s.route(RouteByVideo, s.handleByVideo))
			r.Get("/{job_id}", s.route(RouteGet, s.handleGet))
			r.Get("/{job_id}/file", s.route(RouteFile, s.handleFile))
		})
	})
	s.srv = httptest.NewServer(r)
	return s
}

// URL returns the API base, e.g. http://127.0.0.1:1234/api
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Close shuts the server down
func (s *Server) Close() {
	s.srv.Close()
}

// AddVideo registers a catalog entry
func (s *Server) AddVideo(v domain.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[v.VideoID] = v
}

// PutJob stores a job as-is, registering its video if unknown
func (s *Server) PutJob(job domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[job.VideoID]; !ok {
		s.videos[job.VideoID] = domain.Video{VideoID: job.VideoID}
	}
	s.putJobLocked(job)
}

// Script queues snapshots returned by successive GET /downloads/{id}.
// The last snapshot sticks once the script is exhausted.
func (s *Server) Script(jobID string, steps ...domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[jobID] = append(s.scripts[jobID], steps...)
}

// SetArtifact stores the file served for a job
func (s *Server) SetArtifact(jobID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[jobID] = data
}

// FailNext makes the next n calls to route answer 503
func (s *Server) FailNext(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = n
}

// Calls returns how many requests reached route
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Job returns the server's current copy of a job
func (s *Server) Job(jobID string) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return domain.Job{}, false
	}
	return *j, true
}

// LastQuery returns the query string of the most recent GET /videos
func (s *Server) LastQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// LastScan returns the body of the most recent scan request
func (s *Server) LastScan() *domain.ScanRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// route counts the call and injects scripted failures
func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		fail := s.failures[name] > 0
		if fail {
			s.failures[name]--
		}
		s.mu.Unlock()

		if fail {
			writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
			return
		}
		h(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VideoID string `json:"video_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "video_id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[videoID]; !ok {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	// In-flight job wins, then a finished one whose file still exists
	for i := len(s.order) - 1; i >= 0; i-- {
		j := s.jobs[s.order[i]]
		if j.VideoID == videoID && j.Status.IsActive() {
			writeJSON(w, http.StatusOK, map[string]any{"job_id": j.JobID, "status": j.Status})
			return
		}
	}
	for i := len(s.order) - 1; i >= 0; i-- {
		j := s.jobs[s.order[i]]
		if j.VideoID == videoID && j.Status == domain.JobStatusSuccess && j.OutputPath != "" {
			if _, ok := s.artifacts[j.JobID]; ok {
				writeJSON(w, http.StatusOK, map[string]any{"job_id": j.JobID, "status": j.Status, "output_path": j.OutputPath})
				return
			}
		}
	}

	s.nextID++
	job := domain.Job{
		JobID:   fmt.Sprintf("job-%d", s.nextID),
		VideoID: videoID,
		Status:  domain.JobStatusQueued,
	}
	s.putJobLocked(job)
	writeJSON(w, http.StatusOK, map[string]any{"job_id": job.JobID, "status": job.Status})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if steps := s.scripts[jobID]; len(steps) > 0 {
		next := steps[0]
		if len(steps) > 1 {
			s.scripts[jobID] = steps[1:]
		}
		if next.JobID == "" {
			next.JobID = jobID
		}
		if next.VideoID == "" {
			if cur, ok := s.jobs[jobID]; ok {
				next.VideoID = cur.VideoID
			}
		}
		s.putJobLocked(next)
	}

	job, ok := s.jobs[jobID]
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, encodeJob(*job))
}

func (s *Server) handleByVideos(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VideoIDs []string `json:"video_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0)
	for _, id := range req.VideoIDs {
		if j := s.latestLocked(strings.TrimSpace(id)); j != nil {
			out = append(out, encodeJob(*j))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleByVideo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.latestLocked(chi.URLParam(r, "video_id"))
	if j == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, encodeJob(*j))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	s.mu.Lock()
	job, ok := s.jobs[jobID]
	var data []byte
	var hasFile bool
	if ok {
		data, hasFile = s.artifacts[jobID]
	}
	s.mu.Unlock()

	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "job not found")
	case job.Status != domain.JobStatusSuccess || job.OutputPath == "":
		writeError(w, http.StatusConflict, "file is not ready")
	case !hasFile:
		writeError(w, http.StatusGone, "file missing on disk")
	default:
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(job.OutputPath)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = q

	videos := make([]domain.Video, 0, len(s.videos))
	for _, v := range s.videos {
		if !matches(v, q) {
			continue
		}
		videos = append(videos, v)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].VideoID < videos[j].VideoID })

	out := make([]map[string]any, 0, len(videos))
	for _, v := range videos {
		out = append(out, encodeVideo(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddByURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		writeError(w, http.StatusBadRequest, "extract failed: unsupported url")
		return
	}
	id := u.Query().Get("v")
	if id == "" {
		id = path.Base(u.Path)
	}

	s.mu.Lock()
	if _, ok := s.videos[id]; !ok {
		s.videos[id] = domain.Video{VideoID: id, WebpageURL: raw}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "video_id": id})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req domain.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if strings.TrimSpace(req.Channel) == "" {
		writeError(w, http.StatusBadRequest, "channel is required")
		return
	}
	if !req.IncludeShorts && !req.IncludeVideos && !req.IncludeStreams {
		writeError(w, http.StatusBadRequest, "select at least one of include_shorts/include_videos/include_streams")
		return
	}

	s.mu.Lock()
	s.lastScan = &req
	s.mu.Unlock()

	counts := map[string]int{"shorts": 0, "videos": 0, "streams": 0}
	if req.IncludeShorts {
		counts["shorts"] = req.MaxItems
	}
	if req.IncludeVideos {
		counts["videos"] = req.MaxItems
	}
	writeJSON(w, http.StatusOK, domain.ScanResult{
		Channel:      strings.TrimPrefix(req.Channel, "@"),
		MaxItems:     req.MaxItems,
		Counts:       counts,
		UniqueVideos: counts["shorts"] + counts["videos"],
		Inserted:     counts["shorts"] + counts["videos"],
	})
}

func (s *Server) putJobLocked(job domain.Job) {
	now := s.clock.Add(time.Duration(s.nextID) * time.Second)
	if job.CreatedAt == nil {
		if prev, ok := s.jobs[job.JobID]; ok && prev.CreatedAt != nil {
			job.CreatedAt = prev.CreatedAt
		} else {
			job.CreatedAt = &now
		}
	}
	job.UpdatedAt = &now
	if _, ok := s.jobs[job.JobID]; !ok {
		s.order = append(s.order, job.JobID)
	}
	s.jobs[job.JobID] = &job
}

func (s *Server) latestLocked(videoID string) *domain.Job {
	for i := len(s.order) - 1; i >= 0; i-- {
		if j := s.jobs[s.order[i]]; j.VideoID == videoID {
			return j
		}
	}
	return nil
}

func matches(v domain.Video, q url.Values) bool {
	if term := q.Get("q"); term != "" && !strings.Contains(v.Title, term) {
		return false
	}
	if s := q.Get("is_short"); s != "" {
		if (s == "1") != v.IsShort {
			return false
		}
	}
	if s := q.Get("min_views"); s != "" {
		n, _ := strconv.ParseInt(s, 10, 64)
		if v.ViewCount == nil || *v.ViewCount < n {
			return false
		}
	}
	if s := q.Get("max_duration"); s != "" {
		n, _ := strconv.Atoi(s)
		if v.Duration == nil || *v.Duration > n {
			return false
		}
	}
	return true
}

func encodeJob(j domain.Job) map[string]any {
	return map[string]any{
		"job_id":        j.JobID,
		"video_id":      j.VideoID,
		"status":        j.Status,
		"progress":      j.Progress,
		"output_path":   nullable(j.OutputPath),
		"error_message": nullable(j.ErrorMessage),
		"started_at":    naive(j.StartedAt),
		"finished_at":   naive(j.FinishedAt),
		"created_at":    naive(j.CreatedAt),
		"updated_at":    naive(j.UpdatedAt),
	}
}

func encodeVideo(v domain.Video) map[string]any {
	short := 0
	if v.IsShort {
		short = 1
	}
	return map[string]any{
		"video_id":    v.VideoID,
		"webpage_url": v.WebpageURL,
		"title":       nullable(v.Title),
		"duration":    v.Duration,
		"view_count":  v.ViewCount,
		"upload_date": nullable(v.UploadDate),
		"uploader":    nullable(v.Uploader),
		"is_short":    short,
		"created_at":  naive(v.CreatedAt),
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func naive(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(naiveLayout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
