package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cwygoda/recipequeue/internal/adapter/api"
	"github.com/cwygoda/recipequeue/internal/adapter/export"
	"github.com/cwygoda/recipequeue/internal/adapter/processor"
	"github.com/cwygoda/recipequeue/internal/adapter/sqlite"
	"github.com/cwygoda/recipequeue/internal/domain"
)

const (
	exportLimit = 10000
	// maxRequestBody caps enqueue request bodies.
	maxRequestBody = 1 << 20
)

// RecipeLister serves the (cached) recipe list. Version changes whenever the
// list under tag was invalidated.
type RecipeLister interface {
	Recipes(ctx context.Context) ([]api.Recipe, error)
	Version(tag string) uint64
}

// VideoInfoFetcher looks up metadata for a video id.
type VideoInfoFetcher interface {
	FetchVideoInfo(ctx context.Context, videoID string) (*api.VideoInfo, error)
}

// HistoryReader lists recorded job outcomes.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]sqlite.Outcome, error)
	CountByStatus(ctx context.Context, status domain.JobStatus) (int64, error)
}

// ActivityReporter tells whether a processing pass is running.
type ActivityReporter interface {
	Running() bool
}

// Deps are the optional collaborators of the server.
type Deps struct {
	Recipes   RecipeLister
	VideoInfo VideoInfoFetcher
	History   HistoryReader
	Activity  ActivityReporter
	Logger    *slog.Logger
}

// Server is the HTTP adapter the app UI talks to.
type Server struct {
	svc    *domain.QueueService
	deps   Deps
	log    *slog.Logger
	mux    *http.ServeMux
	server *http.Server

	// parent of every request context, cancelled by Shutdown to end event streams
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewServer creates a new HTTP server.
func NewServer(svc *domain.QueueService, addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:  svc,
		deps: deps,
		log:  logger.With("component", "http"),
		mux:  http.NewServeMux(),
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())
	s.routes()
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.mux,
		BaseContext: func(net.Listener) context.Context { return s.baseCtx },
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /queue/videos", s.handleEnqueueVideos)
	s.mux.HandleFunc("POST /queue/images", s.handleEnqueueImages)
	s.mux.HandleFunc("GET /queue", s.handleListQueue)
	s.mux.HandleFunc("GET /queue/events", s.handleQueueEvents)
	s.mux.HandleFunc("DELETE /queue/{id}", s.handleDismiss)
	s.mux.HandleFunc("DELETE /queue", s.handleDismissAll)
	s.mux.HandleFunc("GET /recipes", s.handleRecipes)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("GET /history/export", s.handleHistoryExport)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// videoRequest is one entry of POST /queue/videos.
type videoRequest struct {
	URL       string `json:"url"`
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

type enqueueVideosRequest struct {
	Items []videoRequest `json:"items"`
}

type enqueueImagesRequest struct {
	Images []string `json:"images"`
}

// jobResponse is the JSON view of a queued job.
type jobResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Thumbnail  string `json:"thumbnail"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	ImageCount int    `json:"image_count,omitempty"`
}

type queueResponse struct {
	Jobs           []jobResponse `json:"jobs"`
	AllDone        bool          `json:"all_done"`
	Processing     bool          `json:"processing"`
	RecipesVersion uint64        `json:"recipes_version"`
}

type outcomeResponse struct {
	JobID      string `json:"job_id"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	ImageCount int    `json:"image_count,omitempty"`
	FinishedAt string `json:"finished_at"`
}

type historyResponse struct {
	Saved    int64             `json:"saved"`
	Failed   int64             `json:"failed"`
	Outcomes []outcomeResponse `json:"outcomes"`
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleEnqueueVideos(w http.ResponseWriter, r *http.Request) {
	var req enqueueVideosRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		s.writeError(w, http.StatusBadRequest, "items are required")
		return
	}

	items := make([]domain.VideoItem, 0, len(req.Items))
	for i, it := range req.Items {
		item, err := s.resolveVideo(r.Context(), it)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("item %d: %v", i, err))
			return
		}
		items = append(items, item)
	}

	jobs, err := s.svc.EnqueueVideoJobs(items)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, jobsToResponse(jobs))
}

func (s *Server) resolveVideo(ctx context.Context, it videoRequest) (domain.VideoItem, error) {
	ref := it.VideoID
	if ref == "" {
		ref = it.URL
	}
	id, ok := processor.ParseVideoID(ref)
	if !ok {
		return domain.VideoItem{}, errors.New("not a valid YouTube link")
	}

	item := domain.VideoItem{ExternalID: id, Title: it.Title, Thumbnail: it.Thumbnail}
	if (item.Title == "" || item.Thumbnail == "") && s.deps.VideoInfo != nil {
		info, err := s.deps.VideoInfo.FetchVideoInfo(ctx, id)
		if err != nil {
			s.log.Warn("video info lookup failed", "video_id", id, "err", err)
		} else {
			if item.Title == "" {
				item.Title = info.Title
			}
			if item.Thumbnail == "" {
				item.Thumbnail = info.ThumbnailURL
			}
		}
	}
	if item.Thumbnail == "" {
		item.Thumbnail = processor.ThumbnailURL(id)
	}
	if item.Title == "" {
		item.Title = processor.WatchURL(id)
	}
	return item, nil
}

func (s *Server) handleEnqueueImages(w http.ResponseWriter, r *http.Request) {
	var req enqueueImagesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	job, err := s.svc.EnqueueImageBatch(req.Images)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyBatch) {
			s.writeError(w, http.StatusBadRequest, "images are required")
			return
		}
		s.log.Error("enqueue images failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusAccepted, jobToResponse(job))
}

func (s *Server) handleListQueue(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.queueResponse(s.svc.Jobs()))
}

// handleQueueEvents streams queue snapshots as server-sent events.
func (s *Server) handleQueueEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for jobs := range s.svc.Watch(r.Context()) {
		data, err := json.Marshal(s.queueResponse(jobs))
		if err != nil {
			s.log.Error("encode queue event failed", "err", err)
			return
		}
		if _, err := fmt.Fprintf(w, "event: queue\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if !s.svc.DismissJob(r.PathValue("id")) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismissAll(w http.ResponseWriter, r *http.Request) {
	s.svc.DismissAllJobs()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Recipes == nil {
		s.writeError(w, http.StatusNotImplemented, "recipes not configured")
		return
	}
	recipes, err := s.deps.Recipes.Recipes(r.Context())
	if err != nil {
		if errors.Is(err, api.ErrNoToken) {
			s.writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		s.log.Error("fetch recipes failed", "err", err)
		s.writeError(w, http.StatusBadGateway, "failed to fetch recipes")
		return
	}
	if recipes == nil {
		recipes = []api.Recipe{}
	}
	s.writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.writeError(w, http.StatusNotImplemented, "history not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	resp := historyResponse{Outcomes: []outcomeResponse{}}
	outcomes, err := s.deps.History.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("read history failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if resp.Saved, err = s.deps.History.CountByStatus(r.Context(), domain.StatusSuccess); err == nil {
		resp.Failed, err = s.deps.History.CountByStatus(r.Context(), domain.StatusError)
	}
	if err != nil {
		s.log.Error("count history failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	for _, o := range outcomes {
		resp.Outcomes = append(resp.Outcomes, outcomeResponse{
			JobID:      o.JobID,
			Kind:       string(o.Kind),
			Title:      o.Title,
			Status:     string(o.Status),
			Message:    o.Message,
			ImageCount: o.ImageCount,
			FinishedAt: o.FinishedAt.UTC().Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.writeError(w, http.StatusNotImplemented, "history not configured")
		return
	}
	outcomes, err := s.deps.History.Recent(r.Context(), exportLimit)
	if err != nil {
		s.log.Error("read history failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	data, err := export.OutcomesXLSX(outcomes)
	if err != nil {
		s.log.Error("export history failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="recipequeue-history.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) queueResponse(jobs []domain.Job) queueResponse {
	allDone := len(jobs) > 0
	for _, j := range jobs {
		if !j.IsTerminal() {
			allDone = false
			break
		}
	}
	resp := queueResponse{Jobs: jobsToResponse(jobs), AllDone: allDone}
	if s.deps.Activity != nil {
		resp.Processing = s.deps.Activity.Running()
	}
	if s.deps.Recipes != nil {
		resp.RecipesVersion = s.deps.Recipes.Version(domain.RecipesTag)
	}
	return resp
}

// decodeBody reads a size-limited JSON body into v and writes the error
// response when that fails.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	s.writeError(w, http.StatusBadRequest, "invalid JSON")
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func jobsToResponse(jobs []domain.Job) []jobResponse {
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobToResponse(j))
	}
	return out
}

func jobToResponse(job domain.Job) jobResponse {
	return jobResponse{
		ID:         job.ID,
		Kind:       string(job.Kind),
		Title:      job.Title,
		Thumbnail:  job.Thumbnail,
		Status:     string(job.Status),
		Message:    job.Message,
		ImageCount: job.ImageCount(),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
