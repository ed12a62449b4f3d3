package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/socialclone/server/internal/config"
	"github.com/socialclone/server/internal/domain"
	"github.com/socialclone/server/internal/metrics"
)

const version = "1.0.0"

// Server is the HTTP server exposing the posts API, health and metrics
// endpoints.
type Server struct {
	cfg        *config.Config
	posts      *domain.PostService
	metrics    *metrics.Metrics
	logger     *slog.Logger
	httpServer *http.Server
	startedAt  time.Time

	mu          sync.Mutex
	activeUsers map[string]struct{}
}

// NewServer creates a new HTTP server around the given post service.
func NewServer(cfg *config.Config, posts *domain.PostService, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		posts:       posts,
		metrics:     m,
		logger:      logger,
		startedAt:   time.Now(),
		activeUsers: make(map[string]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /api/posts", s.handleListPosts)
	mux.HandleFunc("POST /api/posts", s.handleCreatePost)
	mux.HandleFunc("POST /api/trigger-alert", s.handleTriggerAlert)
	mux.HandleFunc("GET /api/system-status", s.handleSystemStatus)

	handler := s.withMetrics(mux)
	handler = withLogging(logger, handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"version":      version,
		"integrations": s.integrationStatus(),
	})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ListRecent(r.Context(), 50)
	if err != nil {
		s.logger.Error("list posts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

type createPostRequest struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	post, err := s.posts.CreatePost(r.Context(), req.Content, req.Author)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "Content and author required")
			return
		}
		s.logger.Error("create post failed", "author", req.Author, "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type triggerAlertRequest struct {
	AlertType   string `json:"alertType"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

func (s *Server) handleTriggerAlert(w http.ResponseWriter, r *http.Request) {
	var req triggerAlertRequest
	if r.Body != nil {
		// Fields are optional; an empty or absent body triggers a test alert.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := s.posts.TriggerAlert(r.Context(), req.AlertType, req.Severity, req.Description)
	if err != nil {
		s.logger.Error("alert trigger failed", "alert_type", req.AlertType, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Alert triggered successfully",
		"integrations": result,
	})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.posts.Ready(ctx); err != nil {
		s.logger.Error("system status: database unreachable", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"database": "unhealthy",
			"error":    "database not reachable",
		})
		return
	}

	count, err := s.posts.CountPosts(ctx)
	if err != nil {
		s.logger.Error("system status: count failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"database": "unhealthy",
			"error":    "database query failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"database":     "healthy",
		"postsCount":   count,
		"uptime":       time.Since(s.startedAt).Seconds(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"environment":  s.cfg.Environment,
		"integrations": s.integrationStatus(),
	})
}

func (s *Server) integrationStatus() map[string]string {
	status := map[string]string{"slack": "disabled", "jira": "disabled"}
	if s.posts.NotifierEnabled() {
		status["slack"] = "enabled"
	}
	if s.posts.TrackerEnabled() {
		status["jira"] = "enabled"
	}
	return status
}

// TrackActiveUsers flushes the active-user set to the gauge at the given
// interval and clears it, so the gauge reports distinct clients per interval.
// It blocks until ctx is cancelled.
func (s *Server) TrackActiveUsers(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.metrics.SetActiveUsers(len(s.activeUsers))
			s.activeUsers = make(map[string]struct{})
			s.mu.Unlock()
		}
	}
}

func (s *Server) touchActiveUser(remoteAddr string) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	s.mu.Lock()
	s.activeUsers[host] = struct{}{}
	s.mu.Unlock()
}

// withMetrics records per-request latency and count, labeled by method,
// matched route pattern and status code.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.touchActiveUser(r.RemoteAddr)

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		s.metrics.RecordRequest(r.Method, route, wrapped.status, time.Since(start))
	})
}

// routePattern returns the matched mux pattern without its method prefix,
// falling back to the raw path for unmatched requests.
func routePattern(r *http.Request) string {
	if r.Pattern == "" {
		return r.URL.Path
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
