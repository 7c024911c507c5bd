// Package api serves the trajectory queries over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/litescript/ls-orbit/internal/feed"
	"github.com/litescript/ls-orbit/internal/logging"
	"github.com/litescript/ls-orbit/internal/observability"
	"github.com/litescript/ls-orbit/internal/track"
)

// Reloader fetches the feed into the store behind the tracker.
type Reloader interface {
	Load(ctx context.Context) (feed.FetchResult, error)
}

// Config holds the server's dependencies.
type Config struct {
	Addr    string
	Tracker *track.Tracker
	Loader  Reloader
	Metrics *observability.Collector
	Logger  *logging.Logger
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	tracker    *track.Tracker
	loader     Reloader
	log        *logging.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	s := &Server{
		tracker: cfg.Tracker,
		loader:  cfg.Loader,
		log:     cfg.Logger,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /{$}", s.handleDataset)
	mux.HandleFunc("GET /epochs", s.handleEpochs)
	mux.HandleFunc("GET /epochs/{epoch}", s.handleStateVector)
	mux.HandleFunc("GET /epochs/{epoch}/speed", s.handleSpeed)
	mux.HandleFunc("GET /epochs/{epoch}/location", s.handleLocation)
	mux.HandleFunc("GET /now", s.handleNow)
	mux.HandleFunc("GET /comment", s.handleComment)
	mux.HandleFunc("GET /header", s.handleHeader)
	mux.HandleFunc("GET /metadata", s.handleMetadata)
	mux.HandleFunc("POST /post-data", s.handlePostData)
	mux.HandleFunc("DELETE /delete-data", s.handleDeleteData)
	mux.HandleFunc("GET /help", handleHelp)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	// Build middleware chain: metrics -> tracing -> logging -> mux.
	var handler http.Handler = mux
	handler = loggingMiddleware(s.log)(handler)
	handler = observability.TracingMiddleware(handler)
	if cfg.Metrics != nil {
		handler = cfg.Metrics.Middleware(handler)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(base *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, reqID := logging.EnsureRequestID(r.Context())
			reqLog := base.With("request_id", reqID)
			ctx = logging.ContextWithLogger(ctx, reqLog)

			w.Header().Set("X-Request-ID", reqID)
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r.WithContext(ctx))

			level := logging.LevelInfo
			if probePath(r.URL.Path) {
				level = logging.LevelDebug
			}
			if !reqLog.Enabled(level) {
				return
			}
			reqLog.Log(ctx, level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
