// Package service exposes the pipeline builder over HTTP: the REST facade
// under /api/v1, the websocket status stream, health, and metrics.
package service

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Mohammedsanin/NeuroBlock/health"
	"github.com/Mohammedsanin/NeuroBlock/metric"
	"github.com/Mohammedsanin/NeuroBlock/session"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"

	// DefaultMaxUploadBytes bounds dataset uploads (25 MB).
	DefaultMaxUploadBytes = 25 << 20

	// DefaultMaxBodyBytes bounds every other request body (2 MB covers
	// the largest plausible pipeline document).
	DefaultMaxBodyBytes = 2 << 20

	// shutdownGrace is how long Stop waits for handler goroutines after
	// the listener closes.
	shutdownGrace = 5 * time.Second
)

// Config configures the HTTP facade.
type Config struct {
	// Addr is the listen address (default ":8080").
	Addr string

	// Session is the pipeline session the facade fronts. Required.
	Session *session.Session

	// Monitor aggregates dependency health for /healthz. Optional; a
	// fresh monitor with no checks reports healthy.
	Monitor *health.Monitor

	// Metrics owns the Prometheus registry behind /metrics. Optional;
	// nil disables the scrape endpoint and all recording.
	Metrics *metric.Registry

	// Logger receives request and lifecycle logs (default slog.Default).
	Logger *slog.Logger

	// AllowedOrigin is the CORS origin echoed on API responses
	// (default "*", matching a dev UI served from another port).
	AllowedOrigin string

	// MaxUploadBytes bounds multipart dataset uploads.
	MaxUploadBytes int64

	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes int64
}

// Server is the HTTP facade over a pipeline session.
type Server struct {
	addr          string
	session       *session.Session
	monitor       *health.Monitor
	registry      *metric.Registry
	metrics       *metric.Metrics
	logger        *slog.Logger
	allowedOrigin string
	maxUpload     int64
	maxBody       int64

	handler http.Handler
	hub     *eventHub

	lifecycleMu sync.Mutex
	running     bool
	listener    net.Listener
	httpServer  *http.Server
	serverWg    *sync.WaitGroup
	shutdown    chan struct{}
}

// New builds a server from config. The handler is ready immediately; Start
// binds the listener.
func New(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("service.New: session is required")
	}

	s := &Server{
		addr:          cfg.Addr,
		session:       cfg.Session,
		monitor:       cfg.Monitor,
		registry:      cfg.Metrics,
		metrics:       cfg.Metrics.Core(),
		logger:        cfg.Logger,
		allowedOrigin: cfg.AllowedOrigin,
		maxUpload:     cfg.MaxUploadBytes,
		maxBody:       cfg.MaxBodyBytes,
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.monitor == nil {
		s.monitor = health.NewMonitor(health.WithLogger(s.logger))
	}
	if s.allowedOrigin == "" {
		s.allowedOrigin = "*"
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}

	s.hub = newEventHub(cfg.Session, s.logger, s.metrics)
	s.handler = s.instrument(s.routes())
	return s, nil
}

// Handler returns the fully wired root handler. Tests mount it on
// httptest servers instead of going through Start.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// routes wires every endpoint onto a method+path mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Stage catalog and canvas.
	mux.HandleFunc("GET /api/v1/stages", s.handleCatalog)
	mux.HandleFunc("GET /api/v1/pipeline", s.handleGraph)
	mux.HandleFunc("POST /api/v1/pipeline/stages/{kind}", s.handlePlaceStage)
	mux.HandleFunc("PATCH /api/v1/pipeline/stages/{kind}/position", s.handleMoveStage)
	mux.HandleFunc("DELETE /api/v1/pipeline/stages/{kind}", s.handleRemoveStage)
	mux.HandleFunc("POST /api/v1/pipeline/arrange", s.handleArrange)

	// Stage configuration.
	mux.HandleFunc("GET /api/v1/pipeline/config/{kind}", s.handleGetConfig)
	mux.HandleFunc("PUT /api/v1/pipeline/config/{kind}", s.handlePutConfig)

	// Dataset lifecycle.
	mux.HandleFunc("POST /api/v1/pipeline/dataset", s.handleUploadDataset)
	mux.HandleFunc("PUT /api/v1/pipeline/dataset/selection", s.handleSelectFeatures)
	mux.HandleFunc("DELETE /api/v1/pipeline/dataset", s.handleClearDataset)

	// Projections.
	mux.HandleFunc("GET /api/v1/pipeline/statuses", s.handleStatuses)
	mux.HandleFunc("GET /api/v1/pipeline/suggestions", s.handleSuggestions)

	// Training and prediction.
	mux.HandleFunc("POST /api/v1/pipeline/train", s.handleTrain)
	mux.HandleFunc("GET /api/v1/pipeline/result", s.handleResult)
	mux.HandleFunc("POST /api/v1/pipeline/predict", s.handlePredict)

	// Explanations.
	mux.HandleFunc("POST /api/v1/explain", s.handleExplain)

	// Documents: transfer and library.
	mux.HandleFunc("GET /api/v1/pipeline/export", s.handleExport)
	mux.HandleFunc("POST /api/v1/pipeline/import", s.handleImport)
	mux.HandleFunc("POST /api/v1/pipelines", s.handleSavePipeline)
	mux.HandleFunc("GET /api/v1/pipelines", s.handleListPipelines)
	mux.HandleFunc("GET /api/v1/pipelines/{id}", s.handleGetPipeline)
	mux.HandleFunc("DELETE /api/v1/pipelines/{id}", s.handleDeletePipeline)
	mux.HandleFunc("POST /api/v1/pipelines/{id}/load", s.handleLoadPipeline)
	mux.HandleFunc("POST /api/v1/pipeline/reset", s.handleReset)

	// Live status stream.
	mux.HandleFunc("GET /ws/events", s.hub.handleEvents)

	// Operational endpoints.
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.registry != nil {
		mux.Handle("GET /metrics", s.registry.Handler())
	}

	return mux
}

// instrument wraps the mux with CORS headers and per-request metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if pattern := r.Pattern; pattern != "" {
			// Record the registered pattern, not the raw path, so
			// /api/v1/pipelines/{id} stays one series.
			route = pattern
		}
		s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))

		if rec.status >= http.StatusInternalServerError {
			s.logger.Error("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		} else {
			s.logger.Debug("request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		}
	})
}

// statusRecorder captures the response status for logging and metrics. It
// forwards Hijack and Flush so the websocket upgrade and streaming scrapes
// work through the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rec *statusRecorder) WriteHeader(status int) {
	if !rec.written {
		rec.status = status
		rec.written = true
	}
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.written = true
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rec.written = true
	return hj.Hijack()
}

func (rec *statusRecorder) Flush() {
	if fl, ok := rec.ResponseWriter.(http.Flusher); ok {
		fl.Flush()
	}
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// Start binds the listener and serves until Stop. It returns once the
// server is accepting connections; serve errors surface through logs and
// a failed Stop.
func (s *Server) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.running {
		return fmt.Errorf("service.Start: server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("service.Start: listen on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.shutdown = make(chan struct{})
	s.serverWg = &sync.WaitGroup{}
	s.running = true

	s.serverWg.Add(1)
	go s.runServer()

	s.logger.Info("builder API listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound listen address, useful when Addr was ":0".
func (s *Server) Addr() string {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) runServer() {
	defer s.serverWg.Done()

	err := s.httpServer.Serve(s.listener)
	if err != nil && err != http.ErrServerClosed {
		select {
		case <-s.shutdown:
			// Expected during Stop.
		default:
			s.logger.Error("HTTP server terminated", "error", err)
		}
	}
}

// Stop drains the server: no new connections, in-flight requests get
// timeout to finish, then websocket clients are closed.
func (s *Server) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.running {
		return nil
	}

	close(s.shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	shutdownErr := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.serverWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.logger.Warn("serve goroutine did not exit in time")
	}

	s.hub.close()

	s.running = false
	s.listener = nil
	s.httpServer = nil

	if shutdownErr != nil {
		return fmt.Errorf("service.Stop: shutdown: %w", shutdownErr)
	}
	s.logger.Info("builder API stopped")
	return nil
}

// handleHealthz reports the aggregate dependency health. Unhealthy maps to
// 503 so orchestration readiness gates hold traffic; degraded stays 200
// with the detail in the body.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	overall := s.monitor.AggregateHealth("neuroblock")

	status := http.StatusOK
	if overall.IsUnhealthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, overall)
}
