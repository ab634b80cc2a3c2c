package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	"github.com/couchcryptid/parking-ticket-explorer/internal/session"
	"github.com/couchcryptid/parking-ticket-explorer/internal/view"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/language"
)

// Service is the dashboard backend the API drives.
type Service interface {
	sharedobs.ReadinessChecker
	Table() (*domain.Table, error)
	NewSession(ctx context.Context) (session.Session, error)
	Session(ctx context.Context, id string) (session.Session, error)
	Apply(ctx context.Context, id string, ev domain.Event) (domain.Dashboard, error)
	ApplySignals(ctx context.Context, id string, s domain.Signals) (domain.Dashboard, error)
	Dashboard(ctx context.Context, id string) (domain.Dashboard, error)
}

// Server exposes the dashboard API alongside health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	svc        Service
	views      *view.Builder
	geojson    []byte
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes. geojson may be nil when no zip polygons are configured.
func NewServer(addr string, svc Service, geojson []byte, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		svc:     svc,
		views:   view.NewBuilder(language.English),
		geojson: geojson,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/events", s.handleEvent)
	mux.HandleFunc("POST /api/sessions/{id}/signals", s.handleSignals)
	mux.HandleFunc("GET /api/sessions/{id}/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/agencies", s.handleAgencies)
	mux.HandleFunc("GET /api/zipcodes.geojson", s.handleGeoJSON)

	var h http.Handler = handlers.CompressHandler(mux)
	h = handlers.CustomLoggingHandler(io.Discard, h, s.logRequest)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger}),
		handlers.PrintRecoveryStack(false),
	)(h)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Debug("http request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"size", p.Size,
		"duration", time.Since(p.TimeStamp),
	)
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("http handler panic", "error", fmt.Sprint(v...))
}
