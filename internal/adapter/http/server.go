// Package http serves the crash data API and the operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crash-data-etl/internal/chat"
	"github.com/couchcryptid/crash-data-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IncidentReader reads persisted incidents and their aggregates.
type IncidentReader interface {
	ListIncidents(ctx context.Context) ([]domain.IncidentRecord, error)
	Dashboard(ctx context.Context) (domain.Dashboard, error)
}

// Retriever ranks incidents against a free-text query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error)
}

// Loader runs one fetch and load of the source data.
type Loader interface {
	Load(ctx context.Context) (domain.LoadResult, error)
}

// ChatRelay answers validated chat requests.
type ChatRelay interface {
	Answer(ctx context.Context, req chat.Request) (string, error)
}

// Services are the dependencies behind the API routes.
type Services struct {
	Incidents IncidentReader
	Retriever Retriever
	Loader    Loader
	Chat      ChatRelay
	Ready     sharedobs.ReadinessChecker
}

// Server exposes the API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server. API routes are mounted at the root and
// again under /api.
func NewServer(addr string, svc Services, logger *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	h := &handlers{svc: svc, logger: logger}
	h.register(router)
	h.register(router.PathPrefix("/api").Subrouter())

	router.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	router.HandleFunc("/readyz", sharedobs.ReadinessHandler(svc.Ready)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.Use(requestLogging(logger))

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
