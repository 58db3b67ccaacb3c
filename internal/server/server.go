// Package server exposes the troubleshooting services over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/kubewise/kubewise/internal/agent"
	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/cost"
	"github.com/kubewise/kubewise/internal/diagnose"
	"github.com/kubewise/kubewise/internal/logging"
	"github.com/kubewise/kubewise/internal/optimize"
	"github.com/kubewise/kubewise/internal/queryfilter"
)

type agentService interface {
	Query(ctx context.Context, req agent.Request) (*agent.Result, error)
}

type diagnosticService interface {
	DiagnosePod(ctx context.Context, podName, namespace string) *diagnose.Result
}

type optimizerService interface {
	Recommendations(ctx context.Context, namespace string) *optimize.Response
}

type filterService interface {
	Parse(ctx context.Context, query string) *queryfilter.Response
}

type allocationService interface {
	Allocations(ctx context.Context, cluster, window, node string) ([]cost.Allocation, error)
}

type reportService interface {
	GenerateReport(ctx context.Context, cluster, window string) (*cost.Report, error)
}

// Deps wires the services the HTTP layer fronts.
type Deps struct {
	Agent       agentService
	Diagnostics diagnosticService
	Optimizer   optimizerService
	Filters     filterService
	Cost        allocationService
	Advisor     reportService

	// Providers reports the usable LLM provider names for health checks.
	Providers func() []string
	// ClusterCheck probes Kubernetes connectivity for health checks.
	ClusterCheck func(ctx context.Context) error
}

// Server is the HTTP front end.
type Server struct {
	cfg        *config.Config
	deps       Deps
	logger     *logging.Logger
	httpServer *http.Server
}

func New(cfg *config.Config, deps Deps, logger *logging.Logger) *Server {
	s := &Server{cfg: cfg, deps: deps, logger: logger}

	router := mux.NewRouter()
	router.Use(s.requestMiddleware)

	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/agent/query", s.handleQuery).Methods(http.MethodPost)
	api.HandleFunc("/agent/diagnose-pod", s.handleDiagnosePod).Methods(http.MethodPost)
	api.HandleFunc("/filter/parse-filter", s.handleParseFilter).Methods(http.MethodPost)
	api.HandleFunc("/recommendations/{namespace}", s.handleRecommendations).Methods(http.MethodGet)
	api.HandleFunc("/cost/allocation", s.handleCostAllocation).Methods(http.MethodGet)
	api.HandleFunc("/cost/report", s.handleCostReport).Methods(http.MethodPost)

	origins := cfg.App.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)

	s.httpServer = &http.Server{
		Addr:         cfg.App.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Agent.QueryTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the configured handler chain, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until the listener fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("Starting %s %s on %s", s.cfg.App.Name, s.cfg.App.Version, s.cfg.App.ListenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
