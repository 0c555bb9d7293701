// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihandler "github.com/industryrunners/pulse/internal/api/handler/api"
	"github.com/industryrunners/pulse/internal/api/middleware"
	"github.com/industryrunners/pulse/internal/metrics"
)

// Server is the HTTP server for the analytics API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration.
type Config struct {
	Host          string
	Port          int
	APIKeys       []string
	GenerationKey string
	MetricsPath   string
}

// Dependencies carries the services the handlers are built over. Nil
// services disable their routes.
type Dependencies struct {
	Breadth  apihandler.BreadthService
	Screener apihandler.ScreenerService
	Sectors  apihandler.SectorService
	Market   apihandler.MarketData
	Summary  apihandler.SummaryService
	Metrics  *metrics.Registry
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Metrics == nil {
		return nil, fmt.Errorf("metrics registry is required")
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)
	return s, nil
}

// setupRoutes configures all HTTP routes. API routes run behind
// request-id logging, metrics, and API-key auth, in that order.
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	chain := func(h http.Handler) http.Handler {
		h = middleware.APIKeyAuth(cfg.APIKeys)(h)
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
		return metrics.LoggingMiddleware(s.logger)(h)
	}
	handle := func(pattern string, h http.HandlerFunc) {
		s.mux.Handle(pattern, chain(h))
	}

	if deps.Breadth != nil && deps.Screener != nil {
		bh := apihandler.NewBreadthHandler(deps.Breadth, deps.Screener)
		handle("/api/v1/breadth", bh.Realtime)
		handle("/api/v1/breadth/daily", bh.Daily)
		handle("/api/v1/breadth/history", bh.History)
	}
	if deps.Sectors != nil {
		sh := apihandler.NewSectorsHandler(deps.Sectors)
		handle("/api/v1/sectors", sh.Rotation)
		handle("/api/v1/sectors/highs-lows", sh.HighsLows)
	}
	if deps.Market != nil {
		handle("/api/v1/quotes", apihandler.NewQuotesHandler(deps.Market).Get)
	}
	if deps.Summary != nil {
		sh := apihandler.NewSummaryHandler(deps.Summary, cfg.GenerationKey)
		handle("/api/v1/summary", sh.Handle)
	}
	handle("/api/v1/calendar", apihandler.NewCalendarHandler().Get)

	// Operational endpoints stay outside the auth chain.
	s.mux.HandleFunc("/api/health", s.handleHealth)
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	s.mux.Handle(metricsPath, promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
