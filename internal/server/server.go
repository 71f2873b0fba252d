// Package server provides the main HTTP server for FleetSight.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetsight/fleetsight/internal/version"
	"github.com/fleetsight/fleetsight/pkg/module"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ModuleSource provides the server with module metadata and routes.
// Defined here (consumer-side) rather than importing the concrete registry.
type ModuleSource interface {
	AllRoutes() map[string][]module.Route
	All() []module.Module
}

// ReadinessChecker verifies that the server is ready to serve traffic.
// Returns nil if ready, an error describing why not otherwise.
type ReadinessChecker func(ctx context.Context) error

// RouteRegistrar allows external packages to register routes on the server
// without creating import cycles (consumer-side interface).
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Server is the main FleetSight HTTP server.
type Server struct {
	httpServer *http.Server
	modules    ModuleSource
	logger     *zap.Logger
	mux        *http.ServeMux
	ready      ReadinessChecker
}

// New creates a new Server with middleware and routes.
// Additional route registrars can be passed to register extra API routes
// (the websocket event stream uses this).
func New(addr string, modules ModuleSource, logger *zap.Logger, ready ReadinessChecker, extraRoutes ...RouteRegistrar) *Server {
	mux := http.NewServeMux()

	s := &Server{
		modules: modules,
		logger:  logger,
		mux:     mux,
		ready:   ready,
	}

	s.registerRoutes()
	for _, r := range extraRoutes {
		r.RegisterRoutes(mux)
	}
	s.mountModuleRoutes()

	// Middleware chain: outermost listed first.
	handler := Chain(mux,
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, []string{"/healthz", "/readyz", "/metrics"}),
		CORSMiddleware,
		SecurityHeadersMiddleware,
		VersionHeaderMiddleware,
		RateLimitMiddleware(100, 200, []string{"/healthz", "/readyz", "/metrics"}),
	)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// registerRoutes sets up all core routes.
func (s *Server) registerRoutes() {
	// Unversioned operational endpoints.
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Versioned API endpoints.
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/modules", s.handleModules)
}

// mountModuleRoutes registers all module routes under /api/v1/{module}/.
func (s *Server) mountModuleRoutes() {
	allRoutes := s.modules.AllRoutes()
	for moduleName, routes := range allRoutes {
		for _, route := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, moduleName, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("module", moduleName),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealthz is a liveness probe -- returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// handleReadyz checks readiness -- returns 200 if the server can serve traffic.
// During model training the readiness checker reports not ready, so load
// balancers hold traffic until the forecaster and detector are fitted.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}

	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string                         `json:"status"`
	Service string                         `json:"service"`
	Version map[string]string              `json:"version"`
	Modules map[string]module.HealthStatus `json:"modules,omitempty"`
}

// ModuleResponse describes a registered module.
type ModuleResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// handleHealth returns detailed health information, including per-module
// health for modules implementing HealthChecker.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Service: "fleetsight",
		Version: version.Map(),
	}

	for _, m := range s.modules.All() {
		hc, ok := m.(module.HealthChecker)
		if !ok {
			continue
		}
		if resp.Modules == nil {
			resp.Modules = make(map[string]module.HealthStatus)
		}
		hs := hc.Health(r.Context())
		resp.Modules[m.Info().Name] = hs
		if hs.Status == "unhealthy" {
			resp.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleModules returns the list of registered modules.
func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	modules := s.modules.All()
	info := make([]ModuleResponse, 0, len(modules))
	for _, m := range modules {
		mi := m.Info()
		info = append(info, ModuleResponse{
			Name:        mi.Name,
			Version:     mi.Version,
			Description: mi.Description,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
