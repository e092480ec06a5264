// Package core provides the HTTP chassis for the Flux service: a chi router
// with the global middleware chain and the operational endpoints (service
// banner, health). The ingestion pipeline itself runs out-of-band; this
// surface exists so orchestrators and humans can see that the process and
// its database are alive.
package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jamiefw/flux/internal/config"
)

// Server encapsulates the dependencies of the HTTP surface, allowing
// injection during testing.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	HealthProbes []HealthProbe

	// Stats backs the read endpoints. Assigned after construction; when nil
	// the stats routes are not mounted.
	Stats StatsStore

	router *chi.Mux
}

// NewServer prepares the server for route mounting. The caller mounts routes
// via MountRoutes after construction.
func NewServer(cfg *config.Config, logger *slog.Logger, probes ...HealthProbe) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:       cfg,
		Logger:       logger,
		HealthProbes: probes,
		router:       chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
