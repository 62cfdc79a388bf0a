// Package server exposes the diagnostics engine over a local HTTP API
// on a unix socket, in the shape privileged helper agents use.
package server

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"diskdock/agent/smart-agent/internal/config"
	"diskdock/agent/smart-agent/internal/devio"
)

// Server wires the diagnostics engine, the smartctl fallback and the
// HTTP surface together. The openDevice and runSmartctl indirections
// exist so handler tests can substitute fakes.
type Server struct {
	cfg         config.Config
	logger      zerolog.Logger
	openDevice  func(index int) (devio.Channel, error)
	runSmartctl smartctlRunner
}

func New(cfg config.Config, logger zerolog.Logger) *Server {
	return &Server{
		cfg:         cfg,
		logger:      logger,
		openDevice:  devio.Open,
		runSmartctl: execSmartctl(cfg.SmartctlPath),
	}
}

// Router builds the chi router with request logging and all routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger(&s.logger))

	r.Get("/v1/health", s.handleHealth)
	r.Get("/v1/smart", s.handleATASmart)
	r.Get("/v1/nvme/smart", s.handleNVMeSmart)
	r.Get("/v1/nvme/identify", s.handleNVMeIdentify)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Start creates the unix socket listener and serves the HTTP API until
// the listener fails.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.Socket), 0o755); err != nil {
		return fmt.Errorf("mkdir socket dir: %w", err)
	}
	_ = os.Remove(s.cfg.Socket)

	l, err := net.Listen("unix", s.cfg.Socket)
	if err != nil {
		return fmt.Errorf("listen unix: %w", err)
	}
	// Restrict perms; the service unit is expected to manage group
	// ownership.
	if runtime.GOOS != "windows" {
		_ = os.Chmod(s.cfg.Socket, 0o660)
	}

	s.logger.Info().Str("socket", s.cfg.Socket).Msg("smart-agent serving")
	return http.Serve(l, s.Router())
}
