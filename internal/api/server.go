// Package api provides the HTTP monitoring endpoint for the W800RF32 bridge.
//
// The bridge is outbound-only over MQTT; this server exists for operations:
// health probes, a read-only view of configured devices and their last known
// states, and Prometheus metrics.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start()
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-w800/internal/bridges/w800"
	"github.com/nerrad567/gray-logic-w800/internal/device"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthSource reports the bridge's current health.
type HealthSource interface {
	Health() w800.HealthMessage
}

// DeviceSource exposes the configured devices and their current states.
type DeviceSource interface {
	Devices() []device.StateChange
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Health   HealthSource
	Devices  DeviceSource
	Gatherer prometheus.Gatherer
	Version  string
}

// Server is the HTTP monitoring server.
//
// It is created with New() and does not listen until Start() is called.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	health   HealthSource
	devices  DeviceSource
	gatherer prometheus.Gatherer
	version  string
	server   *http.Server
}

// New creates a new API server with the given dependencies.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Health == nil {
		return nil, fmt.Errorf("health source is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device source is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger.With("component", "api"),
		health:   deps.Health,
		devices:  deps.Devices,
		gatherer: deps.Gatherer,
		version:  deps.Version,
	}, nil
}

// Start launches the HTTP listener in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
