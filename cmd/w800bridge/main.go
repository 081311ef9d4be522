// W800RF32 bridge daemon.
//
// Reads 4-byte frames from a WGL W800RF32 RF receiver over a serial port,
// decodes X10 command and DS10A-style security transmissions, tracks device
// state for operator-declared devices, and publishes state changes to MQTT.
// A small HTTP endpoint exposes health, device state, and Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/gray-logic-w800/internal/api"
	"github.com/nerrad567/gray-logic-w800/internal/bridges/w800"
	"github.com/nerrad567/gray-logic-w800/internal/device"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-w800/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting W800RF32 bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "devices", len(cfg.Devices))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Metrics registry for /metrics
	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(collectors.NewGoCollector())
	metrics := w800.NewMetrics(metricsRegistry)

	// Device registry and bridge reference each other: the registry notifies
	// the bridge of applied state changes, the bridge feeds decoded events
	// into the registry. The NotifierFunc indirection breaks the cycle.
	var bridge *w800.Bridge
	registry := device.NewRegistry(cfg.Devices, device.NotifierFunc(func(change device.StateChange) {
		bridge.NotifyStateChange(change)
	}), log)
	defer registry.Close()
	log.Info("device registry initialised", "devices", registry.Count())

	bridge = w800.NewBridge(*cfg, mqttClient, registry, metrics, log)

	// Periodic health publishing
	healthInterval := time.Duration(cfg.Bridge.HealthInterval) * time.Second
	reporter := w800.NewHealthReporter(bridge, mqttClient, healthInterval, log)
	reporter.Start()
	defer reporter.Stop()

	// HTTP monitoring endpoint
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Health:   bridge,
			Devices:  registry,
			Gatherer: metricsRegistry,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)
	} else {
		log.Info("API server disabled")
	}

	log.Info("initialisation complete, entering receive loop",
		"device", cfg.Serial.Device,
		"baud", cfg.Serial.Baud,
	)

	// Run supervises serial sessions until the context is cancelled.
	if runErr := bridge.Run(ctx); runErr != nil {
		return fmt.Errorf("bridge: %w", runErr)
	}

	log.Info("shutdown signal received, cleaning up")
	log.Info("W800RF32 bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses W800_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("W800_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
