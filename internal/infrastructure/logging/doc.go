// Package logging provides structured logging for the W800RF32 bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Severity conventions
//
// The bridge logs the RF pipeline at fixed severities: raw frames and
// classification results at debug, decode failures at warn (with raw bytes),
// unmatched addresses at info, and transport errors at error. Unmatched
// addresses are an expected steady-state condition on a shared RF band and
// are never escalated.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting bridge", "device", "/dev/ttyUSB0")
//	logger.Error("serial read failed", "error", err)
package logging
