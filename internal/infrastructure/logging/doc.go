// Package logging provides structured diagnostic logging for mql processes.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across every mql component.
//
// It is distinct from the records mql carries over MQTT: those are payloads
// on the bus, this is the process's own operational output (connection
// events, malformed traffic, applied control commands).
//
// # Features
//
//   - Text output for terminals, JSON output for collectors
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connected", "broker", "127.0.0.1:1883")
//	logger.Error("publish failed", "error", err)
package logging
