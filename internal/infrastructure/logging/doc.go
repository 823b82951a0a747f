// Package logging provides structured logging for the node config service.
//
// It wraps log/slog: JSON output for production, text for development,
// level filtering, and service/version fields on every entry.
//
// Logging is configured in the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("instance deleted", "id", "device2")
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
