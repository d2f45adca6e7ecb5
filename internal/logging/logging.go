// Package logging builds the zap loggers used across the engine and CLI.
package logging

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/config"
)

// New constructs a logger from the logging section of the configuration.
// Format "json" produces production-style output, anything else the
// human-readable console encoder.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// MustNew builds a logger and falls back to a no-op logger on error,
// for callers that cannot usefully report a logging setup failure.
func MustNew(cfg config.LoggingConfig) *zap.Logger {
	logger, err := New(cfg)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
