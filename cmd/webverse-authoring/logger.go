package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger logs JSON in production and human readable lines everywhere else.
func newLogger(level, environment string, debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	if strings.EqualFold(environment, "production") {
		config = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	if debug {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	return config.Build()
}
