// Package logging provides config-driven categorized logging for scorenet.
// Every category gets a named child of one zap logger. Logging is controlled
// by debug_mode in the logging config: when false, every category logger is
// a no-op.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"scorenet/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryNetwork  Category = "network"  // Network compilation, node sharing, layering
	CategorySession  Category = "session"  // Session lifecycle, settles, breakage
	CategoryDirector Category = "director" // Full-assert cross checks, score corruption
	CategoryCLI      Category = "cli"      // Command line front end
)

var (
	loggers   = make(map[Category]*zap.Logger)
	loggersMu sync.RWMutex
	base      = zap.NewNop()
	settings  config.LoggingConfig
)

// Configure builds the base zap logger from the logging config and drops the
// category loggers created so far.
func Configure(cfg config.LoggingConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	SetBase(logger, cfg)
	return nil
}

// SetBase installs an already built zap logger as the parent of all category
// loggers.
func SetBase(logger *zap.Logger, cfg config.LoggingConfig) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	base = logger
	settings = cfg
	loggers = make(map[Category]*zap.Logger)
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	return settings.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *zap.Logger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop()
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := base.Named(string(category))
	loggers[category] = l
	return l
}

// Sync flushes the base logger.
func Sync() error {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	return base.Sync()
}
