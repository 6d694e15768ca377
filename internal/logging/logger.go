// Package logging builds the process-wide slog logger. All records go to
// stdout at the configured level; warnings and errors are duplicated to
// stderr so they survive stdout redirection.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls log output.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("logging: unknown format %q", c.Format)
	}
}

// Initialize builds a logger from the configuration and installs it as the
// slog default.
func Initialize(cfg Config) error {
	logger, err := New(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	slog.Info("logging initialized", "level", cfg.Level, "format", cfg.Format)
	return nil
}

// New creates a logger instance with the given configuration.
func New(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	stdout := newHandler(os.Stdout, cfg.Format, level)
	stderr := withMinLevel(newHandler(os.Stderr, cfg.Format, level), slog.LevelWarn)
	return slog.New(newFanout(stdout, stderr)), nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
}
