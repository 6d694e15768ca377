// Package config loads the application configuration from layered YAML
// files and environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opspanel/opspanel/internal/apiclient"
	"github.com/opspanel/opspanel/internal/controller"
	"github.com/opspanel/opspanel/internal/live"
	"github.com/opspanel/opspanel/internal/logging"
)

// Config holds the application configuration.
type Config struct {
	Logging logging.Config    `yaml:"logging"`
	API     apiclient.Config  `yaml:"api"`
	Engine  controller.Config `yaml:"engine"`
	Live    live.Config       `yaml:"live"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
		API:     apiclient.DefaultConfig(),
		Engine:  controller.DefaultConfig(),
		Live:    live.DefaultConfig(),
	}
}

// Load reads configuration from the given directory.
// Order: defaults -> config.yml -> config.local.yml -> env overrides -> validate.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	loadFile(filepath.Join(dir, "config.yml"), cfg)
	loadFile(filepath.Join(dir, "config.local.yml"), cfg)

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section for consistency.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return c.Live.Validate()
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OPSPANEL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OPSPANEL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("OPSPANEL_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("OPSPANEL_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.API.Timeout = d
		}
	}
	if v := os.Getenv("OPSPANEL_LIVE_URL"); v != "" {
		c.Live.URL = v
	}
	if v := os.Getenv("OPSPANEL_LIVE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Live.Enabled = b
		}
	}
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		slog.Warn("reading config file", "file", filename, "error", err)
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("parsing config file", "file", filename, "error", fmt.Errorf("%s: %w", filename, err))
	}
}
