package live

import (
	"fmt"
	"time"
)

// Config controls the change feed connection.
type Config struct {
	Enabled      bool          `yaml:"enabled"`
	URL          string        `yaml:"url"`
	Filter       string        `yaml:"filter"`
	ReconnectMin time.Duration `yaml:"reconnect_min"`
	ReconnectMax time.Duration `yaml:"reconnect_max"`
}

// DefaultConfig returns the default feed configuration. The feed is off
// unless explicitly enabled.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		URL:          "ws://localhost:8080/v1/changes",
		ReconnectMin: time.Second,
		ReconnectMax: 30 * time.Second,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return fmt.Errorf("live: url is required when enabled")
	}
	if c.ReconnectMin <= 0 || c.ReconnectMax < c.ReconnectMin {
		return fmt.Errorf("live: reconnect window %v..%v is invalid", c.ReconnectMin, c.ReconnectMax)
	}
	return nil
}
