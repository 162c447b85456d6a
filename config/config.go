// Package config handles inqwatch configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level inqwatch configuration.
type Config struct {
	Browser  BrowserConfig `yaml:"browser"`
	Watch    WatchConfig   `yaml:"watch"`
	Gate     GateConfig    `yaml:"gate"`
	Sinks    []SinkConfig  `yaml:"sinks"`
	API      APIConfig     `yaml:"api"`
	MCP      MCPConfig     `yaml:"mcp"`
	LogLevel string        `yaml:"log_level"` // debug | info | warn | error
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"` // ws:// devtools URL; empty launches locally
	Headless        *bool         `yaml:"headless"`
	UserDataDir     string        `yaml:"user_data_dir"`
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
}

// WatchConfig controls page observation and extraction scheduling.
type WatchConfig struct {
	StartURL         string          `yaml:"start_url"`
	PollInterval     time.Duration   `yaml:"poll_interval"`
	MutationDebounce time.Duration   `yaml:"mutation_debounce"`
	BurstDelays      []time.Duration `yaml:"burst_delays"`
}

// GateConfig sets the draft fill gate thresholds, in characters.
type GateConfig struct {
	MinFinalLen int `yaml:"min_final_len"`
	MinDraftLen int `yaml:"min_draft_len"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type      string        `yaml:"type"`      // stdout | webhook | history
	URL       string        `yaml:"url"`       // for webhook
	Path      string        `yaml:"path"`      // for history
	Retention time.Duration `yaml:"retention"` // for history; 0 keeps forever
}

// APIConfig controls the local control API.
type APIConfig struct {
	Addr        string `yaml:"addr"`
	TokenBcrypt string `yaml:"token_bcrypt"` // bcrypt hash of the bearer token; empty disables auth
}

// MCPConfig controls the MCP stdio surface.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file and merges it over defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Watch.PollInterval <= 0 {
		c.Watch.PollInterval = time.Second
	}
	if c.Watch.MutationDebounce <= 0 {
		c.Watch.MutationDebounce = 250 * time.Millisecond
	}
	if len(c.Watch.BurstDelays) == 0 {
		// Immediate attempt plus two retries while the SPA finishes
		// rendering.
		c.Watch.BurstDelays = []time.Duration{0, 500 * time.Millisecond, 2 * time.Second}
	}
	if c.Gate.MinFinalLen <= 0 {
		c.Gate.MinFinalLen = 10
	}
	if c.Gate.MinDraftLen <= 0 {
		c.Gate.MinDraftLen = 10
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
	if c.API.Addr == "" {
		c.API.Addr = "127.0.0.1:8652"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sink[%d]: url is required for webhook", i)
			}
		case "history":
			if s.Path == "" {
				return fmt.Errorf("config: sink[%d]: path is required for history", i)
			}
		default:
			return fmt.Errorf("config: sink[%d]: unsupported type %q (use stdout, webhook or history)", i, s.Type)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unsupported log_level %q", c.LogLevel)
	}
	return nil
}
