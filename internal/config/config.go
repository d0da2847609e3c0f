package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPAddr           = ":8099"
	DefaultScanInterval       = 5 * time.Second
	DefaultRequestTimeout     = 10 * time.Second
	DefaultLogLevel           = "info"
	DefaultSetupRatePerMinute = 30
	DefaultSetupBurst         = 5
)

// Config is the top-level configuration of hypermind-agent.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Agent   AgentConfig `yaml:"agent"`
	Entries []EntrySpec `yaml:"entries"`
}

// AgentConfig holds process-wide settings.
type AgentConfig struct {
	// HTTPAddr is the listen address of the REST API, WebSocket stream and
	// /metrics endpoint.
	HTTPAddr string `yaml:"http_addr"`

	// ScanInterval controls how often each configured endpoint is polled.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// RequestTimeout bounds one stats request, connect through body read.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// SetupRatePerMinute limits how many setup or validation probes the API
	// accepts per minute. SetupBurst is the token bucket depth.
	SetupRatePerMinute int `yaml:"setup_rate_per_minute"`
	SetupBurst         int `yaml:"setup_burst"`
}

// EntrySpec declares one configured Hypermind endpoint in the config file.
//
// Data holds the values captured at setup (host, port and optionally the scale
// bounds). Options holds values edited after setup and takes precedence over
// Data for the scale bounds. See ResolveEndpoint.
type EntrySpec struct {
	Data    map[string]any `yaml:"data"`
	Options map[string]any `yaml:"options"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes raw YAML into a Config, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			HTTPAddr:           DefaultHTTPAddr,
			ScanInterval:       DefaultScanInterval,
			RequestTimeout:     DefaultRequestTimeout,
			LogLevel:           DefaultLogLevel,
			SetupRatePerMinute: DefaultSetupRatePerMinute,
			SetupBurst:         DefaultSetupBurst,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Agent.HTTPAddr == "" {
		return fmt.Errorf("agent.http_addr is required")
	}
	if cfg.Agent.ScanInterval <= 0 {
		return fmt.Errorf("agent.scan_interval must be positive")
	}
	if cfg.Agent.RequestTimeout <= 0 {
		return fmt.Errorf("agent.request_timeout must be positive")
	}
	if cfg.Agent.SetupRatePerMinute <= 0 {
		return fmt.Errorf("agent.setup_rate_per_minute must be positive")
	}
	if cfg.Agent.SetupBurst <= 0 {
		return fmt.Errorf("agent.setup_burst must be positive")
	}
	switch strings.ToLower(cfg.Agent.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("agent.log_level: unknown level %q", cfg.Agent.LogLevel)
	}

	seen := make(map[string]int, len(cfg.Entries))
	for i, e := range cfg.Entries {
		ep, err := ResolveEndpoint(e.Data, e.Options)
		if err != nil {
			return fmt.Errorf("entries[%d]: %w", i, err)
		}
		if err := ep.ValidateScale(); err != nil {
			return fmt.Errorf("entries[%d] %q: %w", i, ep.UniqueID(), err)
		}
		if prev, dup := seen[ep.UniqueID()]; dup {
			return fmt.Errorf("entries[%d] %q: duplicate of entries[%d]", i, ep.UniqueID(), prev)
		}
		seen[ep.UniqueID()] = i
	}
	return nil
}
