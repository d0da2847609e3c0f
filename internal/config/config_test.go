package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
agent:
  http_addr: "127.0.0.1:9000"
  scan_interval: 10s
  request_timeout: 3s
  log_level: debug
entries:
  - data:
      host: 10.0.0.5
      port: 3001
    options:
      scale_max: 20000
`
	cfg := loadFromString(t, yaml)

	if cfg.Agent.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("http_addr: got %q", cfg.Agent.HTTPAddr)
	}
	if cfg.Agent.ScanInterval != 10*time.Second {
		t.Errorf("scan_interval: got %v", cfg.Agent.ScanInterval)
	}
	if cfg.Agent.RequestTimeout != 3*time.Second {
		t.Errorf("request_timeout: got %v", cfg.Agent.RequestTimeout)
	}
	if len(cfg.Entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(cfg.Entries))
	}
	ep, err := ResolveEndpoint(cfg.Entries[0].Data, cfg.Entries[0].Options)
	if err != nil {
		t.Fatalf("ResolveEndpoint() error = %v", err)
	}
	want := EndpointConfig{Host: "10.0.0.5", Port: 3001, ScaleMin: 0, ScaleMax: 20000}
	if ep != want {
		t.Errorf("endpoint: got %+v, want %+v", ep, want)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "agent: {}\n")

	if cfg.Agent.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("default http_addr: got %q, want %q", cfg.Agent.HTTPAddr, DefaultHTTPAddr)
	}
	if cfg.Agent.ScanInterval != DefaultScanInterval {
		t.Errorf("default scan_interval: got %v, want %v", cfg.Agent.ScanInterval, DefaultScanInterval)
	}
	if cfg.Agent.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("default request_timeout: got %v, want %v", cfg.Agent.RequestTimeout, DefaultRequestTimeout)
	}
	if cfg.Agent.SetupRatePerMinute != DefaultSetupRatePerMinute {
		t.Errorf("default setup_rate_per_minute: got %d", cfg.Agent.SetupRatePerMinute)
	}
	if len(cfg.Entries) != 0 {
		t.Errorf("entries: got %d, want 0", len(cfg.Entries))
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative interval", "agent:\n  scan_interval: -1s\n"},
		{"zero timeout", "agent:\n  request_timeout: 0s\n"},
		{"unknown log level", "agent:\n  log_level: chatty\n"},
		{"missing host", "entries:\n  - data:\n      port: 3000\n"},
		{"port out of range", "entries:\n  - data:\n      host: a\n      port: 70000\n"},
		{"inverted scale", "entries:\n  - data:\n      host: a\n      scale_min: 5000\n      scale_max: 100\n"},
		{"equal scale from options", "entries:\n  - data:\n      host: a\n    options:\n      scale_min: 10000\n"},
		{"duplicate endpoint", "entries:\n  - data: {host: a, port: 3000}\n  - data: {host: a}\n"},
		{"malformed yaml", "agent: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_InvalidScaleIsTyped(t *testing.T) {
	_, err := loadStringErr(t, "entries:\n  - data: {host: a, scale_min: 9, scale_max: 9}\n")
	if !errors.Is(err, ErrInvalidScale) {
		t.Fatalf("err = %v, want ErrInvalidScale", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}
