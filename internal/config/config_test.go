package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/flic2-bridge/internal/flic"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return cfgPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Bridge.Listen != "127.0.0.1:7420" {
		t.Errorf("Bridge.Listen = %q, want %q", cfg.Bridge.Listen, "127.0.0.1:7420")
	}
	if cfg.Bridge.URL != "ws://127.0.0.1:7420" {
		t.Errorf("Bridge.URL = %q, want %q", cfg.Bridge.URL, "ws://127.0.0.1:7420")
	}
	if cfg.Bridge.Timeout != 10*time.Second {
		t.Errorf("Bridge.Timeout = %v, want 10s", cfg.Bridge.Timeout)
	}
	if cfg.Manager.Background {
		t.Error("Manager.Background should default to false")
	}
	if len(cfg.Simulator.Buttons) != 1 {
		t.Errorf("Simulator.Buttons length = %d, want 1", len(cfg.Simulator.Buttons))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	cfgPath := writeConfig(t, `
log_level: debug
bridge:
  listen: 0.0.0.0:9000
  url: wss://flic.example:9000/bridge
  timeout: 3s
manager:
  background: true
simulator:
  buttons:
    - name: F2-Kitchen
      uuid: kitchen
      trigger_mode: click
      latency_mode: low
  discoverable:
    - name: F2-New
    - name: F2-Broken
      fail_with: genuineCheckFailed
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Bridge.Listen != "0.0.0.0:9000" {
		t.Errorf("Bridge.Listen = %q, want %q", cfg.Bridge.Listen, "0.0.0.0:9000")
	}
	if cfg.Bridge.URL != "wss://flic.example:9000/bridge" {
		t.Errorf("Bridge.URL = %q", cfg.Bridge.URL)
	}
	if cfg.Bridge.Timeout != 3*time.Second {
		t.Errorf("Bridge.Timeout = %v, want 3s", cfg.Bridge.Timeout)
	}
	if !cfg.Manager.Background {
		t.Error("Manager.Background = false, want true")
	}
	if len(cfg.Simulator.Buttons) != 1 || cfg.Simulator.Buttons[0].UUID != "kitchen" {
		t.Errorf("Simulator.Buttons = %+v, want one button with uuid kitchen", cfg.Simulator.Buttons)
	}
	if len(cfg.Simulator.Discoverable) != 2 {
		t.Errorf("Simulator.Discoverable length = %d, want 2", len(cfg.Simulator.Discoverable))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log_level: warn\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bridge.Listen != Default().Bridge.Listen {
		t.Errorf("Bridge.Listen = %q, want default", cfg.Bridge.Listen)
	}
	if cfg.Bridge.Timeout != Default().Bridge.Timeout {
		t.Errorf("Bridge.Timeout = %v, want default", cfg.Bridge.Timeout)
	}
}

func TestLoadExpandsToken(t *testing.T) {
	t.Setenv("FLIC2_BRIDGE_TOKEN", "s3cret")

	cfg, err := Load(writeConfig(t, "bridge:\n  token: ${FLIC2_BRIDGE_TOKEN}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bridge.Token != "s3cret" {
		t.Errorf("Bridge.Token = %q, want %q", cfg.Bridge.Token, "s3cret")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default", cfg.LogLevel)
	}

	if _, err := LoadOrDefault(writeConfig(t, "log_level: [")); err == nil {
		t.Error("LoadOrDefault() should surface parse errors")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
		{
			name:    "listen without port",
			modify:  func(c *Config) { c.Bridge.Listen = "localhost" },
			wantErr: true,
		},
		{
			name:    "http url",
			modify:  func(c *Config) { c.Bridge.URL = "http://127.0.0.1:7420" },
			wantErr: true,
		},
		{
			name:    "url without host",
			modify:  func(c *Config) { c.Bridge.URL = "ws://" },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Bridge.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "unknown trigger mode",
			modify:  func(c *Config) { c.Simulator.Buttons[0].TriggerMode = "tap" },
			wantErr: true,
		},
		{
			name:    "unknown latency mode",
			modify:  func(c *Config) { c.Simulator.Buttons[0].LatencyMode = "fast" },
			wantErr: true,
		},
		{
			name:    "negative battery voltage",
			modify:  func(c *Config) { c.Simulator.Buttons[0].BatteryVoltage = -1 },
			wantErr: true,
		},
		{
			name:    "fail_with on a paired button",
			modify:  func(c *Config) { c.Simulator.Buttons[0].FailWith = "userCanceled" },
			wantErr: true,
		},
		{
			name: "duplicate paired uuid",
			modify: func(c *Config) {
				c.Simulator.Buttons = []ButtonConfig{{UUID: "a"}, {UUID: "a"}}
			},
			wantErr: true,
		},
		{
			name: "unknown scanner error",
			modify: func(c *Config) {
				c.Simulator.Discoverable = []ButtonConfig{{FailWith: "exploded"}}
			},
			wantErr: true,
		},
		{
			name: "scanner error that means success",
			modify: func(c *Config) {
				c.Simulator.Discoverable = []ButtonConfig{{FailWith: "unknown"}}
			},
			wantErr: true,
		},
		{
			name: "known scanner error",
			modify: func(c *Config) {
				c.Simulator.Discoverable = []ButtonConfig{{FailWith: "connectionTimeout"}}
			},
			wantErr: false,
		},
		{
			name:    "no simulated buttons",
			modify:  func(c *Config) { c.Simulator.Buttons = nil },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestButtonSpec(t *testing.T) {
	b := ButtonConfig{
		Name:           "F2-Hall",
		Nickname:       "hall",
		UUID:           "hall-uuid",
		SerialNumber:   "BG00-H4LL",
		BatteryVoltage: 2.9,
		TriggerMode:    "clickAndDoubleClick",
		LatencyMode:    "low",
	}
	spec := b.Spec()

	if spec.Name != "F2-Hall" || spec.Nickname != "hall" || spec.UUID != "hall-uuid" {
		t.Errorf("identity fields not copied: %+v", spec)
	}
	if spec.SerialNumber != "BG00-H4LL" {
		t.Errorf("SerialNumber = %q", spec.SerialNumber)
	}
	if spec.BatteryVoltage != 2.9 {
		t.Errorf("BatteryVoltage = %v, want 2.9", spec.BatteryVoltage)
	}
	if spec.TriggerMode != flic.TriggerModeClickAndDoubleClick {
		t.Errorf("TriggerMode = %v, want clickAndDoubleClick", spec.TriggerMode)
	}
	if spec.LatencyMode != flic.LatencyModeLow {
		t.Errorf("LatencyMode = %v, want low", spec.LatencyMode)
	}
}

func TestDiscoverableButtons(t *testing.T) {
	s := SimulatorConfig{
		Discoverable: []ButtonConfig{
			{UUID: "ok"},
			{UUID: "bad", FailWith: "genuineCheckFailed"},
		},
	}
	got := s.DiscoverableButtons()

	if len(got) != 2 {
		t.Fatalf("DiscoverableButtons() length = %d, want 2", len(got))
	}
	if got[0].Spec.UUID != "ok" || got[0].FailWith != 0 {
		t.Errorf("first discoverable = %+v, want uuid ok without failure", got[0])
	}
	if got[1].FailWith != flic.ScannerErrorGenuineCheckFailed {
		t.Errorf("second FailWith = %v, want genuineCheckFailed", got[1].FailWith)
	}
}

func TestPairedSpecs(t *testing.T) {
	specs := Default().Simulator.PairedSpecs()
	if len(specs) != 1 || specs[0].Nickname != "desk" {
		t.Errorf("PairedSpecs() = %+v, want the desk button", specs)
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "flic2-bridge", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# flic2-bridge") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Bridge.Listen != "127.0.0.1:7420" {
		t.Errorf("written config Bridge.Listen = %q, want %q", cfg.Bridge.Listen, "127.0.0.1:7420")
	}
	if cfg.Bridge.Timeout != 10*time.Second {
		t.Errorf("written config Bridge.Timeout = %v, want 10s", cfg.Bridge.Timeout)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of written config error = %v", err)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "flic2-bridge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("log_level: debug\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
