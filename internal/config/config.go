package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/sdk/simulator"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Manager   ManagerConfig   `yaml:"manager"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// BridgeConfig holds the websocket bridge settings. The host uses Listen,
// clients use URL; both use Token.
type BridgeConfig struct {
	Listen  string        `yaml:"listen"`
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"` // ${VAR} is expanded from the environment
	Timeout time.Duration `yaml:"timeout"`
}

// ManagerConfig holds the settings passed to configureWithDelegate.
type ManagerConfig struct {
	Background bool `yaml:"background"`
}

// SimulatorConfig describes the buttons of the development host.
type SimulatorConfig struct {
	Buttons      []ButtonConfig `yaml:"buttons"`      // paired at startup
	Discoverable []ButtonConfig `yaml:"discoverable"` // found by scans, in order
}

// ButtonConfig describes one simulated button. Empty identity fields are
// generated.
type ButtonConfig struct {
	Name           string  `yaml:"name,omitempty"`
	Nickname       string  `yaml:"nickname,omitempty"`
	UUID           string  `yaml:"uuid,omitempty"`
	SerialNumber   string  `yaml:"serial_number,omitempty"`
	BatteryVoltage float32 `yaml:"battery_voltage,omitempty"`
	TriggerMode    string  `yaml:"trigger_mode,omitempty"`
	LatencyMode    string  `yaml:"latency_mode,omitempty"`
	FailWith       string  `yaml:"fail_with,omitempty"` // scanner error name, discoverable only
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "flic2-bridge")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Bridge: BridgeConfig{
			Listen:  "127.0.0.1:7420",
			URL:     "ws://127.0.0.1:7420",
			Timeout: 10 * time.Second,
		},
		Simulator: SimulatorConfig{
			Buttons: []ButtonConfig{
				{Name: "F2-Desk", Nickname: "desk", BatteryVoltage: 3.0},
			},
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Bridge.Token = os.ExpandEnv(cfg.Bridge.Token)

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default
// otherwise.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if _, _, err := net.SplitHostPort(c.Bridge.Listen); err != nil {
		return fmt.Errorf("bridge.listen must be host:port, got %q", c.Bridge.Listen)
	}

	u, err := url.Parse(c.Bridge.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("bridge.url must be a ws:// or wss:// URL, got %q", c.Bridge.URL)
	}

	if c.Bridge.Timeout <= 0 {
		return fmt.Errorf("bridge.timeout must be > 0")
	}

	seen := make(map[string]bool)
	for i, b := range c.Simulator.Buttons {
		if err := b.validate(fmt.Sprintf("simulator.buttons[%d]", i)); err != nil {
			return err
		}
		if b.FailWith != "" {
			return fmt.Errorf("simulator.buttons[%d].fail_with is only valid for discoverable buttons", i)
		}
		if b.UUID != "" {
			if seen[b.UUID] {
				return fmt.Errorf("simulator.buttons[%d].uuid %q is duplicated", i, b.UUID)
			}
			seen[b.UUID] = true
		}
	}
	for i, b := range c.Simulator.Discoverable {
		if err := b.validate(fmt.Sprintf("simulator.discoverable[%d]", i)); err != nil {
			return err
		}
	}

	return nil
}

func (b ButtonConfig) validate(field string) error {
	if b.TriggerMode != "" {
		if _, ok := flic.ParseTriggerMode(b.TriggerMode); !ok {
			return fmt.Errorf("%s.trigger_mode %q is not a trigger mode", field, b.TriggerMode)
		}
	}
	if b.LatencyMode != "" {
		if _, ok := flic.ParseLatencyMode(b.LatencyMode); !ok {
			return fmt.Errorf("%s.latency_mode must be \"normal\" or \"low\", got %q", field, b.LatencyMode)
		}
	}
	if b.FailWith != "" {
		code, ok := flic.ParseScannerErrorCode(b.FailWith)
		if !ok {
			return fmt.Errorf("%s.fail_with %q is not a scanner error", field, b.FailWith)
		}
		if code == flic.ScannerErrorUnknown {
			return fmt.Errorf("%s.fail_with %q cannot be simulated", field, b.FailWith)
		}
	}
	if b.BatteryVoltage < 0 {
		return fmt.Errorf("%s.battery_voltage must be >= 0", field)
	}
	return nil
}

const defaultHeader = "# flic2-bridge configuration\n# See DefaultConfigPath for the location this file is read from.\n\n"

// WriteDefault writes the default config to DefaultConfigPath and returns
// the path. It returns ("", nil) when a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking config file: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0o600); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// ParseLogLevel converts a log level string to slog.Level. Unknown values
// default to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Spec converts b to a simulator button. Call Validate first; unparsable
// modes fall back to their zero values.
func (b ButtonConfig) Spec() simulator.ButtonSpec {
	trigger, _ := flic.ParseTriggerMode(b.TriggerMode)
	latency, _ := flic.ParseLatencyMode(b.LatencyMode)
	return simulator.ButtonSpec{
		Name:           b.Name,
		Nickname:       b.Nickname,
		UUID:           b.UUID,
		SerialNumber:   b.SerialNumber,
		BatteryVoltage: b.BatteryVoltage,
		TriggerMode:    trigger,
		LatencyMode:    latency,
	}
}

// PairedSpecs returns the buttons paired at startup.
func (s SimulatorConfig) PairedSpecs() []simulator.ButtonSpec {
	specs := make([]simulator.ButtonSpec, 0, len(s.Buttons))
	for _, b := range s.Buttons {
		specs = append(specs, b.Spec())
	}
	return specs
}

// DiscoverableButtons returns the buttons scans will find, in order.
func (s SimulatorConfig) DiscoverableButtons() []simulator.Discoverable {
	out := make([]simulator.Discoverable, 0, len(s.Discoverable))
	for _, b := range s.Discoverable {
		d := simulator.Discoverable{Spec: b.Spec()}
		if b.FailWith != "" {
			d.FailWith, _ = flic.ParseScannerErrorCode(b.FailWith)
		}
		out = append(out, d)
	}
	return out
}
