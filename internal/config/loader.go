package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"rgbctl/internal/common/fsutil"
	"rgbctl/internal/eventstream"
)

// SearchPaths are tried in order when no config file is given.
var SearchPaths = []string{
	"rgbctl.yaml",
	"~/.config/rgbctl/config.yaml",
	"~/.config/rgbctl/config.toml",
	"~/.config/rgbctl/config.json",
}

// Duration is a time.Duration written as "5s" in every supported format.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Config holds runtime parameters for the CLI.
// Zero values mean "unspecified" and are replaced by flag defaults.
type Config struct {
	// Device is a host[:port] or a full stream URL.
	Device         string   `json:"device" yaml:"device" toml:"device"`
	Targets        []string `json:"targets" yaml:"targets" toml:"targets"`
	BackoffFloor   Duration `json:"backoff_floor" yaml:"backoff_floor" toml:"backoff_floor"`
	BackoffCeiling Duration `json:"backoff_ceiling" yaml:"backoff_ceiling" toml:"backoff_ceiling"`
	DialTimeout    Duration `json:"dial_timeout" yaml:"dial_timeout" toml:"dial_timeout"`
	LogLevel       string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat      string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	MetricsAddr    string   `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
	// ConsoleLog receives the console history when watch exits.
	ConsoleLog string `json:"console_log" yaml:"console_log" toml:"console_log"`

	Sim SimConfig `json:"sim" yaml:"sim" toml:"sim"`
}

// SimConfig configures the device simulator.
type SimConfig struct {
	Addr         string   `json:"addr" yaml:"addr" toml:"addr"`
	Keepalive    Duration `json:"keepalive" yaml:"keepalive" toml:"keepalive"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	PushRate     float64  `json:"push_rate" yaml:"push_rate" toml:"push_rate"`
	PushBurst    int      `json:"push_burst" yaml:"push_burst" toml:"push_burst"`
	DemoInterval Duration `json:"demo_interval" yaml:"demo_interval" toml:"demo_interval"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.ConsoleLog, err = fsutil.ExpandHome(cfg.ConsoleLog); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Discover loads path, or the first of SearchPaths that exists. It returns
// an empty Config when nothing is found and no path was given.
func Discover(path string) (Config, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	found, ok := fsutil.FirstExisting(SearchPaths...)
	if !ok {
		return Config{}, "", nil
	}
	cfg, err := Load(found)
	return cfg, found, err
}

// Validate checks values that cannot be fixed up by defaults.
func (c Config) Validate() error {
	if c.BackoffFloor.Duration < 0 || c.BackoffCeiling.Duration < 0 || c.DialTimeout.Duration < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.BackoffFloor.Duration > 0 && c.BackoffCeiling.Duration > 0 && c.BackoffCeiling.Duration < c.BackoffFloor.Duration {
		return fmt.Errorf("backoff_ceiling %s is below backoff_floor %s", c.BackoffCeiling, c.BackoffFloor)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("unsupported log_format: %s", c.LogFormat)
	}
	if c.Sim.PushRate < 0 || c.Sim.PushBurst < 0 {
		return fmt.Errorf("sim push limits must not be negative")
	}
	return nil
}

// StreamURL resolves Device into the base URL of the device's event stream.
func StreamURL(device string) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", fmt.Errorf("no device configured")
	}
	if strings.Contains(device, "://") {
		if _, err := eventstream.BuildTarget(device, nil); err != nil {
			return "", err
		}
		return device, nil
	}
	return eventstream.BaseURL(device), nil
}
