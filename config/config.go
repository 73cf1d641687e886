// Package config provides configuration loading and validation for the
// smokewatch service. Configuration is read once at startup from an
// optional JSON or YAML file, overlaid with SMOKEWATCH_* environment
// variables, and immutable afterwards.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grillworks/smokewatch/detector"
)

// Environment variable names recognized by FromEnv
const (
	EnvNATSURL        = "SMOKEWATCH_NATS_URL"
	EnvStream         = "SMOKEWATCH_STREAM"
	EnvSubject        = "SMOKEWATCH_SUBJECT"
	EnvConsumerGroup  = "SMOKEWATCH_CONSUMER_GROUP"
	EnvWindowSize     = "SMOKEWATCH_ROLLING_WINDOW_SIZE"
	EnvStallThreshold = "SMOKEWATCH_STALL_THRESHOLD"
)

// Config is the complete application configuration
type Config struct {
	NATS    NATSConfig     `json:"nats" yaml:"nats"`
	Metrics MetricsConfig  `json:"metrics" yaml:"metrics"`
	Alerts  AlertsConfig   `json:"alerts" yaml:"alerts"`
	Sensors []SensorConfig `json:"sensors" yaml:"sensors"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URL           string        `json:"url" yaml:"url"`
	Name          string        `json:"name,omitempty" yaml:"name,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty" yaml:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty" yaml:"reconnect_wait,omitempty"`
	PingInterval  time.Duration `json:"ping_interval,omitempty" yaml:"ping_interval,omitempty"`
	DrainTimeout  time.Duration `json:"drain_timeout,omitempty" yaml:"drain_timeout,omitempty"`
	Username      string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password      string        `json:"password,omitempty" yaml:"password,omitempty"`
}

// MetricsConfig defines the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// AlertsConfig defines the JSONL alert sink
type AlertsConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Directory  string `json:"directory,omitempty" yaml:"directory,omitempty"`
	FilePrefix string `json:"file_prefix,omitempty" yaml:"file_prefix,omitempty"`
	BufferSize int    `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`
}

// SensorConfig describes one monitored sensor stream. Each sensor gets its
// own monitor instance with an independent rolling window.
type SensorConfig struct {
	Name     string          `json:"name" yaml:"name"`
	Stream   string          `json:"stream" yaml:"stream"`
	Subject  string          `json:"subject" yaml:"subject"`
	Durable  string          `json:"durable,omitempty" yaml:"durable,omitempty"`
	Detector detector.Config `json:"detector" yaml:"detector"`
}

// UnmarshalYAML seeds detector defaults before decoding so a sensor entry
// that omits window_size or stall_threshold gets the stock parameters while
// an explicit zero threshold is preserved.
func (s *SensorConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain SensorConfig
	out := plain{Detector: detector.DefaultConfig()}
	if err := value.Decode(&out); err != nil {
		return err
	}
	*s = SensorConfig(out)
	return nil
}

// UnmarshalJSON mirrors UnmarshalYAML for JSON config files
func (s *SensorConfig) UnmarshalJSON(data []byte) error {
	type plain SensorConfig
	out := plain{Detector: detector.DefaultConfig()}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*s = SensorConfig(out)
	return nil
}

// DecisionsSubject returns the subject monitor decisions are published to
func (s SensorConfig) DecisionsSubject() string {
	return "smokewatch.decisions." + s.Name
}

// AlertsSubject returns the subject stall alerts are published to
func (s SensorConfig) AlertsSubject() string {
	return "smokewatch.alerts." + s.Name
}

// Default returns the configuration used when no file is supplied:
// a single smoker sensor with the stock window and threshold.
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "smokewatch",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Alerts: AlertsConfig{
			Enabled:    true,
			Directory:  "/var/log/smokewatch",
			FilePrefix: "alerts",
			BufferSize: 100,
		},
		Sensors: []SensorConfig{
			{
				Name:     "smoker",
				Stream:   "SMOKEHOUSE",
				Subject:  "smokewatch.readings.smoker",
				Durable:  "smokewatch-monitor",
				Detector: detector.DefaultConfig(),
			},
		},
	}
}

// Load reads configuration from path (JSON or YAML by extension), applies
// environment overrides, and validates the result. An empty path yields
// the default configuration with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse yaml config: %w", err)
			}
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse json config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overlays SMOKEWATCH_* environment variables. Sensor-level
// overrides apply to every configured sensor; with the default single
// sensor this matches the original per-process behavior.
func (c *Config) applyEnv() {
	if url := os.Getenv(EnvNATSURL); url != "" {
		c.NATS.URL = url
	}

	for i := range c.Sensors {
		if stream := os.Getenv(EnvStream); stream != "" {
			c.Sensors[i].Stream = stream
		}
		if subject := os.Getenv(EnvSubject); subject != "" {
			c.Sensors[i].Subject = subject
		}
		if durable := os.Getenv(EnvConsumerGroup); durable != "" {
			c.Sensors[i].Durable = durable
		}
		if raw := os.Getenv(EnvWindowSize); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				c.Sensors[i].Detector.WindowSize = n
			}
		}
		if raw := os.Getenv(EnvStallThreshold); raw != "" {
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				c.Sensors[i].Detector.Threshold = f
			}
		}
	}
}

// applyDefaults fills zero values left by partial config files
func (c *Config) applyDefaults() {
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.Name == "" {
		c.NATS.Name = "smokewatch"
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Alerts.BufferSize == 0 {
		c.Alerts.BufferSize = 100
	}

	for i := range c.Sensors {
		if c.Sensors[i].Detector.WindowSize == 0 {
			c.Sensors[i].Detector.WindowSize = detector.DefaultWindowSize
		}
		if c.Sensors[i].Durable == "" {
			c.Sensors[i].Durable = "smokewatch-" + c.Sensors[i].Name
		}
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}

	if len(c.Sensors) == 0 {
		return errors.New("at least one sensor is required")
	}

	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.Name == "" {
			return fmt.Errorf("sensors[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("sensors[%d]: duplicate sensor name %q", i, s.Name)
		}
		seen[s.Name] = true

		if s.Stream == "" {
			return fmt.Errorf("sensor %s: stream is required", s.Name)
		}
		if s.Subject == "" {
			return fmt.Errorf("sensor %s: subject is required", s.Name)
		}
		if s.Detector.WindowSize < 1 {
			return fmt.Errorf("sensor %s: detector.window_size must be positive", s.Name)
		}
		if s.Detector.Threshold < 0 {
			return fmt.Errorf("sensor %s: detector.stall_threshold cannot be negative", s.Name)
		}
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
	}

	if c.Alerts.Enabled && c.Alerts.Directory == "" {
		return errors.New("alerts.directory is required when alerts are enabled")
	}

	return nil
}
