/*
PURPOSE:
  Defines the configuration structure and loading logic for mqtt-bench.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of the broker, credentials, client count,
    message count, message size, QoS and retain flag.
  - Run from a config file or, when containerized, from the environment.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - An invalid MQTT version must be rejected before any connection attempt.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine, internal/transport
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default config file falls back to defaults.
  - Validation errors wrap ErrInvalidConfig.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults should be sensible (e.g., 10s connection timeout).

USAGE:
  cfg, err := config.Load("mqtt-bench.yaml")
  cfg, err := config.FromEnv(os.LookupEnv)

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct, DefaultConfig() and FromEnv().

RELATED FILES:
  - internal/config/env.go
  - internal/cli/run.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultFiles are searched in order when no config path is given.
var DefaultFiles = []string{"mqtt-bench.yaml", "mqtt-bench.yml", "config.yaml"}

// Config represents the full configuration for one benchmark run.
type Config struct {
	ServerURI         string        `yaml:"server_uri"`
	Port              int           `yaml:"port"`
	CleanSession      bool          `yaml:"clean_session"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	KeepAlivePeriod   time.Duration `yaml:"keep_alive_period"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	MQTTVersion       string        `yaml:"mqtt_version"`

	ClientCount  int  `yaml:"client_count"`
	MessageCount int  `yaml:"message_count"` // per client
	MessageSize  int  `yaml:"message_size"`  // bytes
	QoS          int  `yaml:"qos"`
	Retain       bool `yaml:"retain"`

	TopicPrefix string `yaml:"topic_prefix"`
	// PublishRate caps messages per second for each client. 0 disables pacing.
	PublishRate float64 `yaml:"publish_rate"`

	OutputDir string        `yaml:"output_dir"`
	Log       LogConfig     `yaml:"log"`
	Metrics   MetricsConfig `yaml:"metrics"`
	Tracing   TracingConfig `yaml:"tracing"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	// Addr is the listen address for /metrics, e.g. ":9090". Empty disables the exporter.
	Addr string `yaml:"addr"`
}

// TracingConfig controls OTLP span export for benchmark phases.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURI:         "localhost",
		Port:              1883,
		CleanSession:      true,
		KeepAlivePeriod:   60 * time.Second,
		ConnectionTimeout: 10 * time.Second,
		MQTTVersion:       "v311",
		ClientCount:       100,
		MessageCount:      1000,
		MessageSize:       1024,
		QoS:               0,
		Retain:            false,
		TopicPrefix:       "test",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "mqtt-bench",
			SampleRate:  1.0,
		},
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches DefaultFiles in order.
// If no file found, returns default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		found := false
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				found = true
				break
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every field the benchmark depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServerURI) == "" {
		return fmt.Errorf("%w: server_uri is required", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if _, err := ParseProtocolVersion(c.MQTTVersion); err != nil {
		return err
	}
	if c.ClientCount < 0 {
		return fmt.Errorf("%w: client_count must not be negative", ErrInvalidConfig)
	}
	if c.MessageCount < 0 {
		return fmt.Errorf("%w: message_count must not be negative", ErrInvalidConfig)
	}
	if c.MessageSize < 0 {
		return fmt.Errorf("%w: message_size must not be negative", ErrInvalidConfig)
	}
	if c.QoS < 0 || c.QoS > 2 {
		return fmt.Errorf("%w: qos must be 0, 1 or 2, got %d", ErrInvalidConfig, c.QoS)
	}
	if c.KeepAlivePeriod < 0 {
		return fmt.Errorf("%w: keep_alive_period must not be negative", ErrInvalidConfig)
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("%w: connection_timeout must be positive", ErrInvalidConfig)
	}
	if c.PublishRate < 0 {
		return fmt.Errorf("%w: publish_rate must not be negative", ErrInvalidConfig)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("%w: tracing.endpoint is required when tracing is enabled", ErrInvalidConfig)
	}
	return nil
}

// Version returns the parsed protocol version.
func (c *Config) Version() (ProtocolVersion, error) {
	return ParseProtocolVersion(c.MQTTVersion)
}

// Address returns host:port of the broker.
func (c *Config) Address() string {
	return net.JoinHostPort(c.ServerURI, strconv.Itoa(c.Port))
}

// TotalMessages is the number of publishes a full run performs.
func (c *Config) TotalMessages() int {
	return c.ClientCount * c.MessageCount
}

// Masked returns a copy safe to print: the password keeps only its first character.
func (c *Config) Masked() Config {
	out := *c
	out.Password = MaskPassword(c.Password)
	return out
}

// MaskPassword replaces all but the first rune with '*'.
func MaskPassword(p string) string {
	if p == "" {
		return ""
	}
	runes := []rune(p)
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}
