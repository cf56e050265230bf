// Package config loads service configuration from built-in defaults, an
// optional YAML file, and the environment, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/numbers/numbers"
	"github.com/jonwraymond/numbers/observe"
	"github.com/jonwraymond/numbers/resilience"
)

// FileEnvVar names the environment variable holding the optional YAML file path.
const FileEnvVar = "NUMBERS_CONFIG_FILE"

// Defaults for service settings.
const (
	DefaultAddr            = ":8080"
	DefaultServiceName     = "numbers"
	DefaultLogLevel        = "info"
	DefaultExporter        = "none"
	DefaultTracingSample   = 1.0
	DefaultHealthTimeout   = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Errors returned by Validate.
var (
	ErrMissingAddr    = errors.New("config: address is required")
	ErrInvalidTimeout = errors.New("config: timeout must be positive")
	ErrInvalidLimit   = errors.New("config: limits must not be negative")
)

// Config is the full service configuration.
//
// Generator bounds and the failure rate are not validated here; the
// numbers.config probe reports a bad generator configuration at runtime.
type Config struct {
	Addr            string        `yaml:"addr" env:"NUMBERS_ADDR"`
	ServiceName     string        `yaml:"service_name" env:"NUMBERS_SERVICE_NAME"`
	LogLevel        string        `yaml:"log_level" env:"NUMBERS_LOG_LEVEL"`
	TracingExporter string        `yaml:"tracing_exporter" env:"NUMBERS_TRACING_EXPORTER"`
	TracingSample   float64       `yaml:"tracing_sample" env:"NUMBERS_TRACING_SAMPLE"`
	MetricsExporter string        `yaml:"metrics_exporter" env:"NUMBERS_METRICS_EXPORTER"`
	HealthTimeout   time.Duration `yaml:"health_timeout" env:"NUMBERS_HEALTH_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"NUMBERS_SHUTDOWN_TIMEOUT"`
	MaxInFlight     int           `yaml:"max_in_flight" env:"NUMBERS_MAX_IN_FLIGHT"`
	RateLimit       float64       `yaml:"rate_limit" env:"NUMBERS_RATE_LIMIT"`
	RateBurst       int           `yaml:"rate_burst" env:"NUMBERS_RATE_BURST"`

	Size        int     `yaml:"num_size" env:"num_size"`
	Max         int32   `yaml:"num_max" env:"num_max"`
	FailureRate float64 `yaml:"num_failure_rate" env:"num_failure_rate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	gen := numbers.DefaultConfig()
	return &Config{
		Addr:            DefaultAddr,
		ServiceName:     DefaultServiceName,
		LogLevel:        DefaultLogLevel,
		TracingExporter: DefaultExporter,
		TracingSample:   DefaultTracingSample,
		MetricsExporter: DefaultExporter,
		HealthTimeout:   DefaultHealthTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		Size:            gen.Size,
		Max:             gen.Max,
		FailureRate:     0,
	}
}

// Load builds the configuration from defaults, the file named by
// NUMBERS_CONFIG_FILE when set, and then the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values. ${VAR} references are expanded strictly.
func (c *Config) MergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	expanded, err := ExpandEnvStrict(string(raw))
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ParseEnv overlays environment variables onto target. Unset variables leave
// fields untouched.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the service settings.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrMissingAddr
	}
	if c.HealthTimeout <= 0 {
		return fmt.Errorf("%w: health_timeout=%s", ErrInvalidTimeout, c.HealthTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown_timeout=%s", ErrInvalidTimeout, c.ShutdownTimeout)
	}
	if c.MaxInFlight < 0 || c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("%w: max_in_flight=%d rate_limit=%v rate_burst=%d",
			ErrInvalidLimit, c.MaxInFlight, c.RateLimit, c.RateBurst)
	}
	obs := c.Observe("")
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Generator returns the generator bounds.
func (c *Config) Generator() numbers.Config {
	return numbers.Config{Size: c.Size, Max: c.Max}
}

// Guard returns the admission control settings for GET /. Zero values
// disable the corresponding control.
func (c *Config) Guard() resilience.GuardConfig {
	return resilience.GuardConfig{
		MaxInFlight: c.MaxInFlight,
		Rate:        c.RateLimit,
		Burst:       c.RateBurst,
	}
}

// Observe returns the telemetry configuration for the given build version.
// The generator settings and probe names describe the instance.
func (c *Config) Observe(version string) observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     version,
		Attributes: []observe.Field{
			{Key: "num_size", Value: c.Size},
			{Key: "num_max", Value: c.Max},
			{Key: "num_failure_rate", Value: c.FailureRate},
			{Key: "health.checks", Value: []string{numbers.ConfigProbeName, numbers.RandomFailureProbeName}},
		},
		Tracing: observe.TracingConfig{
			Enabled:   c.TracingExporter != DefaultExporter,
			Exporter:  c.TracingExporter,
			SamplePct: c.TracingSample,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.MetricsExporter != DefaultExporter,
			Exporter: c.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.LogLevel,
		},
	}
}
