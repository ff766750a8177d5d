package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment" yaml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server" yaml:"server"`
	EventSource EventSourceConfig `toml:"event_source" yaml:"event_source"`
	Gateway     GatewayConfig     `toml:"gateway" yaml:"gateway"`
	Jobs        JobsConfig        `toml:"jobs" yaml:"jobs"`
	Logs        LogsConfig        `toml:"logs" yaml:"logs"`
	WebSocket   WebSocketConfig   `toml:"websocket" yaml:"websocket"`
	Confirm     ConfirmConfig     `toml:"confirm" yaml:"confirm"`
	Metrics     MetricsConfig     `toml:"metrics" yaml:"metrics"`
	Logging     LoggingConfig     `toml:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" yaml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" yaml:"host" validate:"required"`
}

// EventSourceConfig points at the engine's push-event channel
type EventSourceConfig struct {
	URL               string `toml:"url" yaml:"url" validate:"required,url"`
	ReconnectDelay    string `toml:"reconnect_delay" yaml:"reconnect_delay" validate:"duration"`         // first retry delay, doubled per failure
	MaxReconnectDelay string `toml:"max_reconnect_delay" yaml:"max_reconnect_delay" validate:"duration"` // backoff ceiling
	HandshakeTimeout  string `toml:"handshake_timeout" yaml:"handshake_timeout" validate:"duration"`
	RefreshSchedule   string `toml:"refresh_schedule" yaml:"refresh_schedule" validate:"omitempty,cron"` // re-request the task list, e.g. "@every 1m"
}

// GatewayConfig points at the engine's REST API
type GatewayConfig struct {
	BaseURL string `toml:"base_url" yaml:"base_url" validate:"required,url"`
	Timeout string `toml:"timeout" yaml:"timeout" validate:"duration"`
}

// JobsConfig controls the active job views
type JobsConfig struct {
	GraceDelay string `toml:"grace_delay" yaml:"grace_delay" validate:"duration"` // how long finished jobs stay listed
}

// LogsConfig controls the system log viewer
type LogsConfig struct {
	MaxEntries int    `toml:"max_entries" yaml:"max_entries" validate:"min=1"`
	MinLevel   string `toml:"min_level" yaml:"min_level" validate:"oneof=debug info warn error"`
}

// WebSocketConfig contains configuration for the browser websocket hub
type WebSocketConfig struct {
	ThrottleInterval string   `toml:"throttle_interval" yaml:"throttle_interval" validate:"duration"` // minimum gap between active_jobs pushes
	AllowedEvents    []string `toml:"allowed_events" yaml:"allowed_events"`                           // empty = broadcast everything
}

// ConfirmConfig controls pending confirmations
type ConfirmConfig struct {
	TTL string `toml:"ttl" yaml:"ttl" validate:"duration"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path" validate:"startswith=/"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output" yaml:"output" validate:"dive,oneof=stdout console file"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		EventSource: EventSourceConfig{
			URL:               "ws://localhost:5000/observers",
			ReconnectDelay:    "1s",
			MaxReconnectDelay: "30s",
			HandshakeTimeout:  "10s",
		},
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:5000",
			Timeout: "30s",
		},
		Jobs: JobsConfig{
			GraceDelay: "5s",
		},
		Logs: LogsConfig{
			MaxEntries: 300,
			MinLevel:   "debug",
		},
		WebSocket: WebSocketConfig{
			ThrottleInterval: "250ms",
		},
		Confirm: ConfirmConfig{
			TTL: "5m",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: defaults -> file1 -> file2 -> ... -> env
// Files ending in .yaml or .yml are read as YAML, everything else as TOML.
// Example: LoadFromFiles("base.toml", "override.yaml") - override.yaml settings take precedence over base.toml
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PRINDE_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("PRINDE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PRINDE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Engine endpoints
	if url := os.Getenv("PRINDE_EVENT_SOURCE_URL"); url != "" {
		config.EventSource.URL = url
	}
	if schedule := os.Getenv("PRINDE_REFRESH_SCHEDULE"); schedule != "" {
		config.EventSource.RefreshSchedule = schedule
	}
	if url := os.Getenv("PRINDE_GATEWAY_URL"); url != "" {
		config.Gateway.BaseURL = url
	}

	// Views
	if delay := os.Getenv("PRINDE_JOBS_GRACE_DELAY"); delay != "" {
		config.Jobs.GraceDelay = delay
	}
	if max := os.Getenv("PRINDE_LOGS_MAX_ENTRIES"); max != "" {
		if n, err := strconv.Atoi(max); err == nil {
			config.Logs.MaxEntries = n
		}
	}
	if enabled := os.Getenv("PRINDE_METRICS_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Metrics.Enabled = b
		}
	}

	// Logging configuration
	if level := os.Getenv("PRINDE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PRINDE_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration once all overrides are applied
func (c *Config) Validate() error {
	v := NewValidator()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// NewValidator returns a validator that also understands "duration" and "cron" tags
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		return ValidateSchedule(fl.Field().String()) == nil
	})
	return v
}

// ValidateSchedule validates a cron schedule expression (standard five fields or @every/@hourly descriptors)
func ValidateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseDurationOr parses s, returning fallback when s is empty or invalid
func ParseDurationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepCloneConfig creates a deep copy of the Config struct
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	if len(c.WebSocket.AllowedEvents) > 0 {
		clone.WebSocket.AllowedEvents = make([]string, len(c.WebSocket.AllowedEvents))
		copy(clone.WebSocket.AllowedEvents, c.WebSocket.AllowedEvents)
	}

	return &clone
}
