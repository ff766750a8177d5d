package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig_IsValid(t *testing.T) {
	config := NewDefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, 300, config.Logs.MaxEntries)
	assert.Equal(t, "5s", config.Jobs.GraceDelay)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeFile(t, "base.toml", `
[server]
port = 9000

[gateway]
base_url = "http://engine:5000"

[jobs]
grace_delay = "10s"
`)
	override := writeFile(t, "override.yaml", `
server:
  port: 9100
logs:
  min_level: warn
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host, "unset keys keep their defaults")
	assert.Equal(t, "http://engine:5000", config.Gateway.BaseURL)
	assert.Equal(t, "10s", config.Jobs.GraceDelay)
	assert.Equal(t, "warn", config.Logs.MinLevel)
}

func TestLoadFromFiles_EnvOverridesFiles(t *testing.T) {
	path := writeFile(t, "prinde.toml", `
[event_source]
url = "ws://from-file:5000/observers"
`)
	t.Setenv("PRINDE_EVENT_SOURCE_URL", "ws://from-env:5000/observers")
	t.Setenv("PRINDE_SERVER_PORT", "9999")
	t.Setenv("PRINDE_LOG_OUTPUT", "stdout, file")

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://from-env:5000/observers", config.EventSource.URL)
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.toml", "[server\nport = ")
	_, err = LoadFromFiles(bad)
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad duration", func(c *Config) { c.Jobs.GraceDelay = "soon" }},
		{"zero duration", func(c *Config) { c.Confirm.TTL = "0s" }},
		{"bad schedule", func(c *Config) { c.EventSource.RefreshSchedule = "every minute" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad output", func(c *Config) { c.Logging.Output = []string{"syslog"} }},
		{"missing url", func(c *Config) { c.Gateway.BaseURL = "" }},
		{"zero max entries", func(c *Config) { c.Logs.MaxEntries = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestValidate_AcceptsSchedule(t *testing.T) {
	config := NewDefaultConfig()
	config.EventSource.RefreshSchedule = "@every 30s"
	assert.NoError(t, config.Validate())

	config.EventSource.RefreshSchedule = "*/5 * * * *"
	assert.NoError(t, config.Validate())
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8085, config.Server.Port)

	ApplyFlagOverrides(config, 7000, "0.0.0.0")
	assert.Equal(t, 7000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, 2*time.Second, ParseDurationOr("2s", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("-1s", time.Minute))
}

func TestDeepCloneConfig(t *testing.T) {
	config := NewDefaultConfig()
	clone := DeepCloneConfig(config)

	clone.Logging.Output[0] = "file"
	assert.Equal(t, "stdout", config.Logging.Output[0])
	assert.Nil(t, DeepCloneConfig(nil))
}
