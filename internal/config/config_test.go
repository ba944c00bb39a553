// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, files, environment overrides and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "malgo", cfg.Backend)
	assert.Equal(t, 64000, cfg.BufferCapacity)
	assert.Equal(t, 80*time.Millisecond, cfg.TargetLatency())
	assert.Equal(t, 1.0, cfg.Volume)
	assert.True(t, cfg.TUI)
	assert.Equal(t, "127.0.0.1:8928", cfg.Remote.Listen)
	assert.True(t, cfg.Remote.LoopbackOnly())
	assert.True(t, cfg.Remote.MDNS)
	assert.NotEmpty(t, cfg.Name)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
backend: "null"
volume: 0.4
target_latency_ms: 120
remote:
  listen: "127.0.0.1:9000"
  mdns: false
`)
	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "null", cfg.Backend)
	assert.Equal(t, 0.4, cfg.Volume)
	assert.Equal(t, 120*time.Millisecond, cfg.TargetLatency())
	assert.Equal(t, "127.0.0.1:9000", cfg.Remote.Listen)
	assert.False(t, cfg.Remote.MDNS)
}

func TestLoadKeepsZeroVolume(t *testing.T) {
	cfg, err := Load(viper.New(), writeConfig(t, "volume: 0"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Volume)
}

func TestLoopbackOnly(t *testing.T) {
	tests := []struct {
		listen string
		want   bool
	}{
		{"127.0.0.1:8928", true},
		{"localhost:8928", true},
		{"[::1]:8928", true},
		{":8928", false},
		{"0.0.0.0:8928", false},
		{"192.168.1.20:8928", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoteConfig{Listen: tt.listen}.LoopbackOnly())
		})
	}
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("YAKO_BACKEND", "oto")
	t.Setenv("YAKO_BUFFER_CAPACITY", "32000")
	t.Setenv("YAKO_REMOTE_LISTEN", "")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "oto", cfg.Backend)
	assert.Equal(t, 32000, cfg.BufferCapacity)
	assert.Equal(t, "", cfg.Remote.Listen)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"backend", "backend: alsa", "backend"},
		{"capacity", "buffer_capacity: 0", "buffer_capacity"},
		{"latency", "target_latency_ms: -5", "target_latency_ms"},
		{"volume", "volume: 2", "volume"},
		{"log level", "log_level: chatty", "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, tt.body))
			require.Error(t, err)

			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
