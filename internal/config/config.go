// ABOUTME: Player configuration loaded from defaults, file, environment and flags
// ABOUTME: Validates values before they reach the player
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yako-player/yako-go/internal/logging"
	"github.com/yako-player/yako-go/pkg/audio/output"
)

// EnvPrefix prefixes environment overrides, e.g. YAKO_BACKEND
const EnvPrefix = "YAKO"

// Config holds all configuration for the application
type Config struct {
	// Output device
	Backend string `mapstructure:"backend"`
	Device  string `mapstructure:"device"`

	// Buffering
	BufferCapacity  int `mapstructure:"buffer_capacity"`
	TargetLatencyMs int `mapstructure:"target_latency_ms"`

	// Initial volume level in [0,1]
	Volume float64 `mapstructure:"volume"`
	Muted  bool    `mapstructure:"muted"`

	// Logging
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`

	// TUI enables the terminal interface
	TUI bool `mapstructure:"tui"`

	// Name is advertised to remote controllers
	Name string `mapstructure:"name"`

	Remote RemoteConfig `mapstructure:"remote"`
}

// RemoteConfig holds remote-control configuration
type RemoteConfig struct {
	// Listen is the websocket listen address; empty disables the server.
	// The server accepts open commands for any local path, so it binds to
	// loopback unless told otherwise.
	Listen string `mapstructure:"listen"`
	// MDNS advertises the server on the local network
	MDNS bool `mapstructure:"mdns"`
}

// DefaultListen is the loopback-only remote-control address
const DefaultListen = "127.0.0.1:8928"

// LoopbackOnly reports whether the listen address is reachable only from this host
func (r RemoteConfig) LoopbackOnly() bool {
	host, _, err := net.SplitHostPort(r.Listen)
	if err != nil || host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// TargetLatency returns the target latency as a duration
func (c *Config) TargetLatency() time.Duration {
	return time.Duration(c.TargetLatencyMs) * time.Millisecond
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "yako"
	}

	v.SetDefault("backend", output.BackendMalgo)
	v.SetDefault("device", "")
	v.SetDefault("buffer_capacity", 64000)
	v.SetDefault("target_latency_ms", 80)
	v.SetDefault("volume", 1.0)
	v.SetDefault("muted", false)
	v.SetDefault("log_file", "yako.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("tui", true)
	v.SetDefault("name", hostname+"-yako")
	v.SetDefault("remote.listen", DefaultListen)
	v.SetDefault("remote.mdns", true)
}

// DefaultConfigFile returns $HOME/.config/yako/config.yaml
func DefaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "yako", "config.yaml")
}

// Load reads configuration into v and decodes it. An explicit file must
// exist; the default file is optional.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	explicit := file != ""
	if !explicit {
		file = DefaultConfigFile()
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return nil, fmt.Errorf("failed to read config %s: %w", file, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch c.Backend {
	case output.BackendMalgo, output.BackendOto, output.BackendPortAudio, output.BackendNull:
	default:
		return &Error{Field: "backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	if c.BufferCapacity <= 0 {
		return &Error{Field: "buffer_capacity", Message: "must be positive"}
	}
	if c.TargetLatencyMs <= 0 {
		return &Error{Field: "target_latency_ms", Message: "must be positive"}
	}
	if c.Volume < 0 || c.Volume > 1 {
		return &Error{Field: "volume", Message: "must be within [0, 1]"}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &Error{Field: "log_level", Message: err.Error()}
	}
	return nil
}

// Error represents a configuration validation error
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}
