// Package config handles configuration loading for livedesk.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	defaultConfig "github.com/livedesk/livedesk/config"
	"github.com/livedesk/livedesk/internal/appdir"
	"github.com/livedesk/livedesk/internal/logging"
	"github.com/livedesk/livedesk/internal/transport"
)

// ConfigEnv overrides the configuration file location.
const ConfigEnv = "LIVEDESKRC"

// ServerConfig locates the support backend.
type ServerConfig struct {
	// BaseURL is the REST API root.
	BaseURL string
	// WSURL overrides the WebSocket base. Empty derives it from BaseURL.
	WSURL string
	// Timeout bounds each REST call.
	Timeout time.Duration
}

// TransportConfig tunes the WebSocket channel.
type TransportConfig struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HeartbeatInterval time.Duration
	KickInterval      time.Duration
}

// StorageConfig locates the visitor session file.
type StorageConfig struct {
	Path string
}

// CacheConfig configures the offline ticket cache.
type CacheConfig struct {
	Enabled bool
	Path    string
}

// LoggingConfig configures console and file logging.
type LoggingConfig struct {
	Level      string
	File       string // "-" disables file output
	MaxSizeMB  int
	MaxBackups int
	Components []string
}

// Config represents the complete livedesk configuration.
type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Logging   LoggingConfig
}

// rawConfig mirrors the YAML layout. Durations are kept as strings so that
// errors can name the offending key.
type rawConfig struct {
	Server struct {
		BaseURL string `yaml:"base_url"`
		WSURL   string `yaml:"ws_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"server"`
	Transport struct {
		ReconnectDelay    string `yaml:"reconnect_delay"`
		MaxReconnectDelay string `yaml:"max_reconnect_delay"`
		HeartbeatInterval string `yaml:"heartbeat_interval"`
		KickInterval      string `yaml:"reconnect_kick_interval"`
	} `yaml:"transport"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Cache struct {
		Enabled *bool  `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"cache"`
	Logging struct {
		Level      string   `yaml:"level"`
		File       string   `yaml:"file"`
		MaxSizeMB  int      `yaml:"max_size_mb"`
		MaxBackups int      `yaml:"max_backups"`
		Components []string `yaml:"components"`
	} `yaml:"logging"`
}

// DefaultConfigPath returns the default configuration file path for the current platform.
func DefaultConfigPath() string {
	if envPath := os.Getenv(ConfigEnv); envPath != "" {
		return envPath
	}

	var configDir string
	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, _ := os.UserHomeDir()
		configDir = home
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = xdgConfig
		} else {
			home, _ := os.UserHomeDir()
			configDir = home
		}
	}

	return filepath.Join(configDir, ".livedeskrc")
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// Load reads the configuration file at path. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML configuration data on top of the embedded defaults, so
// keys absent from data keep their default values.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(defaultConfig.DefaultConfigYAML, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse default config: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			BaseURL: raw.Server.BaseURL,
			WSURL:   raw.Server.WSURL,
		},
		Storage: StorageConfig{Path: raw.Storage.Path},
		Cache: CacheConfig{
			Enabled: raw.Cache.Enabled == nil || *raw.Cache.Enabled,
			Path:    raw.Cache.Path,
		},
		Logging: LoggingConfig{
			Level:      raw.Logging.Level,
			File:       raw.Logging.File,
			MaxSizeMB:  raw.Logging.MaxSizeMB,
			MaxBackups: raw.Logging.MaxBackups,
			Components: raw.Logging.Components,
		},
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"server.timeout", raw.Server.Timeout, &cfg.Server.Timeout},
		{"transport.reconnect_delay", raw.Transport.ReconnectDelay, &cfg.Transport.ReconnectDelay},
		{"transport.max_reconnect_delay", raw.Transport.MaxReconnectDelay, &cfg.Transport.MaxReconnectDelay},
		{"transport.heartbeat_interval", raw.Transport.HeartbeatInterval, &cfg.Transport.HeartbeatInterval},
		{"transport.reconnect_kick_interval", raw.Transport.KickInterval, &cfg.Transport.KickInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.key, d.value, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the client unusable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.base_url must be an http(s) URL, got %q", c.Server.BaseURL)
	}
	if c.Server.WSURL != "" {
		u, err := url.Parse(c.Server.WSURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("server.ws_url must be a ws(s) URL, got %q", c.Server.WSURL)
		}
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Transport.ReconnectDelay <= 0 {
		return fmt.Errorf("transport.reconnect_delay must be positive")
	}
	if c.Transport.MaxReconnectDelay < 0 {
		return fmt.Errorf("transport.max_reconnect_delay must not be negative")
	}
	if c.Transport.HeartbeatInterval <= 0 {
		return fmt.Errorf("transport.heartbeat_interval must be positive")
	}
	if c.Transport.KickInterval <= 0 {
		return fmt.Errorf("transport.reconnect_kick_interval must be positive")
	}
	return nil
}

// TransportOptions returns the channel settings. Callbacks and the URL are
// left for the owner to fill in.
func (c *Config) TransportOptions() transport.Config {
	return transport.Config{
		ReconnectDelay:    c.Transport.ReconnectDelay,
		MaxReconnectDelay: c.Transport.MaxReconnectDelay,
		HeartbeatInterval: c.Transport.HeartbeatInterval,
		KickInterval:      c.Transport.KickInterval,
	}
}

// StoragePath returns the session file, defaulting to the data directory.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	return appdir.StoragePath()
}

// CachePath returns the ticket cache database, defaulting to the data directory.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	return appdir.CachePath()
}

// LoggingOptions converts the logging section. level overrides the file's
// level when non-empty.
func (c *Config) LoggingOptions(level string) (logging.Config, error) {
	if level == "" {
		level = c.Logging.Level
	}
	out := logging.Config{
		Level:      level,
		Components: c.Logging.Components,
	}

	path := c.Logging.File
	if path == "-" {
		return out, nil
	}
	if path == "" {
		p, err := appdir.LogPath()
		if err != nil {
			return out, err
		}
		path = p
	}
	out.File = &logging.FileConfig{
		Path:       path,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
	return out, nil
}
