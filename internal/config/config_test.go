package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.BaseURL != "http://localhost:8080/api" {
		t.Errorf("Server.BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Transport.ReconnectDelay != 3*time.Second {
		t.Errorf("ReconnectDelay = %v, want 3s", cfg.Transport.ReconnectDelay)
	}
	if cfg.Transport.MaxReconnectDelay != 0 {
		t.Errorf("MaxReconnectDelay = %v, want 0 (fixed delay)", cfg.Transport.MaxReconnectDelay)
	}
	if cfg.Transport.HeartbeatInterval != 25*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 25s", cfg.Transport.HeartbeatInterval)
	}
	if cfg.Transport.KickInterval != time.Second {
		t.Errorf("KickInterval = %v, want 1s", cfg.Transport.KickInterval)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestParse_OverridesDefaults(t *testing.T) {
	yaml := `
server:
  base_url: "https://support.example.com/api"
  ws_url: "wss://rt.example.com"
transport:
  reconnect_delay: 500ms
  max_reconnect_delay: 30s
cache:
  enabled: false
logging:
  components: [transport, widget]
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Server.BaseURL != "https://support.example.com/api" || cfg.Server.WSURL != "wss://rt.example.com" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Transport.ReconnectDelay != 500*time.Millisecond || cfg.Transport.MaxReconnectDelay != 30*time.Second {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	// Untouched keys keep their defaults.
	if cfg.Transport.HeartbeatInterval != 25*time.Second || cfg.Server.Timeout != 30*time.Second {
		t.Errorf("defaults lost: %+v %+v", cfg.Transport, cfg.Server)
	}
	if cfg.Cache.Enabled {
		t.Error("cache.enabled: false was ignored")
	}
	if len(cfg.Logging.Components) != 2 || cfg.Logging.Components[0] != "transport" {
		t.Errorf("Components = %v", cfg.Logging.Components)
	}

	opts := cfg.TransportOptions()
	if opts.ReconnectDelay != 500*time.Millisecond || opts.MaxReconnectDelay != 30*time.Second {
		t.Errorf("TransportOptions() = %+v", opts)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"invalid yaml", `{{invalid yaml`, "failed to parse config"},
		{"bad duration", "transport:\n  reconnect_delay: soon\n", "transport.reconnect_delay"},
		{"duration without unit", "server:\n  timeout: 30\n", "server.timeout"},
		{"zero delay", "transport:\n  reconnect_delay: 0s\n", "reconnect_delay must be positive"},
		{"negative cap", "transport:\n  max_reconnect_delay: -1s\n", "must not be negative"},
		{"bad base url", "server:\n  base_url: \"ftp://x\"\n", "server.base_url"},
		{"bad ws url", "server:\n  ws_url: \"https://x\"\n", "server.ws_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load(missing) error: %v", err)
	}
	if cfg.Transport.ReconnectDelay != 3*time.Second {
		t.Error("missing file should yield defaults")
	}

	path := filepath.Join(dir, "livedeskrc")
	os.WriteFile(path, []byte("server:\n  base_url: \"http://10.0.0.1:9000\"\n"), 0600)
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.BaseURL != "http://10.0.0.1:9000" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
}

func TestDefaultConfigPath_Env(t *testing.T) {
	t.Setenv(ConfigEnv, "/tmp/custom-livedeskrc")
	if got := DefaultConfigPath(); got != "/tmp/custom-livedeskrc" {
		t.Errorf("DefaultConfigPath() = %q", got)
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("LIVEDESK_DIR", t.TempDir())

	cfg := Default()
	cfg.Storage.Path = "/var/lib/livedesk/session.json"
	if p, _ := cfg.StoragePath(); p != "/var/lib/livedesk/session.json" {
		t.Errorf("StoragePath() = %q", p)
	}
	if p, err := cfg.CachePath(); err != nil || filepath.Base(p) != "tickets.db" {
		t.Errorf("CachePath() = %q, %v", p, err)
	}
}

func TestLoggingOptions(t *testing.T) {
	cfg := Default()
	cfg.Logging.File = "/tmp/ld.log"
	cfg.Logging.Components = []string{"transport"}

	opts, err := cfg.LoggingOptions("debug")
	if err != nil {
		t.Fatalf("LoggingOptions() error: %v", err)
	}
	if opts.Level != "debug" || opts.File == nil || opts.File.Path != "/tmp/ld.log" || opts.File.MaxSizeMB != 10 {
		t.Errorf("LoggingOptions() = %+v", opts)
	}

	cfg.Logging.File = "-"
	opts, _ = cfg.LoggingOptions("")
	if opts.File != nil || opts.Level != "info" {
		t.Errorf("disabled file logging = %+v", opts)
	}
}
