package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "configuration.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  url: ws://homeassistant.local:8123/api/websocket
  token: abc123
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Integration.Port != 9000 {
		t.Errorf("Integration.Port = %d, want 9000", cfg.Integration.Port)
	}
	if cfg.Integration.DriverName != "ha-bridge" {
		t.Errorf("Integration.DriverName = %q, want ha-bridge", cfg.Integration.DriverName)
	}
	if !cfg.Integration.AdvertiseMDNS {
		t.Error("Integration.AdvertiseMDNS = false, want true")
	}
	if cfg.Hub.ReconnectMinBackoff != time.Second {
		t.Errorf("Hub.ReconnectMinBackoff = %v, want 1s", cfg.Hub.ReconnectMinBackoff)
	}
	if cfg.Hub.ReconnectMaxBackoff != 60*time.Second {
		t.Errorf("Hub.ReconnectMaxBackoff = %v, want 60s", cfg.Hub.ReconnectMaxBackoff)
	}
	if cfg.Hub.PingInterval != 30*time.Second {
		t.Errorf("Hub.PingInterval = %v, want 30s", cfg.Hub.PingInterval)
	}
	if cfg.Hub.PongTimeout != 10*time.Second {
		t.Errorf("Hub.PongTimeout = %v, want 10s", cfg.Hub.PongTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
	if cfg.DataHome != "/var/lib/ha-bridge" {
		t.Errorf("DataHome = %q, want /var/lib/ha-bridge", cfg.DataHome)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfigFile(t, `
integration:
  port: 8080
  driver_name: custom-bridge
  advertise_mdns: false
hub:
  url: wss://ha.example.com/api/websocket
  token: xyz789
  reconnect_min_backoff: 2s
  reconnect_max_backoff: 2m
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Integration.Port != 8080 {
		t.Errorf("Integration.Port = %d, want 8080", cfg.Integration.Port)
	}
	if cfg.Integration.DriverName != "custom-bridge" {
		t.Errorf("Integration.DriverName = %q, want custom-bridge", cfg.Integration.DriverName)
	}
	if cfg.Integration.AdvertiseMDNS {
		t.Error("Integration.AdvertiseMDNS = true, want false")
	}
	if cfg.Hub.ReconnectMinBackoff != 2*time.Second {
		t.Errorf("Hub.ReconnectMinBackoff = %v, want 2s", cfg.Hub.ReconnectMinBackoff)
	}
	if cfg.Hub.ReconnectMaxBackoff != 2*time.Minute {
		t.Errorf("Hub.ReconnectMaxBackoff = %v, want 2m", cfg.Hub.ReconnectMaxBackoff)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoadEnvOverridesLogLevelAndDataHome(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  url: ws://homeassistant.local:8123/api/websocket
  token: abc123
`)

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("UC_DATA_HOME", "/data/ha-bridge")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.DataHome != "/data/ha-bridge" {
		t.Errorf("DataHome = %q, want /data/ha-bridge", cfg.DataHome)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Load() returned nil error, want file-not-found error")
	}
}

func TestLoadUnknownKeyRejected(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  url: ws://homeassistant.local:8123/api/websocket
  token: abc123
unexpected_root_key: true
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() returned nil error, want ErrConfigInvalid for unknown root key")
	}
	if !strings.Contains(err.Error(), "invalid configuration file") {
		t.Errorf("error %q does not wrap ErrConfigInvalid", err.Error())
	}
}

func TestLoadOmittedHubSectionIsValid(t *testing.T) {
	path := writeConfigFile(t, `
integration:
  driver_name: ha-bridge
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned unexpected error for omitted hub section: %v", err)
	}
	if cfg.Hub.URL != "" || cfg.Hub.Token != "" {
		t.Errorf("Hub = %+v, want zero-value URL/Token awaiting interactive setup", cfg.Hub)
	}
}

func TestLoadValidationRejectsURLWithoutToken(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  url: ws://homeassistant.local:8123/api/websocket
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for url without token")
	}
	if !strings.Contains(err.Error(), "hub.url and hub.token must both be set or both omitted") {
		t.Errorf("error %q does not mention the paired requirement", err.Error())
	}
}

func TestLoadValidationRejectsNonWebSocketScheme(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  url: http://homeassistant.local:8123
  token: abc123
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for non-ws scheme")
	}
	if !strings.Contains(err.Error(), "ws:// or wss://") {
		t.Errorf("error %q does not mention scheme requirement", err.Error())
	}
}

func TestLoadValidationRejectsTokenWithoutURL(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  token: abc123
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for token without url")
	}
	if !strings.Contains(err.Error(), "hub.url and hub.token must both be set or both omitted") {
		t.Errorf("error %q does not mention the paired requirement", err.Error())
	}
}

func TestLoadValidationRejectsBadBackoffOrdering(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  url: ws://homeassistant.local:8123/api/websocket
  token: abc123
  reconnect_min_backoff: 1m
  reconnect_max_backoff: 1s
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for max < min backoff")
	}
	if !strings.Contains(err.Error(), "reconnect_max_backoff") {
		t.Errorf("error %q does not mention reconnect_max_backoff", err.Error())
	}
}

func TestLoadValidationRejectsUnknownLogLevel(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  url: ws://homeassistant.local:8123/api/websocket
  token: abc123
logging:
  level: noisy
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() returned nil error, want validation error for unknown log level")
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("error %q does not mention logging.level", err.Error())
	}
}

func TestConfigFilePath(t *testing.T) {
	t.Run("uses UC_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("UC_CONFIG_HOME", "/etc/ha-bridge")
		got := ConfigFilePath("./configuration.yaml")
		want := "/etc/ha-bridge" + string(os.PathSeparator) + "configuration.yaml"
		if got != want {
			t.Errorf("ConfigFilePath() = %q, want %q", got, want)
		}
	})

	t.Run("falls back to default when unset", func(t *testing.T) {
		t.Setenv("UC_CONFIG_HOME", "")
		got := ConfigFilePath("./configuration.yaml")
		if got != "./configuration.yaml" {
			t.Errorf("ConfigFilePath() = %q, want ./configuration.yaml", got)
		}
	})
}
