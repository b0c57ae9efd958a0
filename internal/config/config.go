// Package config loads the bridge's configuration from a YAML file, with a thin layer of environment-variable
// overrides for deployment-specific paths and log level.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// IntegrationConfig controls the WebSocket server the remote-control device connects to.
type IntegrationConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	Port          int    `yaml:"port"`
	DriverName    string `yaml:"driver_name"`
	DriverVersion string `yaml:"driver_version"`
	Developer     string `yaml:"developer"`
	AdvertiseMDNS bool   `yaml:"advertise_mdns"`
}

// HubConfig controls the outbound connection to the smart-home hub.
type HubConfig struct {
	URL                 string        `yaml:"url"`
	Token               string        `yaml:"token"`
	ReconnectMinBackoff time.Duration `yaml:"reconnect_min_backoff"`
	ReconnectMaxBackoff time.Duration `yaml:"reconnect_max_backoff"`
	PingInterval        time.Duration `yaml:"ping_interval"`
	PongTimeout         time.Duration `yaml:"pong_timeout"`
}

// LoggingConfig controls zerolog's level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Config is the bridge's full configuration, assembled from a YAML file plus environment overrides.
type Config struct {
	Integration IntegrationConfig `yaml:"integration"`
	Hub         HubConfig         `yaml:"hub"`
	Logging     LoggingConfig     `yaml:"logging"`

	// DataHome is the directory persisted driver state (driver.json) is written to. Not part of the YAML file; always
	// comes from UC_DATA_HOME or its default.
	DataHome string `yaml:"-"`
}

// fileConfig mirrors Config's YAML shape exactly, so that yaml.Decoder's KnownFields(true) can reject unknown root
// keys without also rejecting the DataHome field (which is never present in the file).
type fileConfig struct {
	Integration IntegrationConfig `yaml:"integration"`
	Hub         HubConfig         `yaml:"hub"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads the YAML configuration file at path, applies defaults for unset fields, layers environment overrides
// (UC_CONFIG_HOME is only consulted by the caller to resolve path; UC_DATA_HOME and LOG_LEVEL are applied here), and
// validates the result. It returns an error if the file cannot be read or parsed, if it contains unknown keys, or if
// any value fails validation.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	defer f.Close()

	fc := fileConfig{
		Integration: IntegrationConfig{
			ListenAddr:    "0.0.0.0",
			Port:          9000,
			DriverName:    "ha-bridge",
			DriverVersion: "0.1.0",
			Developer:     "community",
			AdvertiseMDNS: true,
		},
		Hub: HubConfig{
			ReconnectMinBackoff: time.Second,
			ReconnectMaxBackoff: 60 * time.Second,
			PingInterval:        30 * time.Second,
			PongTimeout:         10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	cfg := &Config{
		Integration: fc.Integration,
		Hub:         fc.Hub,
		Logging:     fc.Logging,
		DataHome:    envStr("UC_DATA_HOME", "/var/lib/ha-bridge"),
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFilePath resolves the configuration file path: UC_CONFIG_HOME/configuration.yaml if UC_CONFIG_HOME is set,
// otherwise the given default.
func ConfigFilePath(defaultPath string) string {
	if home := os.Getenv("UC_CONFIG_HOME"); home != "" {
		return home + string(os.PathSeparator) + "configuration.yaml"
	}
	return defaultPath
}

func (c *Config) validate() error {
	var errs []error

	if c.Integration.Port < 1 || c.Integration.Port > 65535 {
		errs = append(errs, fmt.Errorf("integration.port must be between 1 and 65535"))
	}
	if c.Integration.DriverName == "" {
		errs = append(errs, fmt.Errorf("integration.driver_name is required"))
	}

	// hub.url/hub.token may both be omitted entirely: first-run deployments discover credentials through the
	// integration protocol's interactive setup_driver flow instead of the YAML file, and persist them to driver.json.
	// Supplying only one of the pair is always a mistake, never a valid bootstrap state.
	if (c.Hub.URL == "") != (c.Hub.Token == "") {
		errs = append(errs, fmt.Errorf("hub.url and hub.token must both be set or both omitted"))
	}
	if c.Hub.URL != "" {
		if u, err := url.Parse(c.Hub.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("hub.url must be a ws:// or wss:// URL, got %q", c.Hub.URL))
		}
	}
	if c.Hub.ReconnectMinBackoff <= 0 {
		errs = append(errs, fmt.Errorf("hub.reconnect_min_backoff must be positive"))
	}
	if c.Hub.ReconnectMaxBackoff < c.Hub.ReconnectMinBackoff {
		errs = append(errs, fmt.Errorf("hub.reconnect_max_backoff must not be less than reconnect_min_backoff"))
	}
	if c.Hub.PingInterval <= 0 {
		errs = append(errs, fmt.Errorf("hub.ping_interval must be positive"))
	}
	if c.Hub.PongTimeout <= 0 {
		errs = append(errs, fmt.Errorf("hub.pong_timeout must be positive"))
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not a recognized zerolog level", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
