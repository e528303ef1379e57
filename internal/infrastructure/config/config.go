package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic Hub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site         SiteConfig          `yaml:"site"`
	Database     DatabaseConfig      `yaml:"database"`
	MQTT         MQTTConfig          `yaml:"mqtt"`
	API          APIConfig           `yaml:"api"`
	WebSocket    WebSocketConfig     `yaml:"websocket"`
	InfluxDB     InfluxDBConfig      `yaml:"influxdb"`
	Logging      LoggingConfig       `yaml:"logging"`
	Bridge       BridgeConfig        `yaml:"bridge"`
	Integrations []IntegrationConfig `yaml:"integrations"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
// An empty origin list allows every origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
// Entity state changes are written as telemetry when enabled.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// BridgeConfig contains entity bridge settings.
type BridgeConfig struct {
	// ID identifies the bridge in health messages.
	ID string `yaml:"id"`

	// HealthInterval is how often health status is published (seconds).
	HealthInterval int `yaml:"health_interval"`

	// RefreshCooldown is the debounce window for coordinator refresh
	// requests (seconds).
	RefreshCooldown int `yaml:"refresh_cooldown"`

	// StateHistory enables recording entity state changes in SQLite.
	StateHistory bool `yaml:"state_history"`

	// HistoryRetention is how long state history is kept (days).
	// Zero keeps history forever.
	HistoryRetention int `yaml:"history_retention"`

	// SetupTimeout bounds the wait for each entry's first snapshot
	// (seconds). Zero selects the default of 30.
	SetupTimeout int `yaml:"setup_timeout"`
}

// IntegrationConfig describes one configuration entry for a vendor integration.
//
// Each entry results in one coordinator and one platform setup call.
type IntegrationConfig struct {
	// Domain is the integration name ("comelit", "yale_smart_alarm", "fritzbox").
	Domain string `yaml:"domain"`

	// EntryID is the stable configuration entry identifier. It is the base of
	// unique IDs for devices that have no serial number of their own.
	EntryID string `yaml:"entry_id"`

	// Title is the display name of the entry (usually the vendor hub name).
	Title string `yaml:"title"`

	// Enabled allows an entry to stay in the file without being set up.
	Enabled bool `yaml:"enabled"`

	// SDK optionally names the vendor SDK process the hub supervises for
	// this entry. Without it the SDK is expected to run on its own.
	SDK *SDKConfig `yaml:"sdk,omitempty"`
}

// SDKConfig describes a supervised vendor SDK process.
type SDKConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	WorkDir string            `yaml:"work_dir"`

	// RestartDelay is the first restart delay (seconds). Zero selects the
	// default of 5.
	RestartDelay int `yaml:"restart_delay"`

	// MaxRestarts limits consecutive restarts. Zero means unlimited.
	MaxRestarts int `yaml:"max_restarts"`
}

// GetRestartDelay returns the first SDK restart delay as a Duration.
// Zero lets the process manager pick its default.
func (s *SDKConfig) GetRestartDelay() time.Duration {
	return time.Duration(s.RestartDelay) * time.Second
}

const defaultSetupTimeout = 30 * time.Second

// Supported integration domains.
const (
	DomainComelit  = "comelit"
	DomainYale     = "yale_smart_alarm"
	DomainFritzbox = "fritzbox"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYHUB_SECTION_KEY
// For example: GRAYHUB_DATABASE_PATH, GRAYHUB_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic Hub",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/grayhub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "grayhub",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Bridge: BridgeConfig{
			ID:               "entity",
			HealthInterval:   30,
			RefreshCooldown:  10,
			StateHistory:     true,
			HistoryRetention: 30,
			SetupTimeout:     30,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAYHUB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("GRAYHUB_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYHUB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYHUB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GRAYHUB_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("GRAYHUB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GRAYHUB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
// All problems are collected so a broken file can be fixed in one pass.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
			errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when tls is enabled")
		}
		if c.WebSocket.PingInterval < 1 || c.WebSocket.PongTimeout < 1 {
			errs = append(errs, "websocket.ping_interval and websocket.pong_timeout must be positive")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Bridge.HealthInterval < 0 {
		errs = append(errs, "bridge.health_interval must not be negative")
	}
	if c.Bridge.RefreshCooldown < 0 {
		errs = append(errs, "bridge.refresh_cooldown must not be negative")
	}
	if c.Bridge.HistoryRetention < 0 {
		errs = append(errs, "bridge.history_retention must not be negative")
	}
	if c.Bridge.SetupTimeout < 0 {
		errs = append(errs, "bridge.setup_timeout must not be negative")
	}

	seen := make(map[string]bool, len(c.Integrations))
	for i, in := range c.Integrations {
		switch in.Domain {
		case DomainComelit, DomainYale, DomainFritzbox:
		default:
			errs = append(errs, fmt.Sprintf("integrations[%d].domain %q is not supported", i, in.Domain))
		}
		if in.SDK != nil {
			if in.SDK.Command == "" {
				errs = append(errs, fmt.Sprintf("integrations[%d].sdk.command is required", i))
			}
			if in.SDK.RestartDelay < 0 || in.SDK.MaxRestarts < 0 {
				errs = append(errs, fmt.Sprintf("integrations[%d].sdk restart settings must not be negative", i))
			}
		}
		if in.EntryID == "" {
			errs = append(errs, fmt.Sprintf("integrations[%d].entry_id is required", i))
			continue
		}
		if seen[in.EntryID] {
			errs = append(errs, fmt.Sprintf("integrations[%d].entry_id %q is duplicated", i, in.EntryID))
		}
		seen[in.EntryID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// EnabledIntegrations returns the configuration entries that should be set up.
func (c *Config) EnabledIntegrations() []IntegrationConfig {
	var out []IntegrationConfig
	for _, in := range c.Integrations {
		if in.Enabled {
			out = append(out, in)
		}
	}
	return out
}

// GetHealthInterval returns the bridge health interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// GetRefreshCooldown returns the coordinator refresh debounce window as a Duration.
func (c *Config) GetRefreshCooldown() time.Duration {
	return time.Duration(c.Bridge.RefreshCooldown) * time.Second
}

// GetHistoryRetention returns how long state history is kept. Zero means forever.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.Bridge.HistoryRetention) * 24 * time.Hour
}

// GetSetupTimeout returns the wait for an entry's first snapshot as a Duration.
func (c *Config) GetSetupTimeout() time.Duration {
	if c.Bridge.SetupTimeout == 0 {
		return defaultSetupTimeout
	}
	return time.Duration(c.Bridge.SetupTimeout) * time.Second
}
