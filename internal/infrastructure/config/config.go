package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/mql/internal/protocol"
	"github.com/nerrad567/mql/internal/severity"
)

// Config is the root configuration structure for mql.
// Configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	MQL      MQLConfig      `yaml:"mql"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`

	// ClientID identifies the session on the broker. When empty a random
	// "mql-<uuid>" identifier is generated at connect time.
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQLConfig contains the logging-protocol identity.
type MQLConfig struct {
	// Prefix is the first segment of every mql topic.
	Prefix string `yaml:"prefix"`

	// UnitID identifies this process when it publishes log records.
	UnitID string `yaml:"unit_id"`

	// Level is the initial emission threshold of a publisher (0-15).
	Level int `yaml:"level"`
}

// LoggingConfig contains settings for the process's own diagnostic logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// InfluxDBConfig contains settings for the optional listener archive.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in defaults with environment overrides applied.
// It is used when no configuration file is given; callers apply their own
// flag overrides and then call Validate.
func Default() (*Config, error) {
	cfg := defaultConfig()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "127.0.0.1",
				Port: 1883,
			},
			QoS: 0,
		},
		MQL: MQLConfig{
			Prefix: "mql",
			UnitID: "my-id",
			Level:  int(severity.Info),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
			Path: "/metrics",
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://127.0.0.1:8086",
			Org:           "mql",
			Bucket:        "logs",
			BatchSize:     100,
			FlushInterval: 1,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// The names match the variables the mql tools have always honoured.
func applyEnvOverrides(cfg *Config) error {
	// MQTT
	if v := os.Getenv("MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing MQTT_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Protocol identity
	if v := os.Getenv("MQL_PREFIX"); v != "" {
		cfg.MQL.Prefix = v
	}
	if v := os.Getenv("MQL_ID"); v != "" {
		cfg.MQL.UnitID = v
	}
	if v := os.Getenv("MQL_LEVEL"); v != "" {
		level, err := severity.Parse(v)
		if err != nil {
			return fmt.Errorf("parsing MQL_LEVEL: %w", err)
		}
		cfg.MQL.Level = int(level)
	}

	// Logging
	if v := os.Getenv("MQL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// InfluxDB
	if v := os.Getenv("MQL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Protocol identity validation
	if err := protocol.ValidatePrefix(c.MQL.Prefix); err != nil {
		errs = append(errs, fmt.Sprintf("mql.prefix: %v", err))
	}
	if err := protocol.ValidateUnitID(c.MQL.UnitID); err != nil {
		errs = append(errs, fmt.Sprintf("mql.unit_id: %v", err))
	}
	if c.MQL.Level < 0 || c.MQL.Level >= severity.Count {
		errs = append(errs, "mql.level must be between 0 and 15")
	}

	// Metrics validation
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Severity returns the configured initial level as a severity.
// It assumes Validate has passed.
func (c MQLConfig) Severity() severity.Severity {
	return severity.Severity(c.Level)
}
