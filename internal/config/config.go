// Package config loads dashboard settings from an optional YAML file and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/farm-platform/farm-dashboard/internal/alerting"
	"github.com/farm-platform/farm-dashboard/internal/controller"
	"github.com/farm-platform/farm-dashboard/pkg/kafka"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
)

// Config holds application configuration
type Config struct {
	ServiceName string        `yaml:"serviceName"`
	Server      ServerConfig  `yaml:"server"`
	Gateway     GatewayConfig `yaml:"gateway"`
	Sync        SyncConfig    `yaml:"sync"`
	Alerts      AlertsConfig  `yaml:"alerts"`
	Logging     LoggingConfig `yaml:"logging"`
	Tracing     TracingConfig `yaml:"tracing"`
	Stub        StubConfig    `yaml:"stub"`
}

// ServerConfig configures the dashboard HTTP server
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// GatewayConfig configures the remote inventory client
type GatewayConfig struct {
	BaseURL   string        `yaml:"baseUrl"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rateLimit"`
	RateBurst int           `yaml:"rateBurst"`
}

// SyncConfig configures polling and derivation
type SyncConfig struct {
	PollInterval       time.Duration `yaml:"pollInterval"`
	ReorderHorizonDays int           `yaml:"reorderHorizonDays"`
	DefaultTenant      string        `yaml:"defaultTenant"`
}

// AlertsConfig configures the Kafka low-stock notifier. No brokers disables it.
type AlertsConfig struct {
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	ClientID  string   `yaml:"clientId"`
	QueueSize int      `yaml:"queueSize"`
}

// Enabled reports whether alerts should be published
func (a AlertsConfig) Enabled() bool {
	return len(a.Brokers) > 0
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
}

// StubConfig configures the development inventory service
type StubConfig struct {
	Addr     string `yaml:"addr"`
	SeedDemo bool   `yaml:"seedDemo"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServiceName: "farm-dashboard",
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Gateway: GatewayConfig{
			BaseURL:   "http://localhost:8090",
			Timeout:   10 * time.Second,
			RateLimit: 20,
			RateBurst: 10,
		},
		Sync: SyncConfig{
			PollInterval:       controller.DefaultPollInterval,
			ReorderHorizonDays: alerting.DefaultReorderHorizonDays,
		},
		Alerts: AlertsConfig{
			Topic:     kafka.TopicInventoryAlerts,
			ClientID:  "farm-dashboard",
			QueueSize: 256,
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
		Tracing: TracingConfig{
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
		},
		Stub: StubConfig{
			Addr:     ":8090",
			SeedDemo: true,
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Gateway.BaseURL = getEnv("INVENTORY_GATEWAY_URL", c.Gateway.BaseURL)
	c.Sync.DefaultTenant = getEnv("DEFAULT_TENANT_ID", c.Sync.DefaultTenant)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
	c.Stub.Addr = getEnv("STUB_ADDR", c.Stub.Addr)
	c.Alerts.Topic = getEnv("ALERTS_TOPIC", c.Alerts.Topic)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Alerts.Brokers = splitList(brokers)
	}

	var err error
	if c.Sync.PollInterval, err = getEnvDuration("POLL_INTERVAL", c.Sync.PollInterval); err != nil {
		return err
	}
	if c.Gateway.Timeout, err = getEnvDuration("INVENTORY_GATEWAY_TIMEOUT", c.Gateway.Timeout); err != nil {
		return err
	}
	if c.Sync.ReorderHorizonDays, err = getEnvInt("REORDER_HORIZON_DAYS", c.Sync.ReorderHorizonDays); err != nil {
		return err
	}
	if c.Tracing.Enabled, err = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings the dashboard cannot run without
func (c *Config) Validate() error {
	u, err := url.Parse(c.Gateway.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateway.baseUrl %q is not an absolute URL", c.Gateway.BaseURL)
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.pollInterval must be positive, got %s", c.Sync.PollInterval)
	}
	if c.Sync.ReorderHorizonDays <= 0 {
		return fmt.Errorf("sync.reorderHorizonDays must be positive, got %d", c.Sync.ReorderHorizonDays)
	}
	if c.Alerts.Enabled() {
		if c.Alerts.Topic == "" {
			return fmt.Errorf("alerts.topic is required when brokers are configured")
		}
		if err := c.KafkaConfig().Validate(); err != nil {
			return fmt.Errorf("alerts: %w", err)
		}
	}
	return nil
}

// KafkaConfig returns the producer settings for the alert notifier
func (c *Config) KafkaConfig() *kafka.Config {
	cfg := kafka.DefaultConfig()
	cfg.Brokers = c.Alerts.Brokers
	if c.Alerts.ClientID != "" {
		cfg.ClientID = c.Alerts.ClientID
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
