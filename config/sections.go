package config

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SERVER
// =============================================================================

type ServerConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

func (c ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// =============================================================================
// DATABASE
// =============================================================================

type DatabaseConfig struct {
	// Path of the SQLite file. ":memory:" keeps everything in process.
	Path string `json:"path"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "planner.db"
	}
}

func (c DatabaseConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// =============================================================================
// LOGGING
// =============================================================================

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json or console
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	return nil
}

// =============================================================================
// CORS
// =============================================================================

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

func (c *CORSConfig) SetDefaults() {
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
}

// =============================================================================
// STATUS SCHEDULER
// =============================================================================

type SchedulerConfig struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
}

func (c *SchedulerConfig) SetDefaults() {
	if c.Interval == 0 {
		c.Interval = time.Hour
	}
}

func (c SchedulerConfig) Validate() error {
	if c.Interval < time.Second {
		return fmt.Errorf("interval %s is below one second", c.Interval)
	}
	return nil
}

// =============================================================================
// METRICS
// =============================================================================

type MetricsConfig struct {
	// Disabled turns off the /metrics endpoint and the recorder.
	Disabled bool   `json:"disabled"`
	Path     string `json:"path"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

func (c MetricsConfig) Validate() error {
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /")
	}
	return nil
}

// =============================================================================
// MQTT
// =============================================================================

// MQTTConfig configures the event publisher. Events are only published when
// Enabled is set.
type MQTTConfig struct {
	Enabled        bool          `json:"enabled"`
	Broker         string        `json:"broker"`
	ClientID       string        `json:"client_id"`
	Username       string        `json:"username"`
	Password       string        `json:"password"`
	TopicPrefix    string        `json:"topic_prefix"`
	QoS            byte          `json:"qos"`
	PublishTimeout time.Duration `json:"publish_timeout"`
}

func (c *MQTTConfig) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.ClientID == "" {
		c.ClientID = "site-planner"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "planner"
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = 5 * time.Second
	}
}

func (c MQTTConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos %d must be 0, 1 or 2", c.QoS)
	}
	if strings.ContainsAny(c.TopicPrefix, "#+") {
		return fmt.Errorf("topic prefix must not contain wildcards")
	}
	return nil
}
