/*
config.go - Server configuration

PURPOSE:
  Loads the settings for cmd/server from an optional YAML or JSON file,
  then applies environment overrides, then fills defaults and validates.

ENVIRONMENT:
  PLANNER_<SECTION>__<KEY> overrides a file value. Nested keys are joined
  with a double underscore:

    PLANNER_SERVER__PORT=9090
    PLANNER_MQTT__ENABLED=true
    PLANNER_CORS__ALLOWED_ORIGINS=http://a.example,http://b.example

  Durations use Go syntax ("15s", "1h").

SEE ALSO:
  - sections.go: Per-section defaults and validation
  - cmd/server/main.go: Flags override the loaded values
*/
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "PLANNER_"

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
	CORS      CORSConfig      `json:"cors"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Metrics   MetricsConfig   `json:"metrics"`
	MQTT      MQTTConfig      `json:"mqtt"`
}

// Load reads path (skipped when empty), applies environment overrides and
// returns a validated configuration with defaults filled in.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or environment is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Database.SetDefaults()
	c.Logging.SetDefaults()
	c.CORS.SetDefaults()
	c.Scheduler.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section and reports the first failure.
func (c Config) Validate() error {
	checks := []struct {
		section string
		err     error
	}{
		{"server", c.Server.Validate()},
		{"database", c.Database.Validate()},
		{"logging", c.Logging.Validate()},
		{"scheduler", c.Scheduler.Validate()},
		{"metrics", c.Metrics.Validate()},
		{"mqtt", c.MQTT.Validate()},
	}
	for _, chk := range checks {
		if chk.err != nil {
			return fmt.Errorf("config %s: %w", chk.section, chk.err)
		}
	}
	return nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
}

// envKey maps PLANNER_SERVER__READ_TIMEOUT to server.read_timeout.
func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
