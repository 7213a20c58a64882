// Package config loads client configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "200ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the settings for the bridge client.
type Config struct {
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Protocol struct {
		CommandPrefix  string   `yaml:"command_prefix"`
		EventPrefix    string   `yaml:"event_prefix"`
		RequestTimeout Duration `yaml:"request_timeout"`
		MaxReconnects  int      `yaml:"max_reconnects"`
		ReconnectWait  Duration `yaml:"reconnect_wait"`
	} `yaml:"protocol"`
	Table struct {
		ResyncDebounce Duration `yaml:"resync_debounce"`
	} `yaml:"table"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the built-in defaults.
func Default() Config {
	var cfg Config
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.Protocol.CommandPrefix = "bridge.cmd."
	cfg.Protocol.EventPrefix = "bridge.events."
	cfg.Protocol.RequestTimeout = Duration(5 * time.Second)
	cfg.Protocol.MaxReconnects = -1
	cfg.Protocol.ReconnectWait = Duration(2 * time.Second)
	cfg.Table.ResyncDebounce = Duration(200 * time.Millisecond)
	cfg.Log.Level = "info"
	return cfg
}

// Load reads the config file at path, if given, and applies environment
// overrides on top of defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.NATS.URL = getEnv("BRIDGE_NATS_URL", c.NATS.URL)
	c.Protocol.CommandPrefix = getEnv("BRIDGE_COMMAND_PREFIX", c.Protocol.CommandPrefix)
	c.Protocol.EventPrefix = getEnv("BRIDGE_EVENT_PREFIX", c.Protocol.EventPrefix)
	c.Protocol.RequestTimeout = Duration(getEnvAsDuration("BRIDGE_REQUEST_TIMEOUT", c.Protocol.RequestTimeout.Std()))
	c.Protocol.MaxReconnects = getEnvAsInt("BRIDGE_MAX_RECONNECTS", c.Protocol.MaxReconnects)
	c.Protocol.ReconnectWait = Duration(getEnvAsDuration("BRIDGE_RECONNECT_WAIT", c.Protocol.ReconnectWait.Std()))
	c.Table.ResyncDebounce = Duration(getEnvAsDuration("BRIDGE_RESYNC_DEBOUNCE", c.Table.ResyncDebounce.Std()))
	c.Log.Level = getEnv("BRIDGE_LOG_LEVEL", c.Log.Level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
