// Package config loads subline settings from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultEndpoint           = "ws://127.0.0.1:9944"
	DefaultCallTimeout        = 30 * time.Second
	DefaultWaitTimeout        = 60 * time.Second
	DefaultSubscriptionBuffer = 64
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// Config holds client and CLI settings.
type Config struct {
	Endpoint    string        `yaml:"endpoint"`     // e.g. "ws://127.0.0.1:9944"
	CallTimeout time.Duration `yaml:"call_timeout"` // bound for calls whose context has no deadline
	WaitTimeout time.Duration `yaml:"wait_timeout"` // bound for waiting on an event (CLI)

	// SubscriptionBuffer sizes the records channel of Subscription.Records.
	SubscriptionBuffer int `yaml:"subscription_buffer"`

	LogLevel  string `yaml:"log_level"`  // logrus level name
	LogFormat string `yaml:"log_format"` // "text" or "json"

	// Correlate makes transfers wait for the event of the submitted extrinsic only.
	Correlate bool `yaml:"correlate"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads a YAML file and applies defaults to unset fields.
func Load(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", file, err)
	}
	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.SubscriptionBuffer == 0 {
		cfg.SubscriptionBuffer = DefaultSubscriptionBuffer
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.CallTimeout < 0 || c.WaitTimeout < 0 {
		return fmt.Errorf("config: timeouts must not be negative")
	}
	if c.SubscriptionBuffer < 0 {
		return fmt.Errorf("config: subscription_buffer must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	return nil
}

// ConfigureLogger applies the log level and format to l.
func (c *Config) ConfigureLogger(l *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	l.SetLevel(level)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
