// Package config loads the canvas CLI configuration from config.yaml and
// CANVAS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/redkyn/canvas-client/pkg/client"
	"github.com/redkyn/canvas-client/pkg/logging"
	"github.com/spf13/viper"
)

// Environment variables that override file settings.
var envBindings = map[string]string{
	"canvas.url":          "CANVAS_URL",
	"canvas.token":        "CANVAS_TOKEN",
	"client.max_attempts": "CANVAS_MAX_ATTEMPTS",
	"client.timeout":      "CANVAS_TIMEOUT",
	"redis.addr":          "CANVAS_REDIS_ADDR",
	"redis.password":      "CANVAS_REDIS_PASSWORD",
	"logging.level":       "CANVAS_LOG_LEVEL",
}

// Load loads the configuration from file. With an empty configPath the
// standard locations are searched and a missing file is not an error, so
// the CLI can run from environment variables alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".canvas"))
		}
		v.AddConfigPath("/etc/canvas/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	retry := client.DefaultRetryConfig()

	v.SetDefault("client.max_attempts", retry.MaxAttempts)
	v.SetDefault("client.timeout", "30s")
	v.SetDefault("client.initial_backoff", retry.InitialBackoff.String())

	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Canvas.URL == "" {
		return fmt.Errorf("canvas.url is required")
	}
	if _, err := client.NormalizeBaseURL(cfg.Canvas.URL); err != nil {
		return fmt.Errorf("canvas.url: %w", err)
	}

	if cfg.Canvas.Token == "" {
		return fmt.Errorf("canvas.token is required (or set CANVAS_TOKEN)")
	}

	if cfg.Client.MaxAttempts < 1 {
		return fmt.Errorf("client.max_attempts must be >= 1 (got %d)", cfg.Client.MaxAttempts)
	}
	if cfg.Client.Timeout < 0 {
		return fmt.Errorf("client.timeout must not be negative")
	}

	if !logging.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	seen := make(map[string]bool, len(cfg.Sections))
	for _, section := range cfg.Sections {
		if section.Name == "" || section.CourseID <= 0 {
			return fmt.Errorf("sections: each entry needs a section name and a positive course id")
		}
		if seen[section.Name] {
			return fmt.Errorf("sections: duplicate section %q", section.Name)
		}
		seen[section.Name] = true
	}

	return nil
}

// ClientConfig converts the file settings into a request engine
// configuration. Redis is attached separately by the caller.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.Canvas.Token, c.Canvas.URL)
	cfg.Retry.MaxAttempts = c.Client.MaxAttempts
	if c.Client.InitialBackoff > 0 {
		cfg.Retry.InitialBackoff = c.Client.InitialBackoff
	}
	if c.Client.Timeout > 0 {
		cfg.Timeout = c.Client.Timeout
	}
	return cfg
}

// RedisOptions returns connection options, or nil when rate limit tracking
// is disabled.
func (c *Config) RedisOptions() *redis.Options {
	if c.Redis.Addr == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// LoggingOptions returns the logger configuration.
func (c *Config) LoggingOptions() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Logging.Level)
	cfg.Pretty = c.Logging.Pretty
	cfg.NoColor = !c.Logging.Color
	return cfg
}
