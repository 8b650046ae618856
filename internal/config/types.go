package config

import (
	"time"

	"github.com/redkyn/canvas-client/pkg/canvas"
)

// Config represents the complete configuration structure
type Config struct {
	Canvas   CanvasConfig     `mapstructure:"canvas"`
	Client   ClientConfig     `mapstructure:"client"`
	Redis    RedisConfig      `mapstructure:"redis"`
	Logging  LoggingConfig    `mapstructure:"logging"`
	Sections []canvas.Section `mapstructure:"sections"`
}

// CanvasConfig holds Canvas connection details
type CanvasConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// ClientConfig tunes the request engine
type ClientConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	Timeout        time.Duration `mapstructure:"timeout"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// RedisConfig enables shared rate limit tracking when Addr is set
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Color  bool   `mapstructure:"color"`
}
