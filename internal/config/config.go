package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Version is the release reported by the server and the CLI. Overridden at
// link time.
var Version = "0.1.0"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Sandbox   SandboxConfig
	Loader    LoaderConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// SandboxConfig holds window context configuration.
type SandboxConfig struct {
	Timeout         time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	MaxCallStack    int           `envconfig:"SANDBOX_MAX_CALL_STACK" default:"1024"`
	PoolSize        int           `envconfig:"SANDBOX_POOL_SIZE" default:"0"`
	DefaultFilename string        `envconfig:"SANDBOX_DEFAULT_FILENAME" default:"<window>"`
	MaxWindows      int           `envconfig:"SANDBOX_MAX_WINDOWS" default:"64"`
	Console         bool          `envconfig:"SANDBOX_CONSOLE" default:"true"`
	PrimitivesFile  string        `envconfig:"SANDBOX_PRIMITIVES_FILE"` // Extra primitives, YAML, TOML or JSON
}

// LoaderConfig holds page script loader configuration.
type LoaderConfig struct {
	Timeout        time.Duration `envconfig:"LOADER_TIMEOUT" default:"10s"`
	Retries        int           `envconfig:"LOADER_RETRIES" default:"2"`
	UserAgent      string        `envconfig:"LOADER_USER_AGENT" default:"windowctx/1.0"`
	MaxScriptBytes int64         `envconfig:"LOADER_MAX_SCRIPT_BYTES" default:"2097152"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Sandbox.Timeout < 0:
		return fmt.Errorf("invalid config: SANDBOX_TIMEOUT must not be negative")
	case c.Sandbox.MaxCallStack < 0:
		return fmt.Errorf("invalid config: SANDBOX_MAX_CALL_STACK must not be negative")
	case c.Sandbox.PoolSize < 0:
		return fmt.Errorf("invalid config: SANDBOX_POOL_SIZE must not be negative")
	case c.Sandbox.MaxWindows <= 0:
		return fmt.Errorf("invalid config: SANDBOX_MAX_WINDOWS must be positive")
	case c.Loader.Retries < 0:
		return fmt.Errorf("invalid config: LOADER_RETRIES must not be negative")
	case c.Loader.MaxScriptBytes <= 0:
		return fmt.Errorf("invalid config: LOADER_MAX_SCRIPT_BYTES must be positive")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Sandbox: SandboxConfig{
			Timeout:         5 * time.Second,
			MaxCallStack:    1024,
			PoolSize:        0,
			DefaultFilename: "<window>",
			MaxWindows:      64,
			Console:         true,
		},
		Loader: LoaderConfig{
			Timeout:        10 * time.Second,
			Retries:        2,
			UserAgent:      "windowctx/1.0",
			MaxScriptBytes: 2 << 20,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
