// Package config loads console settings from a YAML file, an optional .env
// file and TRANSFERDESK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is read when no config file is named. It may be absent.
	DefaultPath = "transferdesk.yaml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TRANSFERDESK_"
)

// Token storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// API configures the platform API client. RateLimit is in requests per
// second; zero disables client-side limiting. An empty PushPath skips push
// registration.
type API struct {
	BaseURL   string        `yaml:"base_url" env:"URL"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RateLimit float64       `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int           `yaml:"burst" env:"BURST"`
	PushPath  string        `yaml:"push_path" env:"PUSH_PATH"`
}

// Tokens selects where session tokens are persisted. Path is used by the file
// backend, TTL by the redis backend.
type Tokens struct {
	Backend string        `yaml:"backend" env:"BACKEND"`
	Path    string        `yaml:"path" env:"PATH"`
	TTL     time.Duration `yaml:"ttl" env:"TTL"`
}

// Redis configures the redis token backend and the shared lock.
type Redis struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Prefix   string `yaml:"prefix" env:"PREFIX"`
	// Locks moves per-entity flow locks into Redis so several console
	// processes sharing one account serialize their edits.
	Locks bool `yaml:"locks" env:"LOCKS"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Server configures the HTTP surface started by serve.
type Server struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Config is the full console configuration.
type Config struct {
	API        API    `yaml:"api" envPrefix:"API_"`
	Tokens     Tokens `yaml:"tokens" envPrefix:"TOKENS_"`
	Redis      Redis  `yaml:"redis" envPrefix:"REDIS_"`
	Log        Log    `yaml:"log" envPrefix:"LOG_"`
	Server     Server `yaml:"server" envPrefix:"SERVER_"`
	FlashLimit int    `yaml:"flash_limit" env:"FLASH_LIMIT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:9000/api",
			Timeout: 30 * time.Second,
			Burst:   1,
		},
		Tokens: Tokens{
			Backend: BackendFile,
			Path:    ".transferdesk/tokens",
		},
		Redis: Redis{
			Addr:   "localhost:6379",
			Prefix: "transferdesk:token:",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Server: Server{
			Addr: ":8080",
		},
		FlashLimit: 20,
	}
}

// Load builds the configuration. An empty path reads DefaultPath if it exists;
// a named file must exist. envFiles are loaded with godotenv when present and
// never override variables already set in the process environment.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// YAML is a superset of JSON, so .json files decode here too.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	switch c.Tokens.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown token backend %q", c.Tokens.Backend)
	}
	if c.Tokens.Backend == BackendRedis && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for the redis token backend")
	}
	if c.FlashLimit < 0 {
		return fmt.Errorf("flash_limit must not be negative, got %d", c.FlashLimit)
	}
	return nil
}
