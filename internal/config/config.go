package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DEALBOOK"

// FileEnv names the environment variable holding an optional YAML config file.
const FileEnv = EnvPrefix + "_CONFIG_FILE"

// DevJWTSecret is the signing secret used outside production when none is set.
const DevJWTSecret = "dealbook-dev-secret"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the runtime settings of the dealbook binaries
type Config struct {
	Env                string        `yaml:"env" envconfig:"ENV" default:"development"`
	Port               int           `yaml:"port" envconfig:"PORT" default:"8080"`
	LogLevel           string        `yaml:"log_level" envconfig:"LOG_LEVEL" default:"info"`
	DatabasePath       string        `yaml:"database_path" envconfig:"DATABASE_PATH" default:"dealbook.db"`
	JWTSecret          string        `yaml:"jwt_secret" envconfig:"JWT_SECRET" default:"dealbook-dev-secret"`
	APIKey             string        `yaml:"api_key" envconfig:"API_KEY"`
	APISecret          string        `yaml:"api_secret" envconfig:"API_SECRET"`
	ReportCacheTTL     time.Duration `yaml:"report_cache_ttl" envconfig:"REPORT_CACHE_TTL" default:"15m"`
	ReportCacheCleanup time.Duration `yaml:"report_cache_cleanup" envconfig:"REPORT_CACHE_CLEANUP" default:"30m"`
	MaxUploadBytes     int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
	AllowedOrigins     []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// Load reads configuration from a .env file (optional), the environment and
// an optional YAML file named by DEALBOOK_CONFIG_FILE. Values present in the
// YAML file override the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overlay decodes a YAML file on top of cfg. Keys absent from the file keep
// their current value.
func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks the settings a server cannot start without
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max upload bytes must be positive", ErrInvalidConfig)
	}
	if c.ReportCacheTTL <= 0 {
		return fmt.Errorf("%w: report cache ttl must be positive", ErrInvalidConfig)
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DevJWTSecret) {
		return fmt.Errorf("%w: jwt secret must be set in production", ErrInvalidConfig)
	}
	return nil
}

// IsProduction reports whether the binaries run in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Level returns the zerolog level for LogLevel, defaulting to info
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
