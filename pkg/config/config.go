package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/retry"
)

// DefaultConfigPath is read when present; otherwise only the environment is used.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for a kgsync session.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Backend       BackendConfig      `yaml:"backend"`
	Graph         GraphConfig        `yaml:"graph"`
	Retry         RetryConfig        `yaml:"retry"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// BackendConfig describes the knowledge-graph backend.
type BackendConfig struct {
	// APIURL is the REST root, e.g. http://localhost:9017.
	APIURL string `yaml:"api_url" env:"SINDIT_BACKEND_API" env-default:""`

	// KGBaseURI prefixes every local node ID to form the backend node URI,
	// e.g. http://sindit.sintef.no/2.0#.
	KGBaseURI string `yaml:"kg_base_uri" env:"SINDIT_BACKEND_API_BASE_URI" env-default:""`

	Username string `yaml:"username" env:"SINDIT_BACKEND_USERNAME" env-default:""`
	Password string `yaml:"-" env:"SINDIT_BACKEND_PASSWORD"` // Secret - not in YAML

	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"SINDIT_BACKEND_TIMEOUT_SECONDS" env-default:"30"`
}

// RequestTimeout returns the per-request timeout for non-streaming calls.
func (b *BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutSeconds) * time.Second
}

// GraphConfig tunes loading and property resolution.
type GraphConfig struct {
	PageSize              int  `yaml:"page_size" env:"GRAPH_PAGE_SIZE" env-default:"100"`
	Depth                 int  `yaml:"depth" env:"GRAPH_DEPTH" env-default:"1"`
	ResolverMaxIterations int  `yaml:"resolver_max_iterations" env:"GRAPH_RESOLVER_MAX_ITERATIONS" env-default:"10"`
	ResolverConcurrency   int  `yaml:"resolver_concurrency" env:"GRAPH_RESOLVER_CONCURRENCY" env-default:"8"`
	StreamingEnabled      bool `yaml:"streaming_enabled" env:"GRAPH_STREAMING_ENABLED" env-default:"true"`
}

// RetryConfig configures backoff for page fetches.
type RetryConfig struct {
	MaxRetries     int     `yaml:"max_retries" env:"RETRY_MAX_RETRIES" env-default:"3"`
	InitialDelayMS int     `yaml:"initial_delay_ms" env:"RETRY_INITIAL_DELAY_MS" env-default:"1000"`
	MaxDelayMS     int     `yaml:"max_delay_ms" env:"RETRY_MAX_DELAY_MS" env-default:"10000"`
	Multiplier     float64 `yaml:"multiplier" env:"RETRY_MULTIPLIER" env-default:"2"`
}

// Policy converts the configuration to a retry.Config.
func (r *RetryConfig) Policy() *retry.Config {
	return &retry.Config{
		MaxRetries:   r.MaxRetries,
		InitialDelay: time.Duration(r.InitialDelayMS) * time.Millisecond,
		MaxDelay:     time.Duration(r.MaxDelayMS) * time.Millisecond,
		Multiplier:   r.Multiplier,
		JitterFactor: 0.1,
	}
}

// NotificationConfig holds toast and pub/sub settings.
type NotificationConfig struct {
	ToastDurationSeconds int `yaml:"toast_duration_seconds" env:"TOAST_DURATION_SECONDS" env-default:"15"`

	// Redis publishing is disabled when RedisHost is empty.
	RedisHost     string `yaml:"redis_host" env:"REDIS_HOST" env-default:""`
	RedisPort     int    `yaml:"redis_port" env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	RedisChannel  string `yaml:"redis_channel" env:"REDIS_CHANNEL" env-default:"kgsync:notifications"`
}

// ToastDuration returns how long a toast stays visible.
func (n *NotificationConfig) ToastDuration() time.Duration {
	return time.Duration(n.ToastDurationSeconds) * time.Second
}

// RedisEnabled returns true if notifications should be published to Redis.
func (n *NotificationConfig) RedisEnabled() bool {
	return n.RedisHost != ""
}

// RedisAddr returns host:port for the redis client.
func (n *NotificationConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", n.RedisHost, n.RedisPort)
}

// Load reads configuration from config.yaml (when present) with environment
// variable overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	return LoadFile(DefaultConfigPath, version)
}

// LoadFile is Load with an explicit YAML path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.Backend.APIURL = strings.TrimRight(ResolveURLForDocker(cfg.Backend.APIURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures required values are present and numeric settings are usable.
func (c *Config) Validate() error {
	if c.Backend.APIURL == "" {
		return apperrors.NewConfigError("SINDIT_BACKEND_API", "backend API URL is undefined")
	}
	if c.Backend.KGBaseURI == "" {
		return apperrors.NewConfigError("SINDIT_BACKEND_API_BASE_URI", "knowledge-graph base URI is undefined")
	}
	if c.Graph.PageSize < 1 {
		return apperrors.NewValidationError("graph.page_size", "must be >= 1, got %d", c.Graph.PageSize)
	}
	if c.Graph.Depth < 0 {
		return apperrors.NewValidationError("graph.depth", "must be >= 0, got %d", c.Graph.Depth)
	}
	if c.Graph.ResolverMaxIterations < 1 {
		return apperrors.NewValidationError("graph.resolver_max_iterations", "must be >= 1, got %d", c.Graph.ResolverMaxIterations)
	}
	if c.Retry.MaxRetries < 0 {
		return apperrors.NewValidationError("retry.max_retries", "must be >= 0, got %d", c.Retry.MaxRetries)
	}
	return nil
}

// HasCredentials returns true if the backend requires a token.
func (b *BackendConfig) HasCredentials() bool {
	return b.Username != "" && b.Password != ""
}
