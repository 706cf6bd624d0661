package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/auditfix/auditfix-gateway/pkg/logging"
)

// EnvPrefix is the prefix for environment overrides, e.g. AUDITFIX_SERVER_PORT.
// Leaf fields use split_words rather than explicit envconfig names, which
// envconfig would also look up without the prefix.
const EnvPrefix = "AUDITFIX"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   logging.Config  `yaml:"logging" envconfig:"LOGGING"`
	Backend   BackendConfig   `yaml:"backend" envconfig:"BACKEND"`
	Gemini    GeminiConfig    `yaml:"gemini" envconfig:"GEMINI"`
	GitHub    GitHubConfig    `yaml:"github" envconfig:"GITHUB"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Metrics   MetricsConfig   `yaml:"metrics" envconfig:"METRICS"`
	CORS      CORSConfig      `yaml:"cors" envconfig:"CORS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string `yaml:"host" split_words:"true"`
	Port            int    `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	ShutdownTimeout int    `yaml:"shutdown_timeout" split_words:"true" validate:"min=0"` // seconds
}

// BackendConfig points at the external analysis service uploads are forwarded to.
type BackendConfig struct {
	URL            string `yaml:"url" split_words:"true" validate:"required,url"`
	Timeout        int    `yaml:"timeout" split_words:"true" validate:"min=1"` // seconds
	MaxUploadBytes int64  `yaml:"max_upload_bytes" split_words:"true" validate:"min=1"`
}

// GeminiConfig contains generative-language API settings
type GeminiConfig struct {
	APIKey string `yaml:"api_key" split_words:"true"`
	Model  string `yaml:"model" split_words:"true" validate:"required"`
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string `yaml:"base_url" split_words:"true" validate:"omitempty,url"`
	Timeout int    `yaml:"timeout" split_words:"true" validate:"min=1"` // seconds
}

// GitHubConfig contains GitHub REST API settings
type GitHubConfig struct {
	BaseURL   string `yaml:"base_url" split_words:"true" validate:"required,url"`
	Token     string `yaml:"token" split_words:"true"`
	UserAgent string `yaml:"user_agent" split_words:"true" validate:"required"`
	Timeout   int    `yaml:"timeout" split_words:"true" validate:"min=1"` // seconds
}

// CacheConfig configures the repository tree cache
type CacheConfig struct {
	// Type is the cache backend: "memory", "redis" or "none"
	Type  string      `yaml:"type" split_words:"true" validate:"oneof=memory redis none"`
	TTL   int         `yaml:"ttl" split_words:"true" validate:"min=0"` // seconds
	Redis RedisConfig `yaml:"redis" envconfig:"REDIS"`
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Address   string `yaml:"address" split_words:"true"`
	Password  string `yaml:"password" split_words:"true"`
	DB        int    `yaml:"db" split_words:"true"`
	KeyPrefix string `yaml:"key_prefix" split_words:"true"`
}

// RateLimitConfig configures per-client rate limiting of the API routes
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" split_words:"true"`
	RequestsPerMinute int  `yaml:"requests_per_minute" split_words:"true" validate:"min=0"`
	Burst             int  `yaml:"burst" split_words:"true" validate:"min=0"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" split_words:"true"`
	Path    string `yaml:"path" split_words:"true"`
}

// CORSConfig contains cross-origin settings for actual (non-OPTIONS) requests
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" split_words:"true"`
	MaxAge         int      `yaml:"max_age" split_words:"true"` // seconds
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := defaultConfig()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Missing file is fine, defaults and env vars apply
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	applyWellKnownEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyWellKnownEnv fills credentials from the conventional unprefixed
// variables when no prefixed value was given.
func applyWellKnownEnv(cfg *Config) {
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30,
		},
		Logging: logging.DefaultConfig(),
		Backend: BackendConfig{
			URL:            "http://localhost:8888",
			Timeout:        60,
			MaxUploadBytes: 8 << 20,
		},
		Gemini: GeminiConfig{
			Model:   "gemini-pro",
			Timeout: 60,
		},
		GitHub: GitHubConfig{
			BaseURL:   "https://api.github.com",
			UserAgent: "AuditFix-Security-Tool",
			Timeout:   30,
		},
		Cache: CacheConfig{
			Type: "memory",
			TTL:  300,
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "auditfix:tree:",
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			MaxAge:         43200,
		},
	}
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("rate_limit.requests_per_minute must be positive when rate limiting is enabled")
	}

	if c.Cache.Type == "redis" && c.Cache.Redis.Address == "" {
		return fmt.Errorf("cache.redis.address is required when using redis cache")
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path is required when metrics are enabled")
	}

	return nil
}

// Address returns the server listen address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// ShutdownTimeoutDuration returns the graceful shutdown budget.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration { return seconds(c.ShutdownTimeout) }

// TimeoutDuration returns the per-request timeout for the analysis backend.
func (c *BackendConfig) TimeoutDuration() time.Duration { return seconds(c.Timeout) }

// TimeoutDuration returns the per-request timeout for the model API.
func (c *GeminiConfig) TimeoutDuration() time.Duration { return seconds(c.Timeout) }

// TimeoutDuration returns the per-request timeout for the GitHub API.
func (c *GitHubConfig) TimeoutDuration() time.Duration { return seconds(c.Timeout) }

// TTLDuration returns how long cached trees stay valid.
func (c *CacheConfig) TTLDuration() time.Duration { return seconds(c.TTL) }
