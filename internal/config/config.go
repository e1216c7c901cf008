package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Search     SearchConfig     `yaml:"search"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	RequestLog RequestLogConfig `yaml:"request_log"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Admin      AdminConfig      `yaml:"admin"`
	Health     HealthConfig     `yaml:"health"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Environment     string        `yaml:"environment"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"` // 0 keeps ndjson streams open
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// UpstreamConfig describes the generative-language provider.
type UpstreamConfig struct {
	APIKey         string               `yaml:"api_key"`
	APIKeys        []string             `yaml:"api_keys"` // rotated when more than one
	KeyStrategy    string               `yaml:"key_strategy"`
	KeyCooldown    time.Duration        `yaml:"key_cooldown"`
	Model          string               `yaml:"model"`
	Timeout        time.Duration        `yaml:"timeout"`
	StreamTimeout  time.Duration        `yaml:"stream_timeout"` // 0 = caller cancellation only
	ReportLanguage string               `yaml:"report_language"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	MaxFailures     int           `yaml:"max_failures"`
	Cooldown        time.Duration `yaml:"cooldown"`
	HalfOpenSuccess int           `yaml:"half_open_success"`
}

type SearchConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxResults int           `yaml:"max_results"`
}

type RateLimitConfig struct {
	Backend  string        `yaml:"backend"` // "memory" or "redis"
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

// Enabled reports whether a redis host was configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RequestLogConfig struct {
	BufferSize    int           `yaml:"buffer_size"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Retention     time.Duration `yaml:"retention"`
}

type HealthConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxFailures int           `yaml:"max_failures"`
}

type SnapshotConfig struct {
	Path  string        `yaml:"path"`
	TTL   time.Duration `yaml:"ttl"`
	Watch bool          `yaml:"watch"`
}

type AdminConfig struct {
	Email        string        `yaml:"email"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Environment:     "development",
			ReadTimeout:     15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Upstream: UpstreamConfig{
			KeyStrategy:    "round_robin",
			KeyCooldown:    time.Minute,
			Model:          "gemini-3-flash-preview",
			Timeout:        15 * time.Second,
			ReportLanguage: "Finnish",
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:         true,
				MaxFailures:     5,
				Cooldown:        30 * time.Second,
				HalfOpenSuccess: 1,
			},
		},
		Search: SearchConfig{
			BaseURL:    "https://api.ydc-index.io",
			Timeout:    10 * time.Second,
			MaxResults: 10,
		},
		RateLimit: RateLimitConfig{
			Backend:  "memory",
			Requests: 20,
			Window:   time.Minute,
		},
		Redis: RedisConfig{
			Port: "6379",
		},
		RequestLog: RequestLogConfig{
			BufferSize:    1000,
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
			Retention:     30 * 24 * time.Hour,
		},
		Snapshot: SnapshotConfig{
			Path: "data/sample-snapshot.json",
			TTL:  time.Hour,
		},
		Admin: AdminConfig{
			TokenTTL: 12 * time.Hour,
		},
		Health: HealthConfig{
			Interval:    30 * time.Second,
			Timeout:     3 * time.Second,
			MaxFailures: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file, expanding ${VAR} references from the
// environment. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv fills secrets left empty by the file from the process environment.
func (c *Config) applyEnv() {
	if c.Search.APIKey == "" {
		c.Search.APIKey = os.Getenv("YOU_API_KEY")
	}
}

// Keys returns the configured key pool. A single api_key counts as a pool of
// one.
func (u UpstreamConfig) Keys() []string {
	keys := make([]string, 0, len(u.APIKeys)+1)
	if u.APIKey != "" {
		keys = append(keys, u.APIKey)
	}
	return append(keys, u.APIKeys...)
}

func (c *Config) Validate() error {
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("ratelimit.requests must be positive, got %d", c.RateLimit.Requests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got %s", c.RateLimit.Window)
	}
	switch c.RateLimit.Backend {
	case "memory", "":
	case "redis":
		if !c.Redis.Enabled() {
			return errors.New("ratelimit.backend is redis but redis.host is empty")
		}
	default:
		return fmt.Errorf("unknown ratelimit.backend %q", c.RateLimit.Backend)
	}
	switch c.Upstream.KeyStrategy {
	case "", "round_robin", "round-robin", "random":
	default:
		return fmt.Errorf("unknown upstream.key_strategy %q", c.Upstream.KeyStrategy)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	return nil
}
