package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store and event bus backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds all configuration for classflow
type Config struct {
	// Server configuration
	HTTPPort int    `env:"CLASSFLOW_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"CLASSFLOW_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Store        StoreConfig
	Redis        RedisConfig
	LLM          LLMConfig
	Orchestrator OrchestratorConfig
	Planner      PlannerConfig
	Workers      WorkerConfig
	Timeouts     TimeoutConfig
}

// StoreConfig selects where jobs are persisted and how events travel
type StoreConfig struct {
	Backend    string        `env:"STORE_BACKEND" envDefault:"sqlite"`
	SQLitePath string        `env:"STORE_SQLITE_PATH" envDefault:"./data/classflow.db"`
	JobTTL     time.Duration `env:"STORE_JOB_TTL" envDefault:"720h"`

	EventBus string `env:"EVENT_BUS_BACKEND" envDefault:"memory"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// Streams consumer identity
	StreamGroup  string `env:"REDIS_STREAM_GROUP" envDefault:"classflow"`
	ConsumerName string `env:"REDIS_CONSUMER_NAME" envDefault:"classflow-1"`
}

// LLMConfig holds LLM provider configuration. Without an API key the
// generation actions are not registered.
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`

	RequestTimeout time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`
	MaxRetries     int           `env:"LLM_MAX_RETRIES" envDefault:"2"`

	// Default model settings
	DefaultModel       string  `env:"LLM_DEFAULT_MODEL" envDefault:"claude-sonnet-4-5"`
	DefaultTemperature float64 `env:"LLM_DEFAULT_TEMPERATURE" envDefault:"0.4"`
	DefaultMaxTokens   int     `env:"LLM_DEFAULT_MAX_TOKENS" envDefault:"4000"`
}

// OrchestratorConfig tunes task retries
type OrchestratorConfig struct {
	MaxRetries  int           `env:"ORCHESTRATOR_MAX_RETRIES" envDefault:"2"`
	BackoffBase time.Duration `env:"ORCHESTRATOR_BACKOFF_BASE" envDefault:"700ms"`

	// Actions treated as retryable in addition to those registered so.
	RetryableActions []string `env:"ORCHESTRATOR_RETRYABLE_ACTIONS" envSeparator:","`
}

// PlannerConfig points at optional HCL flow templates
type PlannerConfig struct {
	TemplatesPath string `env:"PLANNER_TEMPLATES_PATH"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	QueueSize           int           `env:"WORKER_QUEUE_SIZE" envDefault:"100"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	JobRunTimeout   time.Duration `env:"TIMEOUT_JOB_RUN" envDefault:"3600s"` // 1 hour
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate store config
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unsupported store backend: %s (must be memory, redis, or sqlite)", c.Store.Backend)
	}
	if c.Store.EventBus != BackendMemory && c.Store.EventBus != BackendRedis {
		return fmt.Errorf("unsupported event bus backend: %s (must be memory or redis)", c.Store.EventBus)
	}

	// Validate Redis config
	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate LLM config
	if c.LLM.APIKey != "" && c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported LLM provider: %s (only 'anthropic' is supported)", c.LLM.Provider)
	}

	// Validate orchestrator config
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("orchestrator max retries must not be negative")
	}
	if c.Orchestrator.BackoffBase < 0 {
		return fmt.Errorf("orchestrator backoff base must not be negative")
	}

	// Validate worker config
	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Workers.QueueSize < 1 {
		return fmt.Errorf("worker queue size must be at least 1")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Warnings lists settings that are valid but disable functionality
func (c *Config) Warnings() []string {
	var warnings []string
	if c.LLM.APIKey == "" {
		warnings = append(warnings, "LLM_API_KEY is not set; generation actions are disabled")
	}
	if c.Store.Backend == BackendMemory {
		warnings = append(warnings, "memory store selected; jobs are lost on restart")
	}
	return warnings
}

// UsesRedis reports whether any backend needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Store.Backend == BackendRedis || c.Store.EventBus == BackendRedis
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
