package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aescanero/classflow/internal/application/actions"
	"github.com/aescanero/classflow/internal/application/orchestrator"
	"github.com/aescanero/classflow/internal/application/planner"
	"github.com/aescanero/classflow/internal/config"
	eventsmemory "github.com/aescanero/classflow/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/classflow/pkg/adapters/events/redis"
	"github.com/aescanero/classflow/pkg/adapters/llm"
	metricsprom "github.com/aescanero/classflow/pkg/adapters/metrics/prometheus"
	storagememory "github.com/aescanero/classflow/pkg/adapters/storage/memory"
	storageredis "github.com/aescanero/classflow/pkg/adapters/storage/redis"
	"github.com/aescanero/classflow/pkg/adapters/storage/sqlite"
	"github.com/aescanero/classflow/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the wired components shared by the server and the CLI
// commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	redis    *goredis.Client
	store    ports.JobStore
	bus      ports.EventBus
	metrics  *metricsprom.Collector
	registry *orchestrator.Registry
	manager  *orchestrator.Manager
}

// newApp connects the configured backends and builds the orchestrator.
// Metrics are registered with reg.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.metrics = metricsprom.NewCollector(reg)

	if cfg.UsesRedis() {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	if a.store, err = newJobStore(a, cfg); err != nil {
		return nil, err
	}
	if a.bus, err = newEventBus(a, cfg); err != nil {
		return nil, err
	}

	var llmClient ports.LLMClient
	if cfg.LLM.APIKey != "" {
		llmClient, err = llm.NewClient(&llm.Config{
			Provider:   cfg.LLM.Provider,
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.DefaultModel,
			Timeout:    cfg.LLM.RequestTimeout,
			MaxRetries: cfg.LLM.MaxRetries,
			Metrics:    a.metrics,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	}

	a.registry = orchestrator.NewRegistry()
	registered := actions.RegisterDefaults(a.registry, actions.Dependencies{
		LLM:         llmClient,
		Model:       cfg.LLM.DefaultModel,
		Temperature: cfg.LLM.DefaultTemperature,
		MaxTokens:   cfg.LLM.DefaultMaxTokens,
		Outbox:      a.bus,
		Logger:      logger,
	})
	logger.Debug("actions registered", zap.Strings("actions", registered))

	plannerOpts := []planner.Option{
		planner.WithActionSet(a.registry),
		planner.WithLogger(logger),
	}
	if cfg.Planner.TemplatesPath != "" {
		templates, err := planner.LoadTemplates(cfg.Planner.TemplatesPath)
		if err != nil {
			return nil, err
		}
		plannerOpts = append(plannerOpts, planner.WithTemplates(templates...))
		logger.Info("planner templates loaded",
			zap.String("path", cfg.Planner.TemplatesPath),
			zap.Int("templates", len(templates)))
	}
	jobPlanner, err := planner.New(plannerOpts...)
	if err != nil {
		return nil, err
	}

	validator := orchestrator.NewValidator()
	policy := orchestrator.NewLinearRetryPolicy(
		cfg.Orchestrator.MaxRetries,
		cfg.Orchestrator.BackoffBase,
		a.registry,
		cfg.Orchestrator.RetryableActions...,
	)
	executor := orchestrator.NewTaskExecutor(a.registry, policy, a.metrics, logger)
	scheduler := orchestrator.NewScheduler(executor, validator, a.bus, a.metrics, logger)
	a.manager = orchestrator.NewManager(scheduler, jobPlanner, a.store, a.bus, a.metrics, validator, logger)

	return a, nil
}

func newJobStore(a *app, cfg *config.Config) (ports.JobStore, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return storagememory.NewJobStore(), nil
	case config.BackendRedis:
		return storageredis.NewJobStore(a.redis, cfg.Store.JobTTL, a.logger), nil
	default:
		store, err := sqlite.NewJobStore(cfg.Store.SQLitePath, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open job store: %w", err)
		}
		return store, nil
	}
}

func newEventBus(a *app, cfg *config.Config) (ports.EventBus, error) {
	if cfg.Store.EventBus != config.BackendRedis {
		return eventsmemory.NewEventBus(a.logger), nil
	}

	bus, err := eventsredis.NewStreamsEventBus(a.redis, cfg.Redis.StreamGroup, cfg.Redis.ConsumerName, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	return bus, nil
}

// runContext bounds a single job run by the configured timeout.
func (a *app) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeouts.JobRunTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Timeouts.JobRunTimeout)
}

// Close releases the backends in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("job store: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
