package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/classflow/internal/application/orchestrator"
	"github.com/aescanero/classflow/internal/application/workers"
	"github.com/aescanero/classflow/pkg/api/grpc"
	"github.com/aescanero/classflow/pkg/api/http"
	"github.com/aescanero/classflow/pkg/api/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and gRPC servers with the worker pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

// timedRunner bounds every pool run by the job run timeout.
type timedRunner struct {
	app *app
}

func (r timedRunner) Resume(ctx context.Context, jobID string) (*orchestrator.RunResult, error) {
	ctx, cancel := r.app.runContext(ctx)
	defer cancel()
	return r.app.manager.Resume(ctx, jobID)
}

func serve(ctx context.Context, opts *globalOptions) error {
	cfg, logger := opts.cfg, opts.logger

	logger.Info("starting classflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	a, err := newApp(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("backend close error", zap.Error(err))
		}
	}()

	workerPool := workers.NewPool(workers.Config{
		Size:                cfg.Workers.PoolSize,
		QueueSize:           cfg.Workers.QueueSize,
		HealthCheckInterval: cfg.Workers.HealthCheckInterval,
	}, timedRunner{app: a}, a.bus, a.metrics, logger)

	httpServer := http.NewServer(&http.Config{
		Port:      cfg.HTTPPort,
		Jobs:      a.manager,
		Submitter: workerPool,
		Health:    workerPool.Health(),
		Gatherer:  prometheus.DefaultGatherer,
		Logger:    logger,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(a.bus, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Health: workerPool.Health(),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if err := workerPool.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- httpServer.Start() }()
	go func() { errCh <- grpcServer.Start() }()

	logger.Info("classflow started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.Strings("actions", a.registry.Names()))

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-sigCtx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		logger.Error("server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := a.manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator shutdown error", zap.Error(err))
	}

	logger.Info("classflow shut down complete")
	return serveErr
}
