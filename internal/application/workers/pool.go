package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/classflow/internal/application/orchestrator"
	"github.com/aescanero/classflow/pkg/domain"
	"github.com/aescanero/classflow/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const queueName = "jobs"

// ErrQueueFull is returned when a run request arrives while the queue is full.
var ErrQueueFull = errors.New("job queue is full")

// JobRunner resumes stored jobs. *orchestrator.Manager implements it.
type JobRunner interface {
	Resume(ctx context.Context, jobID string) (*orchestrator.RunResult, error)
}

// Config sizes the pool
type Config struct {
	Size                int
	QueueSize           int
	HealthCheckInterval time.Duration
}

// Pool runs queued jobs on a fixed number of worker goroutines. Run
// requests arrive as job.run_requested events on the job command topic.
type Pool struct {
	size     int
	runner   JobRunner
	eventBus ports.EventBus
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	health   *HealthMonitor

	queue   chan string
	workers []*worker
	wg      sync.WaitGroup

	// stop ends the worker loops; runCtx is only cancelled when a shutdown
	// deadline expires with jobs still running.
	stop      chan struct{}
	stopOnce  sync.Once
	runCtx    context.Context
	cancelRun context.CancelFunc
	subCtx    context.Context
	cancelSub context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(cfg Config, runner JobRunner, eventBus ports.EventBus, metrics ports.MetricsCollector, logger *zap.Logger) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
	if metrics == nil {
		metrics = orchestrator.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	subCtx, cancelSub := context.WithCancel(context.Background())

	pool := &Pool{
		size:      cfg.Size,
		runner:    runner,
		eventBus:  eventBus,
		metrics:   metrics,
		logger:    logger,
		queue:     make(chan string, cfg.QueueSize),
		workers:   make([]*worker, cfg.Size),
		stop:      make(chan struct{}),
		runCtx:    runCtx,
		cancelRun: cancelRun,
		subCtx:    subCtx,
		cancelSub: cancelSub,
	}

	pool.health = NewHealthMonitor(pool, cfg.HealthCheckInterval, logger)

	return pool
}

// Health returns the pool's health monitor
func (p *Pool) Health() *HealthMonitor {
	return p.health
}

// Start subscribes to job commands and starts the workers
func (p *Pool) Start() error {
	p.logger.Info("starting worker pool", zap.Int("size", p.size), zap.Int("queue_size", cap(p.queue)))

	if err := p.eventBus.Subscribe(p.subCtx, domain.TopicJobCommands, p.handleCommand); err != nil {
		return fmt.Errorf("failed to subscribe to job commands: %w", err)
	}

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run()
	}

	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Submit requests an asynchronous run of a stored job
func (p *Pool) Submit(ctx context.Context, jobID string) error {
	select {
	case <-p.stop:
		return fmt.Errorf("failed to submit job %s: worker pool is shutting down", jobID)
	default:
	}

	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      domain.EventTypeJobRunRequested,
		JobID:     jobID,
		Timestamp: time.Now(),
	}
	if err := p.eventBus.Publish(ctx, domain.TopicJobCommands, event); err != nil {
		return fmt.Errorf("failed to submit job %s: %w", jobID, err)
	}
	return nil
}

// handleCommand enqueues run requests. A full queue is reported to the bus
// so that durable transports can redeliver.
func (p *Pool) handleCommand(_ context.Context, event domain.Event) error {
	if event.Type != domain.EventTypeJobRunRequested {
		return nil
	}
	if event.JobID == "" {
		p.logger.Warn("run request without job id", zap.String("event_id", event.ID))
		return nil
	}

	select {
	case <-p.stop:
		return fmt.Errorf("worker pool is shutting down")
	default:
	}

	select {
	case p.queue <- event.JobID:
		p.metrics.SetQueueDepth(queueName, len(p.queue))
		p.logger.Debug("job queued", zap.String("job_id", event.JobID), zap.Int("depth", len(p.queue)))
		return nil
	default:
		p.logger.Warn("job queue full, run request rejected", zap.String("job_id", event.JobID))
		return fmt.Errorf("%w: job %s", ErrQueueFull, event.JobID)
	}
}

// Shutdown stops accepting work and waits for running jobs. If ctx expires
// first, running jobs are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.health.Stop()

	p.cancelSub()
	if err := p.eventBus.Unsubscribe(ctx, domain.TopicJobCommands); err != nil {
		p.logger.Warn("failed to unsubscribe from job commands", zap.Error(err))
	}
	p.stopOnce.Do(func() { close(p.stop) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancelRun()
		p.logger.Info("worker pool shut down complete", zap.Int("dropped", len(p.queue)))
		return nil
	case <-ctx.Done():
		p.cancelRun()
		<-done
		return fmt.Errorf("shutdown timeout: running jobs cancelled")
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// QueueDepth returns the number of queued run requests
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

// run is the main worker loop
func (w *worker) run() {
	defer w.pool.wg.Done()

	w.pool.logger.Info("worker started", zap.String("worker_id", w.id))

	for {
		select {
		case <-w.pool.stop:
			w.setStatus(WorkerStatusStopped)
			w.pool.logger.Info("worker stopped", zap.String("worker_id", w.id))
			return
		case jobID := <-w.pool.queue:
			w.pool.metrics.SetQueueDepth(queueName, len(w.pool.queue))
			w.handleJob(jobID)
		}
	}
}

func (w *worker) setStatus(s WorkerStatus) {
	w.mu.Lock()
	w.status = s
	if s == WorkerStatusBusy {
		w.lastJob = time.Now()
	}
	w.mu.Unlock()
}

// handleJob resumes one job and logs its outcome
func (w *worker) handleJob(jobID string) {
	w.setStatus(WorkerStatusBusy)
	defer w.setStatus(WorkerStatusIdle)

	w.pool.logger.Info("running job",
		zap.String("worker_id", w.id),
		zap.String("job_id", jobID))

	startTime := time.Now()
	res, err := w.pool.runner.Resume(w.pool.runCtx, jobID)
	duration := time.Since(startTime)

	switch {
	case errors.Is(err, domain.ErrJobRunning):
		w.pool.logger.Info("job already running, request skipped",
			zap.String("worker_id", w.id),
			zap.String("job_id", jobID))
	case err != nil:
		w.pool.logger.Error("job run failed",
			zap.String("worker_id", w.id),
			zap.String("job_id", jobID),
			zap.Error(err))
	default:
		w.pool.logger.Info("job run completed",
			zap.String("worker_id", w.id),
			zap.String("job_id", jobID),
			zap.String("outcome", string(res.Outcome)),
			zap.String("wait_for", res.WaitFor),
			zap.Duration("duration", duration))
	}
}
