package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/aescanero/classflow/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobPlanner turns a request into an initial job.
type JobPlanner interface {
	Plan(request string, options map[string]any) (*domain.Job, error)
}

// Manager coordinates planning, execution and persistence of jobs
type Manager struct {
	scheduler *Scheduler
	planner   JobPlanner
	storage   ports.JobStore
	eventBus  ports.EventBus
	metrics   ports.MetricsCollector
	validator *Validator
	logger    *zap.Logger

	// Track active runs, keyed by job id
	runs   sync.Map // map[string]context.CancelFunc
	active atomic.Int64
}

// NewManager creates a new orchestrator manager. eventBus and metrics may be nil.
func NewManager(
	scheduler *Scheduler,
	planner JobPlanner,
	storage ports.JobStore,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	validator *Validator,
	logger *zap.Logger,
) *Manager {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if validator == nil {
		validator = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		scheduler: scheduler,
		planner:   planner,
		storage:   storage,
		eventBus:  eventBus,
		metrics:   metrics,
		validator: validator,
		logger:    logger,
	}
}

// Registry returns the action registry used by the scheduler
func (m *Manager) Registry() *Registry {
	return m.scheduler.executor.registry
}

// Plan creates, validates and stores a new job
func (m *Manager) Plan(ctx context.Context, request string, options map[string]any) (*domain.Job, error) {
	job, err := m.planner.Plan(request, options)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to plan job: %w", domain.ErrInvalidJob, err)
	}

	if err := m.validator.ValidateGraph(job); err != nil {
		m.logger.Error("planned job is invalid",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := m.storage.Save(ctx, job); err != nil {
		m.logger.Error("failed to save planned job",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	flows := planFlows(job)
	m.metrics.RecordJobPlanned(len(flows))
	m.publish(ctx, domain.EventTypeJobPlanned, job.ID, map[string]any{
		"request": job.Request,
		"flows":   flows,
		"tasks":   len(job.Tasks),
	})

	m.logger.Info("job planned",
		zap.String("job_id", job.ID),
		zap.Strings("flows", flows),
		zap.Int("tasks", len(job.Tasks)))

	return job, nil
}

// Run executes job until it pauses or finishes and stores the result.
// A job can only be run by one caller at a time.
func (m *Manager) Run(ctx context.Context, job *domain.Job) (*RunResult, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: job is nil", domain.ErrInvalidJob)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, loaded := m.runs.LoadOrStore(job.ID, cancel); loaded {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobRunning, job.ID)
	}
	defer m.runs.Delete(job.ID)

	m.metrics.SetActiveRuns(int(m.active.Add(1)))
	defer func() {
		m.metrics.SetActiveRuns(int(m.active.Add(-1)))
	}()

	result, err := m.scheduler.Run(runCtx, job)
	if err != nil {
		return nil, err
	}

	// The run's outcome is stored even when the caller has gone away.
	if err := m.storage.Save(context.WithoutCancel(ctx), result.Job); err != nil {
		m.logger.Error("failed to save job after run",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return result, fmt.Errorf("failed to save job: %w", err)
	}

	return result, nil
}

// Resume loads a stored job and runs it from where it stopped, including
// a run that was interrupted. Jobs that already succeeded or failed are
// returned unchanged.
func (m *Manager) Resume(ctx context.Context, jobID string) (*RunResult, error) {
	job, err := m.storage.Load(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch job.State.Status {
	case domain.JobStatusSucceeded:
		return &RunResult{Job: job, Outcome: OutcomeSucceeded}, nil
	case domain.JobStatusFailed:
		return &RunResult{Job: job, Outcome: OutcomeFailed}, nil
	}

	m.logger.Info("resuming job",
		zap.String("job_id", jobID),
		zap.String("status", string(job.State.Status)),
		zap.String("wait_for", job.State.WaitFor))

	return m.Run(ctx, job)
}

// GetJob retrieves a stored job
func (m *Manager) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return m.storage.Load(ctx, jobID)
}

// ListJobs returns every stored job ordered by id
func (m *Manager) ListJobs(ctx context.Context) ([]*domain.Job, error) {
	ids, err := m.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return m.loadJobs(ctx, ids)
}

// ListJobsByStatus returns the stored jobs with the given status ordered by
// id. An empty status lists every job.
func (m *Manager) ListJobsByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	if status == "" {
		return m.ListJobs(ctx)
	}
	ids, err := m.storage.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s jobs: %w", status, err)
	}
	return m.loadJobs(ctx, ids)
}

func (m *Manager) loadJobs(ctx context.Context, ids []string) ([]*domain.Job, error) {
	sort.Strings(ids)

	jobs := make([]*domain.Job, 0, len(ids))
	for _, id := range ids {
		job, err := m.storage.Load(ctx, id)
		if err != nil {
			// Expired between List and Load
			if errors.Is(err, domain.ErrJobNotFound) {
				continue
			}
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Reflect summarises a job
func (m *Manager) Reflect(job *domain.Job) domain.Summary {
	return Reflect(job)
}

// IsRunning reports whether a run of jobID is in progress
func (m *Manager) IsRunning(jobID string) bool {
	_, ok := m.runs.Load(jobID)
	return ok
}

// Shutdown cancels all active runs. Each interrupted job is stored as
// failed with its unfinished tasks left pending.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down orchestrator manager")

	m.runs.Range(func(key, value any) bool {
		cancel := value.(context.CancelFunc)
		cancel()
		return true
	})

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for m.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	m.logger.Info("orchestrator manager shut down complete")
	return nil
}

func (m *Manager) publish(ctx context.Context, eventType domain.EventType, jobID string, data map[string]any) {
	if m.eventBus == nil {
		return
	}

	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		JobID:     jobID,
		Timestamp: time.Now(),
		Data:      data,
	}

	if err := m.eventBus.Publish(ctx, domain.TopicJobEvents, event); err != nil {
		m.logger.Error("failed to publish job event",
			zap.String("job_id", jobID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

// planFlows reads the flow names recorded by the planner.
func planFlows(job *domain.Job) []string {
	switch flows := job.Metadata["flows"].(type) {
	case []string:
		return flows
	case []any:
		out := make([]string, 0, len(flows))
		for _, f := range flows {
			if s, ok := f.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
