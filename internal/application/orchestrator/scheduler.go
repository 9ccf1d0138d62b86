package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/aescanero/classflow/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is how a single run ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomePaused    Outcome = "paused"
	OutcomeFailed    Outcome = "failed"

	// OutcomeInterrupted means the context ended the run; the job can be
	// resumed.
	OutcomeInterrupted Outcome = "interrupted"
)

// RunResult is the value returned by one scheduler run. Job is a new value;
// the job passed to Run is never modified.
type RunResult struct {
	Job     *domain.Job
	Outcome Outcome
	WaitFor string
}

// Scheduler drives a job's task graph until it pauses at a checkpoint,
// stalls, or every task is terminal. Tasks run one at a time in insertion
// order.
type Scheduler struct {
	executor  *TaskExecutor
	validator *Validator
	eventBus  ports.EventBus
	metrics   ports.MetricsCollector
	logger    *zap.Logger

	now func() time.Time
}

// NewScheduler creates a new graph scheduler. eventBus may be nil.
func NewScheduler(
	executor *TaskExecutor,
	validator *Validator,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Scheduler {
	if validator == nil {
		validator = NewValidator()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		executor:  executor,
		validator: validator,
		eventBus:  eventBus,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
	executor.onRetry = s.publishRetry
	return s
}

// runState carries the job being mutated through one run.
type runState struct {
	job       *domain.Job
	index     map[string]*domain.Task
	completed Results
}

// Run executes job until it pauses, succeeds or fails. Task failures are
// recorded on the returned job; the error is only set for a structurally
// invalid job.
func (s *Scheduler) Run(ctx context.Context, job *domain.Job) (*RunResult, error) {
	if err := s.validator.Validate(job); err != nil {
		return nil, err
	}

	started := s.now()
	rs := &runState{
		job:       job.Clone(),
		completed: make(Results),
	}
	rs.index = rs.job.TaskIndex()
	rs.job.State = domain.JobState{Status: domain.JobStatusRunning}

	// Results of a previous run stay available to placeholders.
	for _, t := range rs.job.Tasks {
		if t.Status == domain.TaskStatusSucceeded {
			rs.completed.Record(t.ID, t.Result)
		}
	}

	s.logger.Info("job run started",
		zap.String("job_id", rs.job.ID),
		zap.Int("completed", len(rs.completed)))
	s.publish(ctx, domain.EventTypeJobStarted, rs.job.ID, "", nil)

	result := s.schedule(ctx, rs)

	s.metrics.RecordJobRun(string(result.Outcome), s.now().Sub(started))
	s.logger.Info("job run finished",
		zap.String("job_id", rs.job.ID),
		zap.String("outcome", string(result.Outcome)),
		zap.String("wait_for", result.WaitFor))

	return result, nil
}

func (s *Scheduler) schedule(ctx context.Context, rs *runState) *RunResult {
	job := rs.job

	remaining := make([]*domain.Task, 0, len(job.Tasks))
	for _, t := range job.Tasks {
		if !t.Status.IsTerminal() {
			remaining = append(remaining, t)
		}
	}

	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0:0]

		for i, task := range remaining {
			if !s.ready(rs, task) {
				next = append(next, task)
				continue
			}

			if err := ctx.Err(); err != nil {
				return s.interrupt(ctx, job, task, err)
			}

			progressed = true
			if err := s.runTask(ctx, rs, task); err != nil {
				return s.interrupt(ctx, job, task, err)
			}

			if task.Status == domain.TaskStatusSucceeded && job.IsCheckpoint(task.ID) {
				job.State = domain.JobState{Status: domain.JobStatusPaused, WaitFor: task.ID}
				return s.finish(ctx, job, OutcomePaused, task.ID, map[string]any{
					"wait_for": task.ID,
					"pending":  len(remaining) - i - 1 + len(next),
				})
			}
		}

		if !progressed {
			ids := make([]string, len(next))
			for i, t := range next {
				ids[i] = t.ID
			}
			msg := "execution stalled: blocked tasks " + strings.Join(ids, ", ")
			job.AppendLog(s.now(), domain.LogLevelError, "", msg)
			s.logger.Warn("job stalled",
				zap.String("job_id", job.ID),
				zap.Strings("blocked", ids))
			return s.finish(ctx, job, OutcomeFailed, "", map[string]any{"error": msg, "blocked": ids})
		}

		remaining = next
	}

	return s.finish(ctx, job, OutcomeSucceeded, "", nil)
}

// ready reports whether every dependency of task has succeeded.
func (s *Scheduler) ready(rs *runState, task *domain.Task) bool {
	for _, dep := range task.DependsOn {
		if rs.index[dep].Status != domain.TaskStatusSucceeded {
			return false
		}
	}
	return true
}

// interrupt ends the run because ctx is done. task stays pending.
func (s *Scheduler) interrupt(ctx context.Context, job *domain.Job, task *domain.Task, cause error) *RunResult {
	msg := fmt.Sprintf("run interrupted at task %s: %v", task.ID, cause)
	job.AppendLog(s.now(), domain.LogLevelWarn, task.ID, msg)
	s.logger.Warn("job run interrupted",
		zap.String("job_id", job.ID),
		zap.String("task_id", task.ID),
		zap.Error(cause))
	return s.finish(ctx, job, OutcomeInterrupted, "", map[string]any{"error": msg, "task_id": task.ID})
}

// runTask executes task and commits its outcome. When ctx ended the
// attempt, nothing is committed and the context error is returned.
func (s *Scheduler) runTask(ctx context.Context, rs *runState, task *domain.Task) error {
	job := rs.job
	var input any = map[string]any{}
	if task.Input != nil {
		input = ResolveInput(task.Input, rs.completed)
	}

	started := s.now()
	out, attempts, err := s.executor.Execute(WithTask(ctx, job.ID, task.ID), task.Action, input)
	duration := s.now().Sub(started)

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	task.Attempts = attempts
	if err != nil {
		task.Status = domain.TaskStatusFailed
		task.Result = nil
		task.Error = &domain.TaskError{Message: err.Error()}
		job.AppendLog(s.now(), domain.LogLevelError, task.ID, err.Error())

		s.metrics.RecordTaskExecuted(task.Action, string(domain.TaskStatusFailed), attempts, duration)
		s.logger.Error("task failed",
			zap.String("job_id", job.ID),
			zap.String("task_id", task.ID),
			zap.String("action", task.Action),
			zap.Int("attempts", attempts),
			zap.Error(err))
		s.publish(ctx, domain.EventTypeTaskFailed, job.ID, task.ID, map[string]any{
			"action":   task.Action,
			"attempts": attempts,
			"error":    err.Error(),
		})
		return nil
	}

	task.Status = domain.TaskStatusSucceeded
	task.Result = out
	task.Error = nil
	rs.completed.Record(task.ID, out)
	job.AppendLog(s.now(), domain.LogLevelInfo, task.ID, "task succeeded")

	s.metrics.RecordTaskExecuted(task.Action, string(domain.TaskStatusSucceeded), attempts, duration)
	s.logger.Info("task succeeded",
		zap.String("job_id", job.ID),
		zap.String("task_id", task.ID),
		zap.String("action", task.Action),
		zap.Int("attempts", attempts),
		zap.Duration("duration", duration))
	s.publish(ctx, domain.EventTypeTaskSucceeded, job.ID, task.ID, map[string]any{
		"action":   task.Action,
		"attempts": attempts,
	})
	return nil
}

func (s *Scheduler) finish(ctx context.Context, job *domain.Job, outcome Outcome, waitFor string, data map[string]any) *RunResult {
	var eventType domain.EventType
	switch outcome {
	case OutcomePaused:
		eventType = domain.EventTypeJobPaused
	case OutcomeSucceeded:
		job.State = domain.JobState{Status: domain.JobStatusSucceeded}
		eventType = domain.EventTypeJobSucceeded
	case OutcomeInterrupted:
		job.State = domain.JobState{Status: domain.JobStatusInterrupted}
		eventType = domain.EventTypeJobInterrupted
	default:
		job.State = domain.JobState{Status: domain.JobStatusFailed}
		eventType = domain.EventTypeJobFailed
	}

	s.publish(context.WithoutCancel(ctx), eventType, job.ID, "", data)

	return &RunResult{
		Job:     job,
		Outcome: outcome,
		WaitFor: waitFor,
	}
}

// publishRetry is called by the executor before each backoff wait.
func (s *Scheduler) publishRetry(ctx context.Context, action string, attempt int, delay time.Duration, err error) {
	jobID, taskID := TaskFromContext(ctx)
	s.publish(ctx, domain.EventTypeTaskRetrying, jobID, taskID, map[string]any{
		"action":   action,
		"attempt":  attempt,
		"delay_ms": delay.Milliseconds(),
		"error":    err.Error(),
	})
}

// publish sends a lifecycle event. Publishing is best effort and never
// changes the outcome of a run.
func (s *Scheduler) publish(ctx context.Context, eventType domain.EventType, jobID, taskID string, data map[string]any) {
	if s.eventBus == nil {
		return
	}

	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		JobID:     jobID,
		TaskID:    taskID,
		Timestamp: s.now(),
		Data:      data,
	}

	if err := s.eventBus.Publish(ctx, domain.TopicJobEvents, event); err != nil {
		s.logger.Warn("failed to publish job event",
			zap.String("job_id", jobID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

type taskContextKey struct{}

type taskRef struct {
	jobID  string
	taskID string
}

// WithTask returns a context carrying the job and task an action runs for.
func WithTask(ctx context.Context, jobID, taskID string) context.Context {
	return context.WithValue(ctx, taskContextKey{}, taskRef{jobID: jobID, taskID: taskID})
}

// TaskFromContext returns the ids stored by WithTask, or empty strings.
func TaskFromContext(ctx context.Context) (jobID, taskID string) {
	ref, _ := ctx.Value(taskContextKey{}).(taskRef)
	return ref.jobID, ref.taskID
}
