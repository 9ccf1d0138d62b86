package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/aescanero/classflow/pkg/ports"
	"go.uber.org/zap"
)

// TaskExecutor invokes a single action with output validation and retries.
type TaskExecutor struct {
	registry *Registry
	policy   RetryPolicy
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// onRetry is notified before each backoff wait.
	onRetry func(ctx context.Context, action string, attempt int, delay time.Duration, err error)
}

// NewTaskExecutor creates a new task executor
func NewTaskExecutor(registry *Registry, policy RetryPolicy, metrics ports.MetricsCollector, logger *zap.Logger) *TaskExecutor {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TaskExecutor{
		registry: registry,
		policy:   policy,
		metrics:  metrics,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Execute runs action against input and returns its validated output, the
// number of attempts made and the last error. An unregistered action fails
// without any attempt.
func (e *TaskExecutor) Execute(ctx context.Context, action string, input any) (any, int, error) {
	entry, ok := e.registry.Lookup(action)
	if !ok {
		return nil, 0, fmt.Errorf("%w for action '%s'", domain.ErrActionNotRegistered, action)
	}

	for attempt := 1; ; attempt++ {
		out, err := e.attempt(ctx, entry, input)
		if err == nil {
			return out, attempt, nil
		}

		e.logger.Warn("action attempt failed",
			zap.String("action", action),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if !e.policy.ShouldRetry(action, attempt, err) {
			return nil, attempt, err
		}

		delay := e.policy.Backoff(attempt)
		e.metrics.RecordTaskRetry(action)
		if e.onRetry != nil {
			e.onRetry(ctx, action, attempt, delay, err)
		}

		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			return nil, attempt, fmt.Errorf("%w (retry aborted: %v)", err, sleepErr)
		}
	}
}

// attempt performs one invocation. A panicking action is reported as an
// error so a single bad executor cannot take the run down.
func (e *TaskExecutor) attempt(ctx context.Context, entry Entry, input any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("action '%s' panicked: %v", entry.Name, r)
		}
	}()

	out, err = entry.Action.Execute(ctx, domain.CloneValue(input))
	if err != nil {
		return nil, err
	}

	if entry.Validator != nil && !entry.Validator(out) {
		return nil, fmt.Errorf("%w for %s", domain.ErrValidationFailed, entry.Name)
	}

	return out, nil
}
