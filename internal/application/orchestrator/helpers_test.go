package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
)

// callCounter counts executor invocations per action.
type callCounter struct {
	mu    sync.Mutex
	calls map[string]int
	order []string
}

func newCallCounter() *callCounter {
	return &callCounter{calls: make(map[string]int)}
}

// actionFunc is the signature Registry.RegisterFunc accepts.
type actionFunc = func(ctx context.Context, input any) (any, error)

func (c *callCounter) wrap(name string, fn actionFunc) actionFunc {
	return func(ctx context.Context, input any) (any, error) {
		c.mu.Lock()
		c.calls[name]++
		c.order = append(c.order, name)
		c.mu.Unlock()
		return fn(ctx, input)
	}
}

func (c *callCounter) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *callCounter) sequence() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

var errBoom = errors.New("boom")

func constant(v any) actionFunc {
	return func(context.Context, any) (any, error) { return v, nil }
}

func echo(_ context.Context, input any) (any, error) {
	return input, nil
}

func failing(context.Context, any) (any, error) {
	return nil, errBoom
}

// newTestScheduler builds a scheduler whose backoff never sleeps.
func newTestScheduler(reg *Registry, maxRetries int, extra ...string) (*Scheduler, *[]time.Duration) {
	policy := NewLinearRetryPolicy(maxRetries, DefaultBackoffBase, reg, extra...)
	exec := NewTaskExecutor(reg, policy, nil, nil)

	var delays []time.Duration
	exec.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}

	return NewScheduler(exec, NewValidator(), nil, nil, nil), &delays
}

func task(id, action string, input any, deps ...string) *domain.Task {
	return &domain.Task{
		ID:        id,
		Action:    action,
		Input:     input,
		DependsOn: deps,
		Status:    domain.TaskStatusPending,
	}
}

func newJob(checkpoints []string, tasks ...*domain.Task) *domain.Job {
	return &domain.Job{
		ID:          "job-1",
		Request:     "test",
		Tasks:       tasks,
		Checkpoints: checkpoints,
		State:       domain.JobState{Status: domain.JobStatusPending},
	}
}
