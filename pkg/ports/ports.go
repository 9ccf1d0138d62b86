// Package ports declares the interfaces between the application layer and
// its adapters: job storage, the event bus, metrics and the LLM client.
package ports

import (
	"context"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
)

// JobStore persists jobs between runs.
type JobStore interface {
	// Save creates or replaces the stored copy of a job.
	Save(ctx context.Context, job *domain.Job) error

	// Load returns the stored job or an error wrapping domain.ErrJobNotFound.
	Load(ctx context.Context, jobID string) (*domain.Job, error)

	Delete(ctx context.Context, jobID string) error
	Exists(ctx context.Context, jobID string) (bool, error)

	// List returns the ids of all stored jobs.
	List(ctx context.Context) ([]string, error)

	// ListByStatus returns the ids of stored jobs whose state has status.
	ListByStatus(ctx context.Context, status domain.JobStatus) ([]string, error)

	Close() error
}

// EventHandler handles one event delivered by the bus.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes events to topics and delivers them to subscribers.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error

	// Subscribe registers handler for topic until ctx is cancelled.
	Subscribe(ctx context.Context, topic string, handler EventHandler) error

	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// MetricsCollector records orchestration metrics.
type MetricsCollector interface {
	RecordJobPlanned(flows int)
	RecordJobRun(status string, duration time.Duration)
	RecordTaskExecuted(action, status string, attempts int, duration time.Duration)
	RecordTaskRetry(action string)
	RecordWorkerPoolStatus(idle, busy, stopped int)
	SetQueueDepth(queue string, depth int)
	SetActiveRuns(count int)
	RecordLLMCall(model, status string, duration time.Duration, inputTokens, outputTokens int)
}

// LLMClient generates completions.
type LLMClient interface {
	GenerateCompletion(ctx context.Context, req *domain.LLMRequest) (*domain.LLMResponse, error)
}
