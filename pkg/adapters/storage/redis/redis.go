package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "classflow:job:"
	scanBatch = 100
)

// JobStore implements ports.JobStore using Redis. Each job is one JSON
// value whose TTL is refreshed on every save.
type JobStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewJobStore creates a new Redis job store. A zero ttl keeps jobs forever.
func NewJobStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *JobStore {
	return &JobStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Save persists a job
func (s *JobStore) Save(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := s.client.Set(ctx, jobKey(job.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	s.logger.Debug("job saved",
		zap.String("job_id", job.ID),
		zap.String("status", string(job.State.Status)))

	return nil
}

// Load retrieves a job
func (s *JobStore) Load(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// Delete removes a job
func (s *JobStore) Delete(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, jobKey(jobID)).Err(); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	s.logger.Debug("job deleted", zap.String("job_id", jobID))
	return nil
}

// Exists checks if a job is stored
func (s *JobStore) Exists(ctx context.Context, jobID string) (bool, error) {
	result, err := s.client.Exists(ctx, jobKey(jobID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}

	return result > 0, nil
}

// List returns all stored job IDs
func (s *JobStore) List(ctx context.Context) ([]string, error) {
	var cursor uint64
	var jobIDs []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, keyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		for _, key := range batch {
			if id := strings.TrimPrefix(key, keyPrefix); id != "" && id != key {
				jobIDs = append(jobIDs, id)
			}
		}

		if cursor == 0 {
			break
		}
	}

	return jobIDs, nil
}

// ListByStatus returns the IDs of stored jobs with the given status. Jobs
// are read in MGET batches of scanBatch keys and only their state is
// decoded.
func (s *JobStore) ListByStatus(ctx context.Context, status domain.JobStatus) ([]string, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var matched []string
	for start := 0; start < len(ids); start += scanBatch {
		batch := ids[start:min(start+scanBatch, len(ids))]
		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = jobKey(id)
		}

		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read jobs: %w", err)
		}

		for i, v := range values {
			// Expired between SCAN and MGET
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var head struct {
				State domain.JobState `json:"state"`
			}
			if err := json.Unmarshal([]byte(raw), &head); err != nil {
				s.logger.Warn("skipping unreadable job", zap.String("job_id", batch[i]), zap.Error(err))
				continue
			}
			if head.State.Status == status {
				matched = append(matched, batch[i])
			}
		}
	}

	return matched, nil
}

// Close is a no-op; the Redis client is owned by the caller
func (s *JobStore) Close() error {
	return nil
}

// jobKey returns the Redis key for a job
func jobKey(jobID string) string {
	return keyPrefix + jobID
}
