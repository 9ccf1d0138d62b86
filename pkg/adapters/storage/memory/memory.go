package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aescanero/classflow/pkg/domain"
)

// JobStore implements ports.JobStore using an in-memory map. Jobs are
// stored as JSON so callers never share mutable state with the store.
type JobStore struct {
	jobs map[string]storedJob
	mu   sync.RWMutex
}

type storedJob struct {
	data   []byte
	status domain.JobStatus
}

// NewJobStore creates a new in-memory job store
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]storedJob),
	}
}

// Save persists a job
func (s *JobStore) Save(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = storedJob{data: data, status: job.State.Status}
	return nil
}

// Load retrieves a job
func (s *JobStore) Load(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.RLock()
	stored, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}

	var job domain.Job
	if err := json.Unmarshal(stored.data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// Delete removes a job
func (s *JobStore) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, jobID)
	return nil
}

// Exists checks if a job is stored
func (s *JobStore) Exists(ctx context.Context, jobID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.jobs[jobID]
	return ok, nil
}

// List returns all stored job IDs
func (s *JobStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobIDs := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		jobIDs = append(jobIDs, id)
	}

	return jobIDs, nil
}

// ListByStatus returns the IDs of stored jobs with the given status
func (s *JobStore) ListByStatus(ctx context.Context, status domain.JobStatus) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobIDs []string
	for id, stored := range s.jobs {
		if stored.status == status {
			jobIDs = append(jobIDs, id)
		}
	}

	return jobIDs, nil
}

// Close is a no-op
func (s *JobStore) Close() error {
	return nil
}
