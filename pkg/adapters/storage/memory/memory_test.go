package memory

import (
	"context"
	"testing"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStore_RoundTrip(t *testing.T) {
	s := NewJobStore()
	ctx := context.Background()

	job := &domain.Job{
		ID:    "job-1",
		Tasks: []*domain.Task{{ID: "t1", Action: "a", Status: domain.TaskStatusPending}},
		State: domain.JobState{Status: domain.JobStatusPending},
	}
	require.NoError(t, s.Save(ctx, job))

	// Later mutations of the caller's value are not visible in the store.
	job.State.Status = domain.JobStatusFailed

	got, err := s.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.State.Status)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, ids)

	pending, err := s.ListByStatus(ctx, domain.JobStatusPending)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, pending)

	failed, err := s.ListByStatus(ctx, domain.JobStatusFailed)
	require.NoError(t, err)
	assert.Empty(t, failed)

	require.NoError(t, s.Delete(ctx, "job-1"))
	_, err = s.Load(ctx, "job-1")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	exists, err := s.Exists(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, exists)
}
