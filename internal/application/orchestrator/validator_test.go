package orchestrator

import (
	"testing"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		job     *domain.Job
		wantErr string
	}{
		{
			name: "valid",
			job:  newJob([]string{"t1"}, task("t1", "a", nil), task("t2", "b", nil, "t1")),
		},
		{
			name:    "nil job",
			job:     nil,
			wantErr: "job is nil",
		},
		{
			name:    "missing id",
			job:     &domain.Job{Tasks: []*domain.Task{task("t1", "a", nil)}},
			wantErr: "job ID is required",
		},
		{
			name:    "no tasks",
			job:     newJob(nil),
			wantErr: "at least one task",
		},
		{
			name:    "duplicate task",
			job:     newJob(nil, task("t1", "a", nil), task("t1", "b", nil)),
			wantErr: "duplicate task ID: t1",
		},
		{
			name:    "missing action",
			job:     newJob(nil, task("t1", "", nil)),
			wantErr: "action is required",
		},
		{
			name:    "unknown dependency",
			job:     newJob(nil, task("t1", "a", nil, "t0")),
			wantErr: "non-existent task: t0",
		},
		{
			name:    "unknown checkpoint",
			job:     newJob([]string{"t9"}, task("t1", "a", nil)),
			wantErr: "checkpoint references non-existent task: t9",
		},
		{
			name: "unknown status",
			job: newJob(nil, &domain.Task{
				ID: "t1", Action: "a", Status: "running",
			}),
			wantErr: "unknown status",
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.job)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidJob)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDetectCycle(t *testing.T) {
	acyclic := newJob(nil,
		task("t1", "a", nil),
		task("t2", "a", nil, "t1"),
		task("t3", "a", nil, "t1", "t2"),
	)
	assert.NoError(t, DetectCycle(acyclic))

	cyclic := newJob(nil,
		task("t1", "a", nil, "t3"),
		task("t2", "a", nil, "t1"),
		task("t3", "a", nil, "t2"),
	)
	assert.ErrorIs(t, DetectCycle(cyclic), domain.ErrCycleDetected)

	self := newJob(nil, task("t1", "a", nil, "t1"))
	assert.ErrorIs(t, DetectCycle(self), domain.ErrCycleDetected)
}

func TestValidator_ValidateGraph(t *testing.T) {
	v := NewValidator()
	cyclic := newJob(nil, task("t1", "a", nil, "t2"), task("t2", "a", nil, "t1"))

	assert.NoError(t, v.Validate(cyclic))
	assert.ErrorIs(t, v.ValidateGraph(cyclic), domain.ErrCycleDetected)
}
