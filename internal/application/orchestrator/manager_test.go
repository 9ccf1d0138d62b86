package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	eventsmemory "github.com/aescanero/classflow/pkg/adapters/events/memory"
	storagememory "github.com/aescanero/classflow/pkg/adapters/storage/memory"
	"github.com/aescanero/classflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlanner struct {
	job *domain.Job
	err error
}

func (p stubPlanner) Plan(string, map[string]any) (*domain.Job, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.job.Clone(), nil
}

func newTestManager(t *testing.T, reg *Registry, job *domain.Job) (*Manager, *storagememory.JobStore) {
	t.Helper()

	store := storagememory.NewJobStore()
	bus := eventsmemory.NewEventBus(nil)
	t.Cleanup(func() { _ = bus.Close() })

	s, _ := newTestScheduler(reg, 2)
	return NewManager(s, stubPlanner{job: job}, store, bus, nil, nil, nil), store
}

func TestManager_PlanRunResume(t *testing.T) {
	calls := newCallCounter()
	reg := NewRegistry()
	reg.RegisterFunc("gen", calls.wrap("gen", constant("plan")))
	reg.RegisterFunc("render", calls.wrap("render", echo))

	planned := newJob([]string{"t1"},
		task("t1", "gen", nil),
		task("t2", "render", map[string]any{"plan": "${t1.result}"}, "t1"),
	)
	planned.Metadata = map[string]any{"flows": []string{"lesson"}}
	m, store := newTestManager(t, reg, planned)
	ctx := context.Background()

	job, err := m.Plan(ctx, "create a lesson plan", nil)
	require.NoError(t, err)

	exists, err := store.Exists(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	res, err := m.Run(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaused, res.Outcome)

	stored, err := m.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPaused, stored.State.Status)

	res, err = m.Resume(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 1, calls.count("gen"))
	assert.Equal(t, 1, calls.count("render"))

	// A finished job is returned as stored.
	res, err = m.Resume(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 1, calls.count("render"))

	summary := m.Reflect(res.Job)
	assert.Equal(t, []string{"t1", "t2"}, summary.Succeeded)
}

func TestManager_PlanRejectsCycles(t *testing.T) {
	reg := NewRegistry()
	cyclic := newJob(nil, task("t1", "a", nil, "t2"), task("t2", "a", nil, "t1"))
	m, store := newTestManager(t, reg, cyclic)

	_, err := m.Plan(context.Background(), "x", nil)
	assert.ErrorIs(t, err, domain.ErrCycleDetected)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestManager_ResumeUnknownJob(t *testing.T) {
	m, _ := newTestManager(t, NewRegistry(), nil)

	_, err := m.Resume(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestManager_SingleOwner(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	reg := NewRegistry()
	reg.RegisterFunc("slow", func(context.Context, any) (any, error) {
		close(started)
		<-release
		return "done", nil
	})

	job := newJob(nil, task("t1", "slow", nil))
	m, _ := newTestManager(t, reg, job)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = m.Run(context.Background(), job)
	}()

	<-started
	assert.True(t, m.IsRunning(job.ID))

	_, err := m.Run(context.Background(), job)
	assert.ErrorIs(t, err, domain.ErrJobRunning)

	close(release)
	wg.Wait()
	assert.False(t, m.IsRunning(job.ID))
}

func TestManager_ShutdownCancelsRuns(t *testing.T) {
	started := make(chan struct{})
	reg := NewRegistry()
	reg.RegisterFunc("wait", func(ctx context.Context, _ any) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	reg.RegisterFunc("next", constant("next"))

	job := newJob(nil, task("t1", "wait", nil), task("t2", "next", nil))
	m, store := newTestManager(t, reg, job)

	done := make(chan *RunResult, 1)
	go func() {
		res, _ := m.Run(context.Background(), job)
		done <- res
	}()

	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	res := <-done
	require.NotNil(t, res)
	assert.Equal(t, OutcomeInterrupted, res.Outcome)
	assert.Equal(t, map[string]domain.TaskStatus{
		"t1": domain.TaskStatusPending,
		"t2": domain.TaskStatusPending,
	}, statuses(res.Job))

	stored, err := store.Load(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusInterrupted, stored.State.Status)

	reg.RegisterFunc("wait", constant("waited"))
	resumed, err := m.Resume(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, resumed.Outcome)
	assert.Equal(t, map[string]domain.TaskStatus{
		"t1": domain.TaskStatusSucceeded,
		"t2": domain.TaskStatusSucceeded,
	}, statuses(resumed.Job))
}

func TestManager_ListJobs(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFunc("a", constant("a"))
	m, store := newTestManager(t, reg, nil)
	ctx := context.Background()

	for _, id := range []string{"b", "a"} {
		j := newJob(nil, task("t1", "a", nil))
		j.ID = id
		require.NoError(t, store.Save(ctx, j))
	}

	jobs, err := m.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].ID)
	assert.Equal(t, "b", jobs[1].ID)
}

func TestManager_ListJobsByStatus(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFunc("a", constant("a"))
	m, store := newTestManager(t, reg, nil)
	ctx := context.Background()

	for id, status := range map[string]domain.JobStatus{
		"c": domain.JobStatusPaused,
		"a": domain.JobStatusPaused,
		"b": domain.JobStatusSucceeded,
	} {
		j := newJob(nil, task("t1", "a", nil))
		j.ID = id
		j.State.Status = status
		require.NoError(t, store.Save(ctx, j))
	}

	paused, err := m.ListJobsByStatus(ctx, domain.JobStatusPaused)
	require.NoError(t, err)
	require.Len(t, paused, 2)
	assert.Equal(t, "a", paused[0].ID)
	assert.Equal(t, "c", paused[1].ID)

	failed, err := m.ListJobsByStatus(ctx, domain.JobStatusFailed)
	require.NoError(t, err)
	assert.Empty(t, failed)

	all, err := m.ListJobsByStatus(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestManager_PlannerErrorIsInvalidJob(t *testing.T) {
	store := storagememory.NewJobStore()
	s, _ := newTestScheduler(NewRegistry(), 2)
	m := NewManager(s, stubPlanner{err: errBoom}, store, nil, nil, nil, nil)

	_, err := m.Plan(context.Background(), "x", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidJob)
	assert.ErrorIs(t, err, errBoom)
}
