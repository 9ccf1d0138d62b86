package orchestrator

import "github.com/aescanero/classflow/pkg/domain"

// Reflect summarises a job without modifying it. Blocked lists pending
// tasks that can never run because a direct or transitive dependency failed.
func Reflect(job *domain.Job) domain.Summary {
	summary := domain.Summary{
		Succeeded: []string{},
		Failed:    []string{},
		Blocked:   []string{},
	}
	if job == nil {
		return summary
	}

	summary.Status = job.State.Status
	if job.State.Status == domain.JobStatusPaused {
		summary.PausedAfter = job.State.WaitFor
	}

	index := job.TaskIndex()
	memo := make(map[string]bool, len(index))

	var blocked func(id string, seen map[string]bool) bool
	blocked = func(id string, seen map[string]bool) bool {
		if v, ok := memo[id]; ok {
			return v
		}
		task, ok := index[id]
		if !ok || seen[id] {
			return false
		}
		if task.Status == domain.TaskStatusFailed {
			return true
		}
		if task.Status == domain.TaskStatusSucceeded {
			return false
		}

		seen[id] = true
		result := false
		for _, dep := range task.DependsOn {
			if blocked(dep, seen) {
				result = true
				break
			}
		}
		delete(seen, id)
		memo[id] = result
		return result
	}

	for _, t := range job.Tasks {
		switch t.Status {
		case domain.TaskStatusSucceeded:
			summary.Succeeded = append(summary.Succeeded, t.ID)
		case domain.TaskStatusFailed:
			summary.Failed = append(summary.Failed, t.ID)
		default:
			if blocked(t.ID, map[string]bool{}) {
				summary.Blocked = append(summary.Blocked, t.ID)
			}
		}
	}

	return summary
}
