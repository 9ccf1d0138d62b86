package orchestrator

import (
	"fmt"

	"github.com/aescanero/classflow/pkg/domain"
)

// Validator validates job structures
type Validator struct{}

// NewValidator creates a new job validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the structure of a job: ids, actions, dependencies and
// checkpoints. It does not look for cycles; a cyclic job simply stalls.
func (v *Validator) Validate(job *domain.Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", domain.ErrInvalidJob)
	}

	if job.ID == "" {
		return fmt.Errorf("%w: job ID is required", domain.ErrInvalidJob)
	}

	if len(job.Tasks) == 0 {
		return fmt.Errorf("%w: job must have at least one task", domain.ErrInvalidJob)
	}

	taskIDs := make(map[string]bool, len(job.Tasks))
	for i, task := range job.Tasks {
		if err := v.validateTask(task); err != nil {
			return fmt.Errorf("%w: invalid task at index %d: %v", domain.ErrInvalidJob, i, err)
		}

		if taskIDs[task.ID] {
			return fmt.Errorf("%w: duplicate task ID: %s", domain.ErrInvalidJob, task.ID)
		}
		taskIDs[task.ID] = true
	}

	for _, task := range job.Tasks {
		for _, dep := range task.DependsOn {
			if !taskIDs[dep] {
				return fmt.Errorf("%w: task %s depends on non-existent task: %s", domain.ErrInvalidJob, task.ID, dep)
			}
		}
	}

	for _, cp := range job.Checkpoints {
		if !taskIDs[cp] {
			return fmt.Errorf("%w: checkpoint references non-existent task: %s", domain.ErrInvalidJob, cp)
		}
	}

	return nil
}

// ValidateGraph runs Validate and rejects dependency cycles.
func (v *Validator) ValidateGraph(job *domain.Job) error {
	if err := v.Validate(job); err != nil {
		return err
	}
	return DetectCycle(job)
}

// validateTask validates a single task
func (v *Validator) validateTask(task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("task is nil")
	}

	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}

	if task.Action == "" {
		return fmt.Errorf("task %s: action is required", task.ID)
	}

	switch task.Status {
	case domain.TaskStatusPending, domain.TaskStatusSucceeded, domain.TaskStatusFailed:
	default:
		return fmt.Errorf("task %s: unknown status %q", task.ID, task.Status)
	}

	return nil
}

const (
	white = iota // unvisited
	gray         // on the current path
	black        // done
)

// DetectCycle returns an error wrapping domain.ErrCycleDetected if the
// dependency graph of job contains a cycle.
func DetectCycle(job *domain.Job) error {
	index := job.TaskIndex()
	color := make(map[string]int, len(index))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		color[id] = gray
		path = append(path, id)

		task, ok := index[id]
		if ok {
			for _, dep := range task.DependsOn {
				switch color[dep] {
				case gray:
					return fmt.Errorf("%w: %v -> %s", domain.ErrCycleDetected, path, dep)
				case white:
					if err := visit(dep, path); err != nil {
						return err
					}
				}
			}
		}

		color[id] = black
		return nil
	}

	for _, task := range job.Tasks {
		if color[task.ID] == white {
			if err := visit(task.ID, nil); err != nil {
				return err
			}
		}
	}

	return nil
}
