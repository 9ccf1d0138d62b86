package domain

import (
	"slices"
	"time"
)

// JobStatus represents the derived status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"

	// JobStatusInterrupted marks a run stopped by cancellation. Its
	// pending tasks run again on resume.
	JobStatusInterrupted JobStatus = "interrupted"
)

// TaskStatus represents the status of a single task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether the task will not be scheduled again.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// LogLevel is the severity of a job log entry
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Job is one planned and possibly partially executed workflow.
type Job struct {
	ID          string         `json:"job_id"`
	Request     string         `json:"request"`
	Tasks       []*Task        `json:"tasks"`
	Checkpoints []string       `json:"checkpoints"`
	State       JobState       `json:"state"`
	Logs        []LogEntry     `json:"logs"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// JobState is the scheduler-owned status of a job. WaitFor is only set
// while the job is paused and names the checkpoint task that just succeeded.
type JobState struct {
	Status  JobStatus `json:"status"`
	WaitFor string    `json:"wait_for,omitempty"`
}

// Task is one node of a job's dependency graph.
type Task struct {
	ID        string     `json:"id"`
	Action    string     `json:"action"`
	Input     any        `json:"input,omitempty"`
	DependsOn []string   `json:"depends_on,omitempty"`
	Status    TaskStatus `json:"status"`
	Attempts  int        `json:"attempts,omitempty"`
	Result    any        `json:"result,omitempty"`
	Error     *TaskError `json:"error,omitempty"`
}

// TaskError is the human-readable failure recorded on a failed task.
type TaskError struct {
	Message string `json:"message"`
}

// LogEntry is one line of a job's audit trail.
type LogEntry struct {
	Timestamp time.Time `json:"ts"`
	Level     LogLevel  `json:"level"`
	TaskID    string    `json:"task_id,omitempty"`
	Message   string    `json:"message"`
}

// Summary is a read-only digest of a job.
type Summary struct {
	Status      JobStatus `json:"status"`
	Succeeded   []string  `json:"succeeded"`
	Failed      []string  `json:"failed"`
	Blocked     []string  `json:"blocked"`
	PausedAfter string    `json:"paused_after,omitempty"`
}

// Task returns the task with the given id.
func (j *Job) Task(id string) (*Task, bool) {
	for _, t := range j.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// TaskIndex maps task ids to tasks.
func (j *Job) TaskIndex() map[string]*Task {
	index := make(map[string]*Task, len(j.Tasks))
	for _, t := range j.Tasks {
		index[t.ID] = t
	}
	return index
}

// IsCheckpoint reports whether the scheduler must pause after taskID succeeds.
func (j *Job) IsCheckpoint(taskID string) bool {
	return slices.Contains(j.Checkpoints, taskID)
}

// AppendLog adds an entry to the audit trail.
func (j *Job) AppendLog(ts time.Time, level LogLevel, taskID, message string) {
	j.Logs = append(j.Logs, LogEntry{
		Timestamp: ts,
		Level:     level,
		TaskID:    taskID,
		Message:   message,
	})
}

// Clone returns a deep copy of the job. Inputs, results and metadata are
// copied structurally so that mutating the copy never affects the original.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}

	out := &Job{
		ID:          j.ID,
		Request:     j.Request,
		Checkpoints: slices.Clone(j.Checkpoints),
		State:       j.State,
		Logs:        slices.Clone(j.Logs),
	}
	if j.Metadata != nil {
		out.Metadata = CloneValue(j.Metadata).(map[string]any)
	}

	out.Tasks = make([]*Task, len(j.Tasks))
	for i, t := range j.Tasks {
		out.Tasks[i] = t.Clone()
	}

	return out
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	out := *t
	out.Input = CloneValue(t.Input)
	out.Result = CloneValue(t.Result)
	out.DependsOn = slices.Clone(t.DependsOn)
	if t.Error != nil {
		e := *t.Error
		out.Error = &e
	}
	return &out
}

// CloneValue deep-copies a JSON-compatible value. Maps and slices are
// copied recursively; every other value is returned as is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	case []string:
		return slices.Clone(val)
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item).(map[string]any)
		}
		return out
	default:
		return v
	}
}
