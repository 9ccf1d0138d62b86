package domain

import "time"

// EventType identifies the kind of event published on the event bus
type EventType string

const (
	EventTypeJobPlanned      EventType = "job.planned"
	EventTypeJobStarted      EventType = "job.started"
	EventTypeJobPaused       EventType = "job.paused"
	EventTypeJobSucceeded    EventType = "job.succeeded"
	EventTypeJobFailed       EventType = "job.failed"
	EventTypeJobInterrupted  EventType = "job.interrupted"
	EventTypeJobRunRequested EventType = "job.run_requested"

	EventTypeTaskSucceeded EventType = "task.succeeded"
	EventTypeTaskFailed    EventType = "task.failed"
	EventTypeTaskRetrying  EventType = "task.retrying"

	// Integration requests consumed by external provider workers.
	EventTypeCalendarEventsRequested EventType = "calendar.events.requested"
	EventTypeFormCreateRequested     EventType = "form.create.requested"
	EventTypeEmailSendRequested      EventType = "email.send.requested"
)

// Topics used on the event bus.
const (
	TopicJobEvents   = "job.events"
	TopicJobCommands = "job.commands"

	TopicCalendar = "integrations.calendar"
	TopicForms    = "integrations.forms"
	TopicEmail    = "integrations.email"
)

// Event is a lifecycle notification or integration request.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	JobID     string         `json:"job_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
