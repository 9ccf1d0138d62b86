// Package domain defines the job model shared by the orchestrator, the
// planner, the adapters and the API.
//
// A Job is a planned workflow: an ordered list of Tasks wired together with
// depends_on edges and reference placeholders, a set of checkpoint task ids,
// a derived state and an append-only audit log. Jobs are JSON-serialisable so
// they can be persisted between a checkpoint pause and the following resume.
package domain
