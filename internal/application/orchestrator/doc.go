// Package orchestrator implements the task-graph engine.
//
// The engine is built from small pieces:
//   - Registry maps action names to executors, validators and a retryable flag
//   - ResolveInput substitutes ${task.attribute} placeholders with earlier results
//   - LinearRetryPolicy bounds attempts and computes backoff
//   - TaskExecutor runs one action with validation and retries
//   - Scheduler drives a job until it pauses at a checkpoint, stalls or finishes
//
// Manager ties the engine to a planner, a job store and the event bus.
package orchestrator
