// Package workers runs jobs asynchronously.
//
// The worker pool manages a fixed number of goroutines that:
//   - Receive job.run_requested commands from the event bus
//   - Queue them in a bounded channel
//   - Resume the stored job through the orchestrator manager
//
// The health monitor tracks worker status, records pool metrics and
// notifies listeners such as the gRPC health service when health changes.
package workers
