// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Job planning, listing and inspection
//   - Synchronous runs and queued resumes
//   - Registered actions
//   - Health checks
//   - Prometheus metrics
package http
