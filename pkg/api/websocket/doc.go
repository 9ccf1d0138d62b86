// Package websocket provides real-time event streaming via WebSocket.
//
// Clients connect to /api/v1/jobs/:id/ws to receive the job.* and task.*
// events of one job as JSON text frames while it runs.
package websocket
