// Package events provides event bus implementations.
//
// Implementations:
//   - redis: Redis Streams with consumer groups
//   - memory: synchronous in-process delivery for the CLI and tests
package events
