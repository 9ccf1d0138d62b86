// Package storage provides job store implementations.
//
// Implementations:
//   - sqlite: single-file store used by the CLI by default
//   - redis: Redis with JSON serialization and TTL
//   - memory: In-memory for testing
package storage
