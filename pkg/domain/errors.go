package domain

import "errors"

// Sentinel errors shared across packages.
var (
	// Job errors
	ErrJobNotFound = errors.New("job not found")
	ErrInvalidJob  = errors.New("invalid job")
	ErrJobRunning  = errors.New("job is already running")

	// Task errors
	ErrActionNotRegistered = errors.New("no action registered")
	ErrValidationFailed    = errors.New("validation failed")

	// Graph errors
	ErrCycleDetected = errors.New("cycle detected in task dependencies")
)
