package script

import "errors"

// Errors reported through a failed execution's output line.
var (
	// ErrEmptyScript is returned for a script with no code.
	ErrEmptyScript = errors.New("script is empty")

	// ErrExecutionTimeout is returned when a script exceeds the configured timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")
)
