package command

import "errors"

// Command errors.
var (
	// ErrNoSession indicates no debug session is active.
	ErrNoSession = errors.New("command: no active debug session")

	// ErrInvalidName indicates an empty command name.
	ErrInvalidName = errors.New("command: invalid command name")

	// ErrInvalidArgument indicates a built-in command received an argument
	// of the wrong type.
	ErrInvalidArgument = errors.New("command: invalid argument")

	// ErrPanic indicates a handler panicked.
	ErrPanic = errors.New("command: handler panic")
)
