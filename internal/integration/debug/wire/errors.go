package wire

import (
	"errors"
	"fmt"
)

// Errors returned by framing and envelope operations.
var (
	// ErrInvalidHeader is returned for a header line that cannot be parsed.
	ErrInvalidHeader = errors.New("invalid header")

	// ErrMessageTooLarge is returned when Content-Length exceeds the limit.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMissingContentLength is returned when a header block has no Content-Length.
	ErrMissingContentLength = errors.New("missing Content-Length header")

	// ErrMalformedMessage is returned when message content is not a JSON object.
	ErrMalformedMessage = errors.New("malformed message")
)

// RequestError reports a response whose success flag was false.
type RequestError struct {
	// Command is the command of the failed request.
	Command string

	// Message is the adapter's short error message or error format string.
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s request failed", e.Command)
	}
	return fmt.Sprintf("%s request failed: %s", e.Command, e.Message)
}
