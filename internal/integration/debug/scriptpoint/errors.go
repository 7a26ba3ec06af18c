package scriptpoint

import "errors"

var (
	// ErrNotScriptpoint is returned by ParseTag for a log message without the "!" marker.
	ErrNotScriptpoint = errors.New("not a scriptpoint")

	// ErrMalformedTag is returned by ParseTag for a marker with no script text.
	ErrMalformedTag = errors.New("malformed scriptpoint tag")

	// ErrNoSourcePath is returned by Rewrite for a source identified only by reference.
	ErrNoSourcePath = errors.New("source has no path")
)
