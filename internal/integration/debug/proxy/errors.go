package proxy

import "errors"

// ErrSessionClosed is returned for round trips on a closed session.
var ErrSessionClosed = errors.New("proxy: session closed")
