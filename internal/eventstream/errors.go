package eventstream

import (
	"errors"
	"fmt"
)

// dialError reports a failure to establish a stream: the request could not be
// built or sent, or the device answered with something other than an event
// stream.
type dialError struct {
	target string
	status int
	err    error
}

func (e *dialError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("dial %s: unexpected status %d", e.target, e.status)
	}
	return fmt.Sprintf("dial %s: %v", e.target, e.err)
}

func (e *dialError) Unwrap() error { return e.err }

// IsDialError reports whether err came from opening a stream rather than from
// reading an established one.
func IsDialError(err error) bool {
	var de *dialError
	return errors.As(err, &de)
}

// StatusCode returns the HTTP status carried by a dial error, or 0.
func StatusCode(err error) int {
	var de *dialError
	if errors.As(err, &de) {
		return de.status
	}
	return 0
}

var errUnexpectedContentType = errors.New("response is not text/event-stream")
