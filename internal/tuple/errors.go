package tuple

import "fmt"

// IllegalStateError reports a broken internal contract of the network:
// retracting an unknown tuple, updating before inserting, a stale handle.
// It is raised with panic and never recovered by the network.
type IllegalStateError struct {
	Message string
}

func (e *IllegalStateError) Error() string {
	return "impossible state: " + e.Message
}

// IllegalState builds an IllegalStateError from a format string.
func IllegalState(format string, args ...any) *IllegalStateError {
	return &IllegalStateError{Message: fmt.Sprintf(format, args...)}
}
