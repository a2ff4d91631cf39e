package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized signals a 401 from the backend: the bearer token is
	// missing, invalid, or expired. The session middleware turns this into a
	// forced sign-out.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrUnreachable signals a transport-level failure: no backend at all.
	// The router turns this into a redirect to the offline screen.
	ErrUnreachable = errors.New("backend: unreachable")
	// ErrNotFound signals a 404 for a specific resource.
	ErrNotFound = errors.New("backend: not found")
	// ErrInvalidLogin signals rejected operator credentials.
	ErrInvalidLogin = errors.New("backend: invalid login")
)

// StatusError carries a non-2xx status that is not covered by a sentinel.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: unexpected status %d", e.Code)
}

// IsTerminal reports whether err is a data-level failure that should be
// recovered locally (empty table plus notification) rather than escalated to
// a sign-out or offline redirect.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrUnreachable) {
		return false
	}
	return true
}
