package availability

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned for requests rejected before any I/O:
	// empty resource set, inverted window, or other malformed input.
	ErrInvalidRequest = errors.New("invalid availability request")

	// ErrInvalidDuration is returned for non-positive slot durations.
	ErrInvalidDuration = errors.New("slot duration must be positive")

	// ErrResourceNotFound is returned when a referenced resource does not
	// exist or is inactive.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrResourceUnauthorized is returned when the caller's org does not
	// own the referenced resource.
	ErrResourceUnauthorized = errors.New("resource not owned by org")

	// ErrLoaderTimeout is returned when a calendar load exceeds its deadline.
	ErrLoaderTimeout = errors.New("calendar load timed out")

	// ErrLoaderUnavailable is returned when the calendar store fails.
	ErrLoaderUnavailable = errors.New("calendar store unavailable")
)

// ResourceError tags an engine error with the offending resource so callers
// can report precisely which provider/room/location failed.
type ResourceError struct {
	Resource ResourceRef
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

func resourceErr(res ResourceRef, err error) error {
	return &ResourceError{Resource: res, Err: err}
}
