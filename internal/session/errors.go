package session

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerating is returned by Start while another generation is in flight.
	ErrGenerating = errors.New("session: generation already in progress")

	// ErrReset is returned by Start when the generation was abandoned by
	// Reset before it finished.
	ErrReset = errors.New("session: generation reset")
)

// ValidationError reports a missing or not-yet-analysed request descriptor.
// It is raised before any stream is opened; the user can correct the input
// and retry.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// TransportError reports that the generation stream could not be opened or
// failed while being read. The session that hit it is discarded.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
