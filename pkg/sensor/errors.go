package sensor

import (
	"errors"
	"fmt"

	"github.com/robotalks/ftsense/pkg/serial"
)

var (
	// ErrNotOpen indicates the transport is not open.
	ErrNotOpen = serial.ErrNotOpen
	// ErrUnknownCommand indicates the command is outside the command set
	// or not supported by the sensor family.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrShortRead indicates nothing was received for a request.
	ErrShortRead = errors.New("no response")
	// ErrMalformedFrame indicates the response has a wrong length,
	// terminator or content.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrMalformedCalibration indicates an invalid calibration response.
	ErrMalformedCalibration = errors.New("malformed calibration")
	// ErrInvalidLsb indicates a calibration coefficient can't be used
	// as divisor.
	ErrInvalidLsb = errors.New("invalid calibration coefficient")
	// ErrRetriesExhausted indicates every attempt failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrUnknownModel indicates the sensor model is not registered.
	ErrUnknownModel = errors.New("unknown sensor model")
)

// RetryError is returned when a bounded retry gives up.
// It unwraps to the failure of the last attempt.
type RetryError struct {
	Attempts int
	Last     error
}

// Error implements error.
func (e *RetryError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrRetriesExhausted, e.Attempts, e.Last)
}

// Unwrap returns the last failure.
func (e *RetryError) Unwrap() error {
	return e.Last
}

// Is matches ErrRetriesExhausted.
func (e *RetryError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// FrameError describes why a frame is rejected.
type FrameError struct {
	Kind   error
	Reason string
	Frame  Frame
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("%v: %s: %q", e.Kind, e.Reason, e.Frame.String())
}

// Unwrap returns the error kind.
func (e *FrameError) Unwrap() error {
	return e.Kind
}
