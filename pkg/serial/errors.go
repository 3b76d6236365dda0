package serial

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen indicates the port is not open.
	ErrNotOpen = errors.New("port not open")
	// ErrDeviceUnavailable indicates the device can't be opened or configured.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrReadFailed indicates the underlying read failed.
	ErrReadFailed = errors.New("read failed")
	// ErrWriteRejected indicates the write is refused because the
	// output queue still holds data from a previous write.
	ErrWriteRejected = errors.New("write rejected")
	// ErrUnknownDriver indicates the driver name is not registered.
	ErrUnknownDriver = errors.New("unknown driver")
)

// DeviceError wraps errors from opening or configuring a device.
type DeviceError struct {
	Port string
	Err  error
}

// Error implements error.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Port, ErrDeviceUnavailable, e.Err)
}

// Unwrap returns the cause.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is matches ErrDeviceUnavailable.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDeviceUnavailable
}

// ReadError wraps errors from the underlying read.
type ReadError struct {
	Err error
}

// Error implements error.
func (e *ReadError) Error() string {
	return fmt.Sprintf("%v: %v", ErrReadFailed, e.Err)
}

// Unwrap returns the cause.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// Is matches ErrReadFailed.
func (e *ReadError) Is(target error) bool {
	return target == ErrReadFailed
}
