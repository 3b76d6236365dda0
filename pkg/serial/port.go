// Package serial provides the byte-level transport to a serial device.
package serial

import (
	"fmt"

	"github.com/golang/glog"
)

// State is the state of a Port.
type State int

// Port states.
const (
	StateClosed State = iota
	StateOpen
	StateError
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Port owns one serial device.
//
// Read never waits for bytes which are not received yet, and Write is
// refused while a previous write is still being sent. This matches a
// half-duplex, polled link where the caller paces request and response.
// A Port is not safe for concurrent use.
type Port struct {
	config Config
	device Device
	state  State
}

// NewPort creates a closed Port. The config is applied on every Open.
func NewPort(cfg Config) *Port {
	return &Port{config: cfg}
}

// Config returns the settings of the port.
func (p *Port) Config() Config {
	return p.config
}

// State returns the current state.
func (p *Port) State() State {
	return p.state
}

// IsOpen indicates the port is open.
func (p *Port) IsOpen() bool {
	return p.state == StateOpen
}

// Open opens the device and applies the settings.
// It returns immediately if the port is already open.
func (p *Port) Open() error {
	if p.state == StateOpen {
		return nil
	}
	p.release()
	if err := p.config.Validate(); err != nil {
		return p.fail(err)
	}
	driver, ok := lookupDriver(p.config.Driver)
	if !ok {
		return p.fail(fmt.Errorf("%w %q", ErrUnknownDriver, p.config.Driver))
	}
	dev, err := driver(p.config)
	if err != nil {
		return p.fail(err)
	}
	p.device, p.state = dev, StateOpen
	glog.V(2).Infof("serial %s opened", p.config)
	return nil
}

// Close releases the device. It's safe to call at any time.
func (p *Port) Close() error {
	err := p.release()
	p.state = StateClosed
	return err
}

// Read reads at most len(b) bytes which are already received.
// It returns 0 with nil error when nothing is available.
func (p *Port) Read(b []byte) (int, error) {
	if p.state != StateOpen {
		return 0, ErrNotOpen
	}
	if len(b) == 0 {
		return 0, nil
	}
	queued, err := p.device.InputWaiting()
	if err != nil {
		return 0, &ReadError{Err: err}
	}
	if queued == 0 {
		return 0, nil
	}
	if queued > 0 && queued < len(b) {
		b = b[:queued]
	}
	n, err := p.device.Read(b)
	if err != nil {
		return 0, &ReadError{Err: err}
	}
	return n, nil
}

// Write writes b if the output queue is empty, otherwise it returns
// ErrWriteRejected without sending anything.
func (p *Port) Write(b []byte) (int, error) {
	if p.state != StateOpen {
		return 0, ErrNotOpen
	}
	pending, err := p.device.OutputWaiting()
	if err != nil {
		return 0, fmt.Errorf("output queue: %w", err)
	}
	if pending > 0 {
		return 0, ErrWriteRejected
	}
	n, err := p.device.Write(b)
	if err != nil {
		return n, fmt.Errorf("write: %w", err)
	}
	return n, nil
}

// Flush discards unread input and unsent output.
func (p *Port) Flush() error {
	if p.state != StateOpen {
		return ErrNotOpen
	}
	return p.device.Flush()
}

func (p *Port) release() (err error) {
	if p.device != nil {
		err = p.device.Close()
		p.device = nil
		glog.V(2).Infof("serial %s closed", p.config.PortName)
	}
	return
}

func (p *Port) fail(err error) error {
	p.state = StateError
	glog.V(2).Infof("serial %s open failed: %v", p.config.PortName, err)
	return &DeviceError{Port: p.config.PortName, Err: err}
}
