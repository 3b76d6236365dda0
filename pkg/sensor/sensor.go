package sensor

import (
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ftsense/pkg/serial"
)

// noCopy makes go vet report copies of the owner.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Sensor is the protocol layer shared by all sensor families.
// It exclusively owns its Transport and must only be used through
// the pointer returned by New. It's not safe for concurrent use.
type Sensor struct {
	noCopy noCopy

	transport Transport
	codec     Codec
	opts      Options

	frame   Frame
	data    Data
	lastErr error
	stats   Stats
}

// New creates a Sensor on a serial port with the given settings.
func New(codec Codec, cfg serial.Config) *Sensor {
	return NewWithTransport(codec, serial.NewPort(cfg))
}

// NewWithTransport creates a Sensor on the given transport.
func NewWithTransport(codec Codec, t Transport) *Sensor {
	return &Sensor{
		transport: t,
		codec:     codec,
		opts:      DefaultOptions(),
	}
}

// SetOptions implements ForceSensor.
func (s *Sensor) SetOptions(opts Options) {
	s.opts = opts
}

// Options returns the current options.
func (s *Sensor) Options() Options {
	return s.opts
}

// Open opens the transport.
func (s *Sensor) Open() error {
	if err := s.transport.Open(); err != nil {
		return s.failed(err)
	}
	return nil
}

// Close closes the transport.
func (s *Sensor) Close() error {
	return s.transport.Close()
}

// IsOpen indicates the transport is open.
func (s *Sensor) IsOpen() bool {
	return s.transport.IsOpen()
}

// Init does nothing. Sensor families override it for one-time setup.
func (s *Sensor) Init() error {
	return nil
}

// SendCmd translates the command and writes it.
func (s *Sensor) SendCmd(cmd Command) error {
	if !cmd.IsValid() {
		return s.failed(fmt.Errorf("%w: %v", ErrUnknownCommand, cmd))
	}
	if !s.transport.IsOpen() {
		return s.failed(ErrNotOpen)
	}
	b := s.codec.ConvertCmd(cmd)
	if len(b) == 0 {
		return s.failed(fmt.Errorf("%w: %v not supported", ErrUnknownCommand, cmd))
	}
	n, err := s.transport.Write(b)
	if err != nil {
		return s.failed(fmt.Errorf("send %v: %w", cmd, err))
	}
	if n != len(b) {
		return s.failed(fmt.Errorf("send %v: %w", cmd, io.ErrShortWrite))
	}
	return nil
}

// UpdateBuffer sends the command and reads the response once.
// On success the response replaces the cached frame and whatever
// the device sends after it is discarded.
func (s *Sensor) UpdateBuffer(cmd Command) error {
	if err := s.SendCmd(cmd); err != nil {
		return err
	}
	if s.opts.ResponseDelay > 0 {
		time.Sleep(s.opts.ResponseDelay)
	}
	var buf [BufferSize]byte
	n, err := s.transport.Read(buf[:BufferSize-1])
	if err != nil {
		return s.failed(fmt.Errorf("receive %v: %w", cmd, err))
	}
	if n <= 0 {
		return s.failed(fmt.Errorf("receive %v: %w", cmd, ErrShortRead))
	}
	s.frame = Frame{buf: buf, n: n}
	if err := s.transport.Flush(); err != nil {
		glog.V(2).Infof("flush after %v: %v", cmd, err)
	}
	return nil
}

// UpdateBufferUntilCorrect acquires one raw frame without validation.
// Sensor families inspect the frame and decide whether to retry.
func (s *Sensor) UpdateBufferUntilCorrect(cmd Command) error {
	return s.UpdateBuffer(cmd)
}

// UpdateDataUntilCorrect requests and parses data until it succeeds,
// at most maxRetries+1 times, with no pause between attempts.
func (s *Sensor) UpdateDataUntilCorrect(maxRetries int) error {
	return Retry(maxRetries, 0, s.updateData)
}

func (s *Sensor) updateData() error {
	s.stats.Attempts++
	if err := s.UpdateBuffer(CmdRequestSendDataOnce); err != nil {
		s.stats.Failures++
		return err
	}
	data, err := s.codec.ParseData(s.frame)
	if err != nil {
		s.stats.Failures++
		return s.failed(err)
	}
	s.data = data
	s.stats.Successes++
	return nil
}

// ReadData acquires data with Options.MaxRetries retries.
// The zero Data is returned on failure.
func (s *Sensor) ReadData() (Data, error) {
	if err := s.UpdateDataUntilCorrect(s.opts.MaxRetries); err != nil {
		return Data{}, err
	}
	return s.data, nil
}

// ReadBuffer acquires one raw frame for the command.
// The empty Frame is returned on failure.
func (s *Sensor) ReadBuffer(cmd Command) (Frame, error) {
	if err := s.UpdateBufferUntilCorrect(cmd); err != nil {
		return Frame{}, err
	}
	return s.frame, nil
}

// GetData returns the last acquired data.
func (s *Sensor) GetData() Data {
	return s.data
}

// GetBuffer returns the last acquired frame.
func (s *Sensor) GetBuffer() Frame {
	return s.frame
}

// LastError returns the most recent failure.
func (s *Sensor) LastError() error {
	return s.lastErr
}

// Stats returns the acquisition counters.
func (s *Sensor) Stats() Stats {
	return s.stats
}

func (s *Sensor) failed(err error) error {
	s.lastErr = err
	return err
}
