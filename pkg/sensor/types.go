package sensor

import (
	"fmt"
	"strings"
	"time"
)

// Sizes of the buffers.
const (
	// DataCount is the number of axes: Fx, Fy, Fz, Tx, Ty, Tz.
	DataCount = 6
	// BufferSize is the capacity of a Frame.
	BufferSize = 60
)

// Command is the sensor-independent command set.
type Command int

// Commands.
const (
	CmdRequestSendDataOnce Command = iota
	CmdUser1
	CmdUser2
	CmdUser3
	cmdMax
)

// IsValid indicates the command is in the command set.
func (c Command) IsValid() bool {
	return c >= CmdRequestSendDataOnce && c < cmdMax
}

// String implements fmt.Stringer.
func (c Command) String() string {
	switch c {
	case CmdRequestSendDataOnce:
		return "request-data-once"
	case CmdUser1:
		return "user1"
	case CmdUser2:
		return "user2"
	case CmdUser3:
		return "user3"
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// ParseCommand parses the name returned by Command.String.
func ParseCommand(name string) (Command, error) {
	for c := CmdRequestSendDataOnce; c < cmdMax; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownCommand, name)
}

// Frame holds one raw device response.
type Frame struct {
	buf [BufferSize]byte
	n   int
}

// NewFrame creates a Frame from bytes, truncated to BufferSize.
func NewFrame(b []byte) Frame {
	var f Frame
	f.n = copy(f.buf[:], b)
	return f
}

// Bytes returns the received bytes.
func (f Frame) Bytes() []byte {
	return f.buf[:f.n]
}

// Len returns the number of received bytes.
func (f Frame) Len() int {
	return f.n
}

// IsEmpty indicates nothing was received.
func (f Frame) IsEmpty() bool {
	return f.n == 0
}

// String returns the frame as text.
func (f Frame) String() string {
	return string(f.buf[:f.n])
}

// Data is one measurement, ordered Fx, Fy, Fz, Tx, Ty, Tz.
type Data [DataCount]float64

// Fx is the force along X.
func (d Data) Fx() float64 { return d[0] }

// Fy is the force along Y.
func (d Data) Fy() float64 { return d[1] }

// Fz is the force along Z.
func (d Data) Fz() float64 { return d[2] }

// Tx is the torque around X.
func (d Data) Tx() float64 { return d[3] }

// Ty is the torque around Y.
func (d Data) Ty() float64 { return d[4] }

// Tz is the torque around Z.
func (d Data) Tz() float64 { return d[5] }

// Force returns Fx, Fy, Fz.
func (d Data) Force() [3]float64 {
	return [3]float64{d[0], d[1], d[2]}
}

// Torque returns Tx, Ty, Tz.
func (d Data) Torque() [3]float64 {
	return [3]float64{d[3], d[4], d[5]}
}

// String formats values separated by spaces.
func (d Data) String() string {
	items := make([]string, DataCount)
	for n, v := range d {
		items[n] = fmt.Sprintf("%g", v)
	}
	return strings.Join(items, " ")
}

// Codec translates commands and parses frames for one sensor family.
type Codec interface {
	// ConvertCmd returns the bytes to send, or nil if the command
	// is not supported.
	ConvertCmd(Command) []byte
	// ParseData validates the frame and converts it to calibrated data.
	ParseData(Frame) (Data, error)
}

// Transport is the byte-level link used by a Sensor.
// *serial.Port implements it.
type Transport interface {
	Open() error
	Close() error
	IsOpen() bool
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Flush() error
}

// ForceSensor is implemented by Sensor and by sensor families
// which need extra initialization.
type ForceSensor interface {
	Open() error
	Close() error
	IsOpen() bool
	Init() error
	SendCmd(Command) error
	UpdateDataUntilCorrect(maxRetries int) error
	ReadData() (Data, error)
	ReadBuffer(Command) (Frame, error)
	GetData() Data
	GetBuffer() Frame
	LastError() error
	Stats() Stats
	SetOptions(Options)
}

// Calibrator is implemented by sensors which fetch calibration
// coefficients from the device in Init.
type Calibrator interface {
	// Calibrated indicates the coefficients are fetched from the device.
	Calibrated() bool
	// Coefficients returns the coefficients in use, one per axis.
	Coefficients() []float64
}

// Options tunes acquisition.
type Options struct {
	// ResponseDelay is waited between sending a command and reading
	// the response. Zero reads immediately.
	ResponseDelay time.Duration
	// MaxRetries bounds the retries of ReadData.
	MaxRetries int
}

// DefaultMaxRetries is the default retry bound of ReadData.
const DefaultMaxRetries = 10

// DefaultOptions returns Options with defaults.
func DefaultOptions() Options {
	return Options{MaxRetries: DefaultMaxRetries}
}

// Stats counts acquisition cycles.
type Stats struct {
	Attempts  uint64
	Successes uint64
	Failures  uint64
}
