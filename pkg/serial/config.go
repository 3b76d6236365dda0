package serial

import (
	"fmt"
	"strconv"
)

// Parity is the parity setting, encoded as the ASCII letter
// used by device documentation.
type Parity byte

// Supported parity settings.
const (
	ParityNone Parity = 'N'
	ParityOdd  Parity = 'O'
	ParityEven Parity = 'E'
)

// IsValid indicates the parity is supported.
func (p Parity) IsValid() bool {
	return p == ParityNone || p == ParityOdd || p == ParityEven
}

// String implements fmt.Stringer.
func (p Parity) String() string {
	if p.IsValid() {
		return string(rune(p))
	}
	return fmt.Sprintf("Parity(%d)", byte(p))
}

// ParseParity parses "N", "O" or "E" (case insensitive).
func ParseParity(s string) (Parity, error) {
	if len(s) == 1 {
		c := s[0]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if p := Parity(c); p.IsValid() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid parity %q", s)
}

// StopBits is the number of stop bits.
type StopBits int

// Supported stop bits.
const (
	OneStopBit StopBits = iota
	OnePointFiveStopBits
	TwoStopBits
)

// IsValid indicates the value is a known setting.
func (s StopBits) IsValid() bool {
	return s >= OneStopBit && s <= TwoStopBits
}

// String implements fmt.Stringer.
func (s StopBits) String() string {
	switch s {
	case OneStopBit:
		return "1"
	case OnePointFiveStopBits:
		return "1.5"
	case TwoStopBits:
		return "2"
	}
	return "StopBits(" + strconv.Itoa(int(s)) + ")"
}

// StopBitsFromCode decodes the numeric stop bits code found in existing
// device configurations: 0 is 1 bit, 1 is 1.5 bits, 2 is 2 bits and
// 3 is an alias of 1 bit.
func StopBitsFromCode(code int) (StopBits, error) {
	switch code {
	case 0, 3:
		return OneStopBit, nil
	case 1:
		return OnePointFiveStopBits, nil
	case 2:
		return TwoStopBits, nil
	}
	return 0, fmt.Errorf("invalid stop bits code %d", code)
}

// Config defines the serial line settings of a port.
type Config struct {
	PortName string
	BaudRate int
	DataBits int // 5, 6, 7 or 8
	StopBits StopBits
	Parity   Parity
	// Driver selects the device driver by name, empty for the
	// platform default.
	Driver string
}

// DefaultConfig returns the line settings used by DynPick sensors.
func DefaultConfig(portName string) Config {
	return Config{
		PortName: portName,
		BaudRate: 921600,
		DataBits: 8,
		StopBits: OneStopBit,
		Parity:   ParityNone,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.PortName == "" {
		return fmt.Errorf("port name required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("invalid data bits %d", c.DataBits)
	}
	if !c.StopBits.IsValid() {
		return fmt.Errorf("invalid stop bits %v", c.StopBits)
	}
	if !c.Parity.IsValid() {
		return fmt.Errorf("invalid parity %v", c.Parity)
	}
	return nil
}

// String implements fmt.Stringer, e.g. "/dev/ttyUSB0 921600 8N1".
func (c Config) String() string {
	return fmt.Sprintf("%s %d %d%v%v", c.PortName, c.BaudRate, c.DataBits, c.Parity, c.StopBits)
}
