package serial

import (
	"fmt"

	bugst "go.bug.st/serial"
)

func init() {
	RegisterDriver("bugst", openBugst)
}

// bugstDevice wraps go.bug.st/serial. Queue sizes are not exposed by
// the library: input is reported unknown and output as empty.
type bugstDevice struct {
	port bugst.Port
}

func openBugst(cfg Config) (Device, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}
	switch cfg.Parity {
	case ParityNone:
		mode.Parity = bugst.NoParity
	case ParityOdd:
		mode.Parity = bugst.OddParity
	case ParityEven:
		mode.Parity = bugst.EvenParity
	default:
		return nil, fmt.Errorf("invalid parity %v", cfg.Parity)
	}
	switch cfg.StopBits {
	case OneStopBit:
		mode.StopBits = bugst.OneStopBit
	case OnePointFiveStopBits:
		mode.StopBits = bugst.OnePointFiveStopBits
	case TwoStopBits:
		mode.StopBits = bugst.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %v", cfg.StopBits)
	}

	port, err := bugst.Open(cfg.PortName, mode)
	if err != nil {
		return nil, err
	}
	// zero timeout makes Read return what is already received.
	if err = port.SetReadTimeout(0); err == nil {
		err = port.ResetInputBuffer()
	}
	if err != nil {
		port.Close()
		return nil, err
	}
	return &bugstDevice{port: port}, nil
}

func (d *bugstDevice) Read(p []byte) (int, error) {
	return d.port.Read(p)
}

func (d *bugstDevice) Write(p []byte) (int, error) {
	return d.port.Write(p)
}

func (d *bugstDevice) InputWaiting() (int, error) {
	return -1, nil
}

func (d *bugstDevice) OutputWaiting() (int, error) {
	return 0, nil
}

func (d *bugstDevice) Flush() error {
	if err := d.port.ResetInputBuffer(); err != nil {
		return err
	}
	return d.port.ResetOutputBuffer()
}

func (d *bugstDevice) Close() error {
	return d.port.Close()
}
