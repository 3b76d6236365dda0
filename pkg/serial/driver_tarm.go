package serial

import (
	"io"
	"time"

	"github.com/golang/glog"
	tarm "github.com/tarm/serial"
)

// tarmReadTimeout is the shortest timeout tarm/serial can express.
const tarmReadTimeout = 100 * time.Millisecond

func init() {
	RegisterDriver("tarm", openTarm)
}

// tarmDevice wraps github.com/tarm/serial. Reads wait up to
// tarmReadTimeout when nothing is received.
type tarmDevice struct {
	port *tarm.Port
}

func openTarm(cfg Config) (Device, error) {
	c := &tarm.Config{
		Name:        cfg.PortName,
		Baud:        cfg.BaudRate,
		Size:        byte(cfg.DataBits),
		Parity:      tarm.Parity(cfg.Parity),
		StopBits:    tarm.Stop1,
		ReadTimeout: tarmReadTimeout,
	}
	switch cfg.StopBits {
	case TwoStopBits:
		c.StopBits = tarm.Stop2
	case OnePointFiveStopBits:
		glog.Warningf("serial %s: 1.5 stop bits unsupported, using 1", cfg.PortName)
	}
	port, err := tarm.OpenPort(c)
	if err != nil {
		return nil, err
	}
	return &tarmDevice{port: port}, nil
}

func (d *tarmDevice) Read(p []byte) (int, error) {
	n, err := d.port.Read(p)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

func (d *tarmDevice) Write(p []byte) (int, error) {
	return d.port.Write(p)
}

func (d *tarmDevice) InputWaiting() (int, error) {
	return -1, nil
}

func (d *tarmDevice) OutputWaiting() (int, error) {
	return 0, nil
}

func (d *tarmDevice) Flush() error {
	return d.port.Flush()
}

func (d *tarmDevice) Close() error {
	return d.port.Close()
}
