//go:build linux

package serial

import (
	"fmt"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

const defaultDriver = "termios"

func init() {
	RegisterDriver("termios", openTermios)
}

var baudrateMap = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

var databitsMap = map[int]uint32{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

// termiosDevice is a tty configured with termios ioctls.
type termiosDevice struct {
	fd   int
	name string
}

func openTermios(cfg Config) (dev Device, err error) {
	fd, err := unix.Open(cfg.PortName, unix.O_RDWR|unix.O_NOCTTY|unix.O_NDELAY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	// prevent handle leaks
	defer func() {
		if err != nil {
			unix.Close(fd)
			dev = nil
		}
	}()

	settings, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	if err = setTermiosBaudrate(cfg.BaudRate, settings); err != nil {
		return nil, err
	}
	if err = setTermiosParity(cfg.Parity, settings); err != nil {
		return nil, err
	}
	if err = setTermiosDataBits(cfg.DataBits, settings); err != nil {
		return nil, err
	}
	setTermiosStopBits(cfg.PortName, cfg.StopBits, settings)

	// local line, no handshake
	settings.Cflag |= unix.CREAD | unix.CLOCAL
	settings.Cflag &^= unix.CRTSCTS

	// raw mode
	settings.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHONL | unix.ISIG | unix.IEXTEN
	settings.Iflag &^= unix.IXON | unix.IXOFF | unix.IXANY | unix.IGNBRK | unix.BRKINT |
		unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL
	settings.Oflag &^= unix.OPOST

	// polling reads
	settings.Cc[unix.VMIN] = 0
	settings.Cc[unix.VTIME] = 0

	if err = unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		return nil, err
	}
	if err = unix.IoctlSetTermios(fd, unix.TCSETS, settings); err != nil {
		return nil, err
	}
	return &termiosDevice{fd: fd, name: cfg.PortName}, nil
}

func setTermiosBaudrate(speed int, settings *unix.Termios) error {
	baudrate, ok := baudrateMap[speed]
	if !ok {
		return fmt.Errorf("invalid baud rate %d", speed)
	}
	settings.Cflag &^= unix.CBAUD
	settings.Cflag |= baudrate
	settings.Ispeed = baudrate
	settings.Ospeed = baudrate
	return nil
}

func setTermiosParity(parity Parity, settings *unix.Termios) error {
	switch parity {
	case ParityNone:
		settings.Cflag &^= unix.PARENB | unix.PARODD
		settings.Iflag &^= unix.INPCK
	case ParityOdd:
		settings.Cflag |= unix.PARENB | unix.PARODD
		settings.Iflag |= unix.INPCK
	case ParityEven:
		settings.Cflag |= unix.PARENB
		settings.Cflag &^= unix.PARODD
		settings.Iflag |= unix.INPCK
	default:
		return fmt.Errorf("invalid parity %v", parity)
	}
	return nil
}

func setTermiosDataBits(bits int, settings *unix.Termios) error {
	databits, ok := databitsMap[bits]
	if !ok {
		return fmt.Errorf("invalid data bits %d", bits)
	}
	settings.Cflag &^= unix.CSIZE
	settings.Cflag |= databits
	return nil
}

// termios has no 1.5 stop bits, one stop bit is used instead.
func setTermiosStopBits(name string, bits StopBits, settings *unix.Termios) {
	switch bits {
	case TwoStopBits:
		settings.Cflag |= unix.CSTOPB
	case OnePointFiveStopBits:
		glog.Warningf("serial %s: 1.5 stop bits unsupported, using 1", name)
		settings.Cflag &^= unix.CSTOPB
	default:
		settings.Cflag &^= unix.CSTOPB
	}
}

func (d *termiosDevice) Read(p []byte) (int, error) {
	n, err := unix.Read(d.fd, p)
	if err == unix.EAGAIN {
		return 0, nil
	}
	if n < 0 {
		n = 0
	}
	return n, err
}

func (d *termiosDevice) Write(p []byte) (int, error) {
	n, err := unix.Write(d.fd, p)
	if err == unix.EAGAIN {
		return 0, ErrWriteRejected
	}
	if n < 0 {
		n = 0
	}
	return n, err
}

func (d *termiosDevice) InputWaiting() (int, error) {
	return unix.IoctlGetInt(d.fd, unix.TIOCINQ)
}

func (d *termiosDevice) OutputWaiting() (int, error) {
	return unix.IoctlGetInt(d.fd, unix.TIOCOUTQ)
}

func (d *termiosDevice) Flush() error {
	return unix.IoctlSetInt(d.fd, unix.TCFLSH, unix.TCIOFLUSH)
}

func (d *termiosDevice) Close() error {
	return unix.Close(d.fd)
}
