package serial

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	input    bytes.Buffer
	written  bytes.Buffer
	outQueue int
	readErr  error
	flushes  int
	closed   bool
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	if d.readErr != nil {
		return 0, d.readErr
	}
	return d.input.Read(p)
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	return d.written.Write(p)
}

func (d *fakeDevice) InputWaiting() (int, error) {
	return d.input.Len(), nil
}

func (d *fakeDevice) OutputWaiting() (int, error) {
	return d.outQueue, nil
}

func (d *fakeDevice) Flush() error {
	d.flushes++
	d.input.Reset()
	return nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

type fakeDriver struct {
	devices []*fakeDevice
	err     error
}

func (f *fakeDriver) open(cfg Config) (Device, error) {
	if f.err != nil {
		return nil, f.err
	}
	dev := &fakeDevice{}
	f.devices = append(f.devices, dev)
	return dev, nil
}

func (f *fakeDriver) last() *fakeDevice {
	return f.devices[len(f.devices)-1]
}

func newFakePort(t *testing.T) (*Port, *fakeDriver) {
	drv := &fakeDriver{}
	name := "fake-" + t.Name()
	RegisterDriver(name, drv.open)
	cfg := DefaultConfig("/dev/ttyFAKE")
	cfg.Driver = name
	return NewPort(cfg), drv
}

func TestPortOpenClose(t *testing.T) {
	port, drv := newFakePort(t)
	require.False(t, port.IsOpen())
	require.Equal(t, StateClosed, port.State())

	require.NoError(t, port.Open())
	require.True(t, port.IsOpen())
	require.NoError(t, port.Open())
	require.Len(t, drv.devices, 1, "open must be idempotent")

	require.NoError(t, port.Close())
	require.False(t, port.IsOpen())
	require.True(t, drv.last().closed)

	require.NoError(t, port.Close())
	require.Equal(t, StateClosed, port.State())
}

func TestPortCloseNeverOpened(t *testing.T) {
	port := NewPort(DefaultConfig("/dev/ttyX"))
	require.NoError(t, port.Close())
	require.NoError(t, port.Close())
	require.False(t, port.IsOpen())
}

func TestPortOpenFailure(t *testing.T) {
	port, drv := newFakePort(t)
	drv.err = errors.New("no such device")
	err := port.Open()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDeviceUnavailable))
	var devErr *DeviceError
	require.True(t, errors.As(err, &devErr))
	require.Equal(t, "/dev/ttyFAKE", devErr.Port)
	require.False(t, port.IsOpen())
	require.Equal(t, StateError, port.State())

	require.NoError(t, port.Close())
	require.Equal(t, StateClosed, port.State())
}

func TestPortOpenInvalidConfig(t *testing.T) {
	port, drv := newFakePort(t)
	port.config.DataBits = 9
	require.True(t, errors.Is(port.Open(), ErrDeviceUnavailable))
	require.Empty(t, drv.devices)
	require.False(t, port.IsOpen())
}

func TestPortOpenUnknownDriver(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyX")
	cfg.Driver = "no-such-driver"
	port := NewPort(cfg)
	err := port.Open()
	require.True(t, errors.Is(err, ErrDeviceUnavailable))
	require.True(t, errors.Is(err, ErrUnknownDriver))
	require.False(t, port.IsOpen())
}

func TestPortOpenUnavailableDevice(t *testing.T) {
	cfg := Config{PortName: "/dev/ttyX", BaudRate: 921600, DataBits: 8, StopBits: OneStopBit, Parity: ParityNone}
	port := NewPort(cfg)
	require.Error(t, port.Open())
	require.False(t, port.IsOpen())
}

func TestPortNotOpen(t *testing.T) {
	port, _ := newFakePort(t)
	buf := make([]byte, 8)
	n, err := port.Read(buf)
	require.Equal(t, 0, n)
	require.Equal(t, ErrNotOpen, err)
	n, err = port.Write([]byte("R"))
	require.Equal(t, 0, n)
	require.Equal(t, ErrNotOpen, err)
	require.Equal(t, ErrNotOpen, port.Flush())
}

func TestPortRead(t *testing.T) {
	port, drv := newFakePort(t)
	require.NoError(t, port.Open())
	dev := drv.last()

	buf := make([]byte, 4)
	n, err := port.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 0, n, "nothing queued")

	dev.input.WriteString("abcdef")
	n, err = port.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "abcd", string(buf[:n]))
	n, err = port.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "ef", string(buf[:n]))

	dev.input.WriteString("x")
	dev.readErr = errors.New("io")
	n, err = port.Read(buf)
	require.Equal(t, 0, n)
	require.True(t, errors.Is(err, ErrReadFailed))
}

func TestPortWrite(t *testing.T) {
	port, drv := newFakePort(t)
	require.NoError(t, port.Open())
	dev := drv.last()

	n, err := port.Write([]byte("R"))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "R", dev.written.String())

	dev.outQueue = 1
	n, err = port.Write([]byte("p"))
	require.Equal(t, 0, n)
	require.Equal(t, ErrWriteRejected, err)
	require.Equal(t, "R", dev.written.String())
}

func TestPortFlush(t *testing.T) {
	port, drv := newFakePort(t)
	require.NoError(t, port.Open())
	dev := drv.last()
	dev.input.WriteString("stale")
	require.NoError(t, port.Flush())
	require.Equal(t, 1, dev.flushes)
	n, err := port.Read(make([]byte, 8))
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestPortReopen(t *testing.T) {
	port, drv := newFakePort(t)
	require.NoError(t, port.Open())
	require.NoError(t, port.Close())
	require.NoError(t, port.Open())
	require.Len(t, drv.devices, 2)
	require.True(t, drv.devices[0].closed)
	require.False(t, drv.devices[1].closed)
}

func TestDrivers(t *testing.T) {
	names := Drivers()
	require.Contains(t, names, "bugst")
	require.Contains(t, names, "tarm")
	require.Contains(t, names, DefaultDriver())
}
