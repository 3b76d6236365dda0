// Package sim emulates a DynPick sensor behind the serial driver "sim".
package sim

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ftsense/pkg/sensor"
	"github.com/robotalks/ftsense/pkg/sensor/dynpick"
	"github.com/robotalks/ftsense/pkg/serial"
)

// DriverName is the serial driver name of the emulator.
const DriverName = "sim"

// Config defines the behavior of an emulated device.
type Config struct {
	// Lsb is reported in calibration frames.
	Lsb dynpick.Lsb
	// Signal generates raw counts for the time since the device is opened.
	Signal func(elapsed time.Duration) [sensor.DataCount]uint16
	// DropEvery drops every n-th response, 0 never drops.
	DropEvery int
	// CorruptEvery corrupts every n-th data frame, 0 never corrupts.
	CorruptEvery int
}

// DefaultConfig returns a device answering every request with slowly
// varying readings.
func DefaultConfig() Config {
	return Config{
		Lsb:    dynpick.Lsb{32.8, 32.8, 32.8, 1638.2, 1638.2, 1638.2},
		Signal: SineSignal(8192, 400, 2*time.Second),
	}
}

// SineSignal oscillates each axis around center, the axes shifted in phase.
func SineSignal(center, amplitude float64, period time.Duration) func(time.Duration) [sensor.DataCount]uint16 {
	return func(elapsed time.Duration) (raw [sensor.DataCount]uint16) {
		phase := 2 * math.Pi * float64(elapsed) / float64(period)
		for n := range raw {
			v := center + amplitude*math.Sin(phase+float64(n)*math.Pi/3)
			raw[n] = uint16(math.Max(0, math.Min(0xFFFF, math.Round(v))))
		}
		return
	}
}

// ConstSignal always returns the same counts.
func ConstSignal(raw [sensor.DataCount]uint16) func(time.Duration) [sensor.DataCount]uint16 {
	return func(time.Duration) [sensor.DataCount]uint16 { return raw }
}

// Device is an emulated sensor implementing serial.Device.
// Responses are available immediately after the request is written.
type Device struct {
	config    Config
	opened    time.Time
	input     []byte
	tick      byte
	responses int
	frames    int
	closed    bool
}

// NewDevice creates an emulated device.
func NewDevice(cfg Config) *Device {
	if cfg.Signal == nil {
		cfg.Signal = ConstSignal([sensor.DataCount]uint16{})
	}
	return &Device{config: cfg, opened: time.Now()}
}

// Write implements io.Writer. Each byte is a request.
func (d *Device) Write(p []byte) (int, error) {
	if d.closed {
		return 0, io.ErrClosedPipe
	}
	for _, c := range p {
		switch c {
		case dynpick.CmdData:
			d.respond(d.dataFrame())
		case dynpick.CmdCalibration:
			frame, err := dynpick.EncodeCalibrationFrame(d.config.Lsb)
			if err != nil {
				glog.Warningf("sim: %v", err)
				continue
			}
			d.respond(frame)
		default:
			glog.V(4).Infof("sim: ignore request %q", c)
		}
	}
	return len(p), nil
}

func (d *Device) dataFrame() []byte {
	d.tick++
	d.frames++
	frame := dynpick.EncodeDataFrame(d.tick, d.config.Signal(time.Since(d.opened)))
	if d.config.CorruptEvery > 0 && d.frames%d.config.CorruptEvery == 0 {
		frame[1] = 'X'
	}
	return frame
}

func (d *Device) respond(frame []byte) {
	d.responses++
	if d.config.DropEvery > 0 && d.responses%d.config.DropEvery == 0 {
		return
	}
	d.input = append(d.input, frame...)
}

// Read implements io.Reader.
func (d *Device) Read(p []byte) (int, error) {
	if d.closed {
		return 0, io.ErrClosedPipe
	}
	n := copy(p, d.input)
	d.input = d.input[n:]
	return n, nil
}

// InputWaiting implements serial.Device.
func (d *Device) InputWaiting() (int, error) {
	return len(d.input), nil
}

// OutputWaiting implements serial.Device.
func (d *Device) OutputWaiting() (int, error) {
	return 0, nil
}

// Flush implements serial.Device.
func (d *Device) Flush() error {
	d.input = nil
	return nil
}

// Close implements io.Closer.
func (d *Device) Close() error {
	d.closed = true
	return nil
}

var (
	portConfigs     = make(map[string]Config)
	portConfigsLock sync.RWMutex
)

// Configure sets the behavior of devices opened on the port name.
// Ports without configuration use DefaultConfig.
func Configure(portName string, cfg Config) {
	portConfigsLock.Lock()
	portConfigs[portName] = cfg
	portConfigsLock.Unlock()
}

func openDevice(cfg serial.Config) (serial.Device, error) {
	portConfigsLock.RLock()
	devConfig, ok := portConfigs[cfg.PortName]
	portConfigsLock.RUnlock()
	if !ok {
		devConfig = DefaultConfig()
	}
	glog.V(2).Infof("sim: open %s", cfg)
	return NewDevice(devConfig), nil
}

func init() {
	serial.RegisterDriver(DriverName, openDevice)
}
