// Package dynpick implements the DynPick 6-axis force/torque sensor.
//
// The sensor answers "R" with a data frame of 27 bytes:
//
//	<tick> <Fx:4> <Fy:4> <Fz:4> <Tx:4> <Ty:4> <Tz:4> \r \n
//
// where each field is 4 hexadecimal digits, and "p" with a calibration
// frame of 49 bytes holding 6 comma separated decimal coefficients
// terminated by "\r\n". Readings are the raw field values divided by
// the coefficients.
package dynpick

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ftsense/pkg/sensor"
	"github.com/robotalks/ftsense/pkg/serial"
)

// ModelName is the name registered in the sensor model registry.
const ModelName = "dynpick"

// Calibration retry parameters.
const (
	CalibrationRetries    = 5
	CalibrationRetryDelay = 10 * time.Millisecond
)

// Command bytes.
const (
	CmdData        = 'R'
	CmdCalibration = 'p'
)

func init() {
	sensor.Register(ModelName, func(t sensor.Transport) sensor.ForceSensor {
		return NewWithTransport(t)
	})
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// DynPick is a DynPick sensor.
type DynPick struct {
	*sensor.Sensor

	noCopy     noCopy
	lsb        Lsb
	calibrated bool
}

// New creates a DynPick on a serial port.
func New(cfg serial.Config) *DynPick {
	return NewWithTransport(serial.NewPort(cfg))
}

// NewWithTransport creates a DynPick on the transport.
func NewWithTransport(t sensor.Transport) *DynPick {
	d := &DynPick{lsb: DefaultLsb()}
	d.Sensor = sensor.NewWithTransport(d, t)
	return d
}

// ConvertCmd implements sensor.Codec.
func (d *DynPick) ConvertCmd(cmd sensor.Command) []byte {
	switch cmd {
	case sensor.CmdRequestSendDataOnce:
		return []byte{CmdData}
	case sensor.CmdUser1:
		return []byte{CmdCalibration}
	}
	return nil
}

// ParseData implements sensor.Codec.
func (d *DynPick) ParseData(f sensor.Frame) (sensor.Data, error) {
	return ParseDataFrame(f, d.lsb)
}

// Init fetches the calibration coefficients.
// The sensor keeps working with the previous coefficients if it fails,
// and Calibrated reports false.
func (d *DynPick) Init() error {
	if !d.IsOpen() {
		return sensor.ErrNotOpen
	}
	return d.UpdateLsb()
}

// UpdateLsb requests the calibration coefficients until a complete
// calibration frame is received and replaces all of them at once.
func (d *DynPick) UpdateLsb() error {
	err := sensor.Retry(CalibrationRetries, CalibrationRetryDelay, func() error {
		f, err := d.ReadBuffer(sensor.CmdUser1)
		if err != nil {
			return err
		}
		return checkCalibrationFrame(f)
	})
	if err != nil {
		glog.Warningf("dynpick: calibration unavailable: %v", err)
		return err
	}
	lsb, err := ParseCalibrationFrame(d.GetBuffer())
	if err != nil {
		glog.Warningf("dynpick: calibration rejected: %v", err)
		return err
	}
	d.lsb, d.calibrated = lsb, true
	glog.V(2).Infof("dynpick: calibrated %v", lsb)
	return nil
}

// Calibrated indicates the coefficients are fetched from the device.
func (d *DynPick) Calibrated() bool {
	return d.calibrated
}

// Coefficients implements sensor.Calibrator.
func (d *DynPick) Coefficients() []float64 {
	lsb := d.lsb
	return lsb[:]
}

// Lsb returns the coefficients in use.
func (d *DynPick) Lsb() Lsb {
	return d.lsb
}

// SetLsb replaces the coefficients.
func (d *DynPick) SetLsb(lsb Lsb) error {
	if err := lsb.Validate(); err != nil {
		return err
	}
	d.lsb = lsb
	return nil
}
