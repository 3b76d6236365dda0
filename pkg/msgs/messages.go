package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/ftsense/pkg/sensor"
)

// TypeID Groups
const (
	GroupSensor uint32 = 0x00030000
)

// TypeIDs
const (
	WrenchTypeID       uint32 = TypeIDKindEvent | GroupSensor | 0x0001
	SensorStatusTypeID uint32 = TypeIDKindEvent | GroupSensor | 0x0002
	CalibrationTypeID  uint32 = TypeIDKindEvent | GroupSensor | 0x0003
	CalibrateTypeID    uint32 = TypeIDKindCommand | GroupSensor | 0x0001
)

// Wrench is an Event message of one measurement.
type Wrench struct {
	Timestamp int64   `protobuf:"varint,1,opt,name=timestamp,proto3" json:"timestamp"`
	Seq       uint64  `protobuf:"varint,2,opt,name=seq,proto3" json:"seq"`
	Fx        float64 `protobuf:"fixed64,3,opt,name=fx,proto3" json:"fx"`
	Fy        float64 `protobuf:"fixed64,4,opt,name=fy,proto3" json:"fy"`
	Fz        float64 `protobuf:"fixed64,5,opt,name=fz,proto3" json:"fz"`
	Tx        float64 `protobuf:"fixed64,6,opt,name=tx,proto3" json:"tx"`
	Ty        float64 `protobuf:"fixed64,7,opt,name=ty,proto3" json:"ty"`
	Tz        float64 `protobuf:"fixed64,8,opt,name=tz,proto3" json:"tz"`
	// Calibrated is false when values are raw counts.
	Calibrated bool `protobuf:"varint,9,opt,name=calibrated,proto3" json:"calibrated"`
}

// NewWrench creates a Wrench from sensor data.
func NewWrench(seq uint64, t time.Time, data sensor.Data, calibrated bool) *Wrench {
	return &Wrench{
		Timestamp:  t.UnixNano(),
		Seq:        seq,
		Fx:         data.Fx(),
		Fy:         data.Fy(),
		Fz:         data.Fz(),
		Tx:         data.Tx(),
		Ty:         data.Ty(),
		Tz:         data.Tz(),
		Calibrated: calibrated,
	}
}

// Data converts back to sensor.Data.
func (m *Wrench) Data() sensor.Data {
	return sensor.Data{m.Fx, m.Fy, m.Fz, m.Tx, m.Ty, m.Tz}
}

// Time returns the timestamp.
func (m *Wrench) Time() time.Time {
	return time.Unix(0, m.Timestamp)
}

// TypeID implements SerializableMessage.
func (m *Wrench) TypeID() uint32 { return WrenchTypeID }

// ProtoMessage implements proto.Message.
func (m *Wrench) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Wrench) Reset() { *m = Wrench{} }

// String implements proto.Message.
func (m *Wrench) String() string { return proto.CompactTextString(m) }

// Sensor states reported in SensorStatus.
const (
	StateOffline    = "offline"
	StateConnected  = "connected"
	StateCalibrated = "calibrated"
	StateFailing    = "failing"
)

// SensorStatus is an Event message reflecting sensor status.
type SensorStatus struct {
	State      string `protobuf:"bytes,1,opt,name=state,proto3" json:"state"`
	Model      string `protobuf:"bytes,2,opt,name=model,proto3" json:"model,omitempty"`
	Port       string `protobuf:"bytes,3,opt,name=port,proto3" json:"port,omitempty"`
	Calibrated bool   `protobuf:"varint,4,opt,name=calibrated,proto3" json:"calibrated"`
	Attempts   uint64 `protobuf:"varint,5,opt,name=attempts,proto3" json:"attempts"`
	Successes  uint64 `protobuf:"varint,6,opt,name=successes,proto3" json:"successes"`
	Failures   uint64 `protobuf:"varint,7,opt,name=failures,proto3" json:"failures"`
	LastError  string `protobuf:"bytes,8,opt,name=last_error,json=lastError,proto3" json:"last_error,omitempty"`
}

// TypeID implements SerializableMessage.
func (m *SensorStatus) TypeID() uint32 { return SensorStatusTypeID }

// ProtoMessage implements proto.Message.
func (m *SensorStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SensorStatus) Reset() { *m = SensorStatus{} }

// String implements proto.Message.
func (m *SensorStatus) String() string { return proto.CompactTextString(m) }

// Calibration is an Event message with the coefficients in use.
type Calibration struct {
	Lsb []float64 `protobuf:"fixed64,1,rep,packed,name=lsb,proto3" json:"lsb"`
}

// TypeID implements SerializableMessage.
func (m *Calibration) TypeID() uint32 { return CalibrationTypeID }

// ProtoMessage implements proto.Message.
func (m *Calibration) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Calibration) Reset() { *m = Calibration{} }

// String implements proto.Message.
func (m *Calibration) String() string { return proto.CompactTextString(m) }

// Calibrate is a Command message requesting the sensor to fetch
// calibration coefficients again.
type Calibrate struct {
}

// TypeID implements SerializableMessage.
func (m *Calibrate) TypeID() uint32 { return CalibrateTypeID }

// ProtoMessage implements proto.Message.
func (m *Calibrate) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Calibrate) Reset() { *m = Calibrate{} }

// String implements proto.Message.
func (m *Calibrate) String() string { return proto.CompactTextString(m) }
