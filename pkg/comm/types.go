// Package comm connects a sensor daemon to its consumers.
package comm

import (
	"context"

	"github.com/robotalks/ftsense/pkg/msgs"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Publisher publishes events of a sensor.
type Publisher interface {
	Publish(context.Context, msgs.SerializableMessage) error
}

// SensorRef is a reference to a sensor daemon.
type SensorRef struct {
	// Type is the sensor model.
	Type string
	// ID is unique ID of the sensor.
	ID string
}

// Name retrieves the name from ref.
func (r SensorRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates SensorRef is valid.
func (r SensorRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// SensorMeta provides metadata of a sensor.
type SensorMeta struct {
	Description string            `json:"description,omitempty"`
	Port        string            `json:"port,omitempty"`
	Interval    string            `json:"interval,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// SensorInfo provides information of a sensor.
type SensorInfo struct {
	Ref  SensorRef
	Meta SensorMeta
}
