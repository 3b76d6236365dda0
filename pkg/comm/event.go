package comm

import (
	"encoding/json"
	"fmt"

	"github.com/robotalks/ftsense/pkg/msgs"
)

// Event is the JSON form of a message, used by text based transports.
type Event struct {
	Type   string          `json:"type"`
	Sensor string          `json:"sensor"`
	Data   json.RawMessage `json:"data"`
}

var eventTypes = map[uint32]string{
	msgs.WrenchTypeID:       "wrench",
	msgs.SensorStatusTypeID: "status",
	msgs.CalibrationTypeID:  "calibration",
}

// EncodeEvent encodes the message as JSON Event.
func EncodeEvent(ref SensorRef, msg msgs.SerializableMessage) ([]byte, error) {
	name, ok := eventTypes[msg.TypeID()]
	if !ok {
		return nil, &msgs.ErrUnknownType{TypeID: msg.TypeID()}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Event{Type: name, Sensor: ref.Name(), Data: data})
}

// DecodeEvent decodes a JSON Event.
func DecodeEvent(data []byte) (*Event, msgs.SerializableMessage, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, nil, err
	}
	for typeID, name := range eventTypes {
		if name == ev.Type {
			msg := msgs.MessageTypes[typeID]()
			if err := json.Unmarshal(ev.Data, msg); err != nil {
				return nil, nil, fmt.Errorf("event %s: %w", name, err)
			}
			return &ev, msg, nil
		}
	}
	return nil, nil, fmt.Errorf("unknown event type %q", ev.Type)
}
