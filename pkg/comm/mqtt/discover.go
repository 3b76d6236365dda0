package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ftsense/pkg/comm"
	"github.com/robotalks/ftsense/pkg/msgs"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Discover collects retained meta of sensors until timeout.
func Discover(ctx context.Context, q *Queue, timeout time.Duration) (res []comm.SensorInfo, err error) {
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	infoCh := make(chan comm.SensorInfo, 16)
	sub := q.Sub("+/+/meta", func(topic string, payload []byte) {
		info, ok := parseMeta(topic, payload)
		if !ok {
			return
		}
		select {
		case infoCh <- info:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	deadline := time.After(timeout)
	for {
		select {
		case info := <-infoCh:
			res = append(res, info)
		case <-deadline:
			return
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

func parseMeta(topic string, payload []byte) (info comm.SensorInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || len(payload) == 0 {
		return info, false
	}
	info.Ref = comm.SensorRef{Type: items[0], ID: items[1]}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("invalid meta of %s: %v", info.Ref.Name(), err)
	}
	return info, true
}

// EventHandler receives decoded events of a sensor.
type EventHandler func(ref comm.SensorRef, msg msgs.SerializableMessage)

// Watch subscribes events of sensors matching ref, where Type and ID
// may be "+" for any, until ctx is done.
func Watch(ctx context.Context, q *Queue, ref comm.SensorRef, handler EventHandler) error {
	sub := q.Sub(ref.Name()+"/msg", func(topic string, payload []byte) {
		items := strings.Split(topic, "/")
		if len(items) != 3 {
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			glog.Warningf("%s: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.V(2).Infof("%s: %v", topic, err)
			return
		}
		handler(comm.SensorRef{Type: items[0], ID: items[1]}, msg)
	})
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

// SendCommand publishes a command to the sensor.
func SendCommand(q *Queue, ref comm.SensorRef, msg msgs.SerializableMessage) error {
	pipe := comm.NewPipe(NewPacketReadWriter(q).ForMonitor(ref))
	return pipe.SendCommandMsg(msg)
}
