package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robotalks/ftsense/pkg/comm"
	fx "github.com/robotalks/ftsense/pkg/framework"
	"github.com/robotalks/ftsense/pkg/msgs"
)

// Registrar announces a sensor and publishes its events.
type Registrar struct {
	Queue *Queue
	Info  comm.SensorInfo
	// ConnectRetryDelay defaults to DefaultConnectRetryDelay.
	ConnectRetryDelay time.Duration

	metaJSON  []byte
	registrar comm.Registrar
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info comm.SensorInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+metaTopic(info.Ref), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("ftsense:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	r.Queue.OnConnect = func(q *Queue) {
		q.PubWith(metaTopic(r.Info.Ref), r.metaJSON, 1, true)
	}
	r.registrar.Init(NewPacketReadWriter(r.Queue).ForSensor(info.Ref))
	return r, nil
}

func metaTopic(ref comm.SensorRef) string {
	return ref.Name() + "/meta"
}

// Publish implements comm.Publisher.
func (r *Registrar) Publish(ctx context.Context, msg msgs.SerializableMessage) error {
	return r.registrar.Publish(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.registrar)
	loop.AddRunnable(r)
}

// Run implements Runnable.
// The broker is connected with retries and the meta is cleared on exit.
func (r *Registrar) Run(ctx context.Context) error {
	if err := r.Queue.ConnectUntil(ctx, r.ConnectRetryDelay); err != nil {
		r.Queue.Close()
		return err
	}
	<-ctx.Done()
	r.Queue.PubWith(metaTopic(r.Info.Ref), nil, 1, true).Wait()
	return r.Queue.Close()
}
