package comm

import (
	"context"

	fx "github.com/robotalks/ftsense/pkg/framework"
	"github.com/robotalks/ftsense/pkg/msgs"
)

// Registrar publishes events through a Pipe and posts received
// commands to the loop it's added to.
type Registrar struct {
	pipe Pipe
	loop fx.LoopControl
}

// Init initializes the Registrar with the packet transport.
func (r *Registrar) Init(rw PacketReadWriter) {
	r.pipe.ReadWriter = rw
	r.pipe.Handler = func(ctx context.Context, msg msgs.SerializableMessage, typed *msgs.Typed) error {
		if typed.IsCommand() && r.loop != nil {
			r.loop.PostMessage(msg)
		}
		return nil
	}
}

// Publish implements Publisher.
func (r *Registrar) Publish(ctx context.Context, msg msgs.SerializableMessage) error {
	return r.pipe.SendEventMsg(msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	r.loop = loop
	loop.Add(&r.pipe)
}

// PublisherMux publishes to multiple Publishers.
type PublisherMux struct {
	Publishers []Publisher
}

// Publish implements Publisher.
func (m *PublisherMux) Publish(ctx context.Context, msg msgs.SerializableMessage) error {
	var errs fx.AggregatedError
	for _, pub := range m.Publishers {
		errs.Add(pub.Publish(ctx, msg))
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (m *PublisherMux) AddToLoop(l *fx.Loop) {
	for _, pub := range m.Publishers {
		if adder, ok := pub.(fx.LoopAdder); ok {
			l.Add(adder)
		} else if runnable, ok := pub.(fx.Runnable); ok {
			l.AddRunnable(runnable)
		}
	}
}

// Add adds more publishers.
func (m *PublisherMux) Add(pubs ...Publisher) {
	m.Publishers = append(m.Publishers, pubs...)
}
