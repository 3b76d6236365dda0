package comm

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/ftsense/pkg/framework"
	"github.com/robotalks/ftsense/pkg/msgs"
)

// MsgHandler handles a decoded message.
type MsgHandler func(context.Context, msgs.SerializableMessage, *msgs.Typed) error

// Pipe is a bi-directional pipe for messages.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    MsgHandler

	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// SendEventMsg sends a message which must be an event.
func (p *Pipe) SendEventMsg(msg msgs.SerializableMessage) error {
	return p.send(msg, true)
}

// SendCommandMsg sends a message which must be a command.
func (p *Pipe) SendCommandMsg(msg msgs.SerializableMessage) error {
	return p.send(msg, false)
}

func (p *Pipe) send(msg msgs.SerializableMessage, event bool) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	if typed.IsEvent() != event {
		return fmt.Errorf("message %x is of wrong kind", typed.TypeId)
	}
	return p.SendTyped(typed)
}

// SendTyped send a Typed message.
func (p *Pipe) SendTyped(typed *msgs.Typed) error {
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(pkt)
}

// Run implements Runnable.
// The ReadWriter is closed when ctx is done if it's an io.Closer.
// Run returns nil when the ReadWriter reaches io.EOF.
func (p *Pipe) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, p, func() error {
		for {
			pkt, err := p.ReadWriter.ReadPacket()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			typed, err := msgs.DecodeTyped(pkt)
			if err != nil {
				glog.Warningf("drop invalid packet: %v", err)
				continue
			}
			msg, err := typed.Decode()
			if err != nil {
				glog.Warningf("drop message: %v", err)
				continue
			}
			if h := p.Handler; h != nil {
				if err = h(ctx, msg, typed); err != nil {
					return err
				}
			}
		}
	})
}

// Close implements Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	if adder, ok := p.ReadWriter.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := p.ReadWriter.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
	loop.AddRunnable(p)
}
