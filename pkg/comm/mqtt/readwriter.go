package mqtt

import (
	"context"
	"io"
	"sync"

	"github.com/robotalks/ftsense/pkg/comm"
)

// ReadWriter implements PacketReadWriter over a pair of topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, 16), doneCh: make(chan struct{})}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForSensor sets topics used by a sensor daemon:
// SubTopic = T/I/cmd
// PubTopic = T/I/msg
func (p *ReadWriter) ForSensor(ref comm.SensorRef) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+"/cmd", prefix+"/msg")
}

// ForMonitor sets topics used to talk to a sensor daemon:
// SubTopic = T/I/msg
// PubTopic = T/I/cmd
func (p *ReadWriter) ForMonitor(ref comm.SensorRef) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+"/msg", prefix+"/cmd")
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
	defer p.Close()
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

// Close stops ReadPacket. Messages received afterwards are dropped.
func (p *ReadWriter) Close() error {
	p.doneOnce.Do(func() { close(p.doneCh) })
	return nil
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case <-p.doneCh:
	case p.packetCh <- payload:
	default:
		// the reader is too slow, drop
	}
}
