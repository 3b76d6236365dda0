package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/ftsense/pkg/comm"
	"github.com/robotalks/ftsense/pkg/msgs"
)

// DefaultQueueSize is the number of events buffered per client.
const DefaultQueueSize = 64

// Broadcaster sends events as JSON text to all connected clients.
// Events are dropped for clients which can't keep up.
type Broadcaster struct {
	Ref       comm.SensorRef
	QueueSize int

	lock    sync.Mutex
	clients map[*ReadWriter]chan []byte
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster(ref comm.SensorRef) *Broadcaster {
	return &Broadcaster{
		Ref:       ref,
		QueueSize: DefaultQueueSize,
		clients:   make(map[*ReadWriter]chan []byte),
	}
}

// Handler returns the http.Handler accepting clients.
func (b *Broadcaster) Handler() http.Handler {
	return websocket.Handler(b.serve)
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.clients)
}

// Publish implements comm.Publisher.
func (b *Broadcaster) Publish(ctx context.Context, msg msgs.SerializableMessage) error {
	pkt, err := comm.EncodeEvent(b.Ref, msg)
	if err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	for rw, ch := range b.clients {
		select {
		case ch <- pkt:
		default:
			glog.V(3).Infof("websocket %s: queue full, drop", rw.Conn.Request().RemoteAddr)
		}
	}
	return nil
}

func (b *Broadcaster) serve(conn *websocket.Conn) {
	rw := &ReadWriter{Conn: conn, Text: true}
	size := b.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	ch := make(chan []byte, size)
	b.lock.Lock()
	b.clients[rw] = ch
	b.lock.Unlock()
	glog.V(2).Infof("websocket %s connected", conn.Request().RemoteAddr)
	defer func() {
		b.lock.Lock()
		delete(b.clients, rw)
		b.lock.Unlock()
		glog.V(2).Infof("websocket %s disconnected", conn.Request().RemoteAddr)
	}()

	// clients are not expected to send anything, reading detects close.
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		for {
			if _, err := rw.ReadPacket(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case <-doneCh:
			return
		case pkt := <-ch:
			if err := rw.WritePacket(pkt); err != nil {
				return
			}
		}
	}
}
