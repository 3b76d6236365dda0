package comm

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/ftsense/pkg/framework"
	"github.com/robotalks/ftsense/pkg/msgs"
	"github.com/robotalks/ftsense/pkg/sensor"
)

type chanReadWriter struct {
	in    chan []byte
	out   chan []byte
	close sync.Once
}

func newChanReadWriter() *chanReadWriter {
	return &chanReadWriter{in: make(chan []byte, 4), out: make(chan []byte, 4)}
}

func (c *chanReadWriter) ReadPacket() ([]byte, error) {
	pkt, ok := <-c.in
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

func (c *chanReadWriter) Close() error {
	c.close.Do(func() { close(c.in) })
	return nil
}

func (c *chanReadWriter) WritePacket(pkt []byte) error {
	c.out <- pkt
	return nil
}

type publisherFunc func(context.Context, msgs.SerializableMessage) error

func (f publisherFunc) Publish(ctx context.Context, msg msgs.SerializableMessage) error {
	return f(ctx, msg)
}

func TestRegistrarPublish(t *testing.T) {
	rw := newChanReadWriter()
	var r Registrar
	r.Init(rw)
	require.NoError(t, r.Publish(context.Background(), &msgs.SensorStatus{State: msgs.StateConnected}))
	typed, err := msgs.DecodeTyped(<-rw.out)
	require.NoError(t, err)
	msg, err := typed.Decode()
	require.NoError(t, err)
	require.Equal(t, &msgs.SensorStatus{State: msgs.StateConnected}, msg)

	require.Error(t, r.Publish(context.Background(), &msgs.Calibrate{}))
}

func TestRegistrarPostsCommands(t *testing.T) {
	rw := newChanReadWriter()
	var r Registrar
	r.Init(rw)

	received := make(chan fx.Message, 1)
	loop := fx.NewLoop(time.Hour)
	loop.AddController(fx.PrLvControl, fx.ControlFunc(func(cc fx.ControlContext) error {
		for _, msg := range cc.Messages() {
			received <- msg
		}
		return nil
	}))
	loop.Add(&r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	event, err := msgs.Encode(&msgs.Calibration{Lsb: []float64{1}})
	require.NoError(t, err)
	rw.in <- []byte("garbage\xff")
	rw.in <- event
	cmd, err := msgs.Encode(&msgs.Calibrate{})
	require.NoError(t, err)
	rw.in <- cmd

	select {
	case msg := <-received:
		require.Equal(t, &msgs.Calibrate{}, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("command not posted")
	}
}

func TestPublisherMux(t *testing.T) {
	var got []msgs.SerializableMessage
	failure := errors.New("failure")
	mux := &PublisherMux{}
	mux.Add(publisherFunc(func(_ context.Context, msg msgs.SerializableMessage) error {
		got = append(got, msg)
		return nil
	}), publisherFunc(func(context.Context, msgs.SerializableMessage) error {
		return failure
	}))
	msg := &msgs.SensorStatus{State: msgs.StateOffline}
	err := mux.Publish(context.Background(), msg)
	require.True(t, errors.Is(err, failure))
	require.Equal(t, []msgs.SerializableMessage{msg}, got)
}

func TestEventJSON(t *testing.T) {
	ref := SensorRef{Type: "dynpick", ID: "abc"}
	require.True(t, ref.IsValid())
	w := msgs.NewWrench(9, time.Unix(1, 0), sensor.Data{1, 2, 3, 4, 5, 6}, true)
	data, err := EncodeEvent(ref, w)
	require.NoError(t, err)
	ev, msg, err := DecodeEvent(data)
	require.NoError(t, err)
	require.Equal(t, "wrench", ev.Type)
	require.Equal(t, "dynpick/abc", ev.Sensor)
	require.Equal(t, w, msg)

	_, err = EncodeEvent(ref, &msgs.Calibrate{})
	require.Error(t, err)
	_, _, err = DecodeEvent([]byte(`{"type":"nope","data":{}}`))
	require.Error(t, err)
}

func TestPipeStopsWithContext(t *testing.T) {
	rw := newChanReadWriter()
	pipe := NewPipe(rw)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- pipe.Run(ctx) }()
	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("pipe not stopped")
	}
}
