// Package redis publishes sensor events to Redis.
//
// Every event is published as JSON to the channel, and wrenches are
// also pushed to a capped list "<channel>:<type>:<id>:wrench" keeping
// the most recent samples.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"

	"github.com/robotalks/ftsense/pkg/comm"
	"github.com/robotalks/ftsense/pkg/msgs"
)

// Defaults.
const (
	DefaultChannel = "ftsense"
	DefaultHistory = 1000
)

// Publisher implements comm.Publisher with Redis Pub/Sub.
type Publisher struct {
	Ref     comm.SensorRef
	Channel string
	// History is the length of the wrench list, 0 disables it.
	History int64

	client *redis.Client
}

// NewPublisher creates a Publisher from a URL like redis://host:6379/0.
func NewPublisher(ctx context.Context, redisURL string, ref comm.SensorRef) (*Publisher, error) {
	client, err := Connect(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		Ref:     ref,
		Channel: DefaultChannel,
		History: DefaultHistory,
		client:  client,
	}, nil
}

// NewPublisherWithClient creates a Publisher on a connected client.
func NewPublisherWithClient(client *redis.Client, ref comm.SensorRef) *Publisher {
	return &Publisher{Ref: ref, Channel: DefaultChannel, History: DefaultHistory, client: client}
}

// Connect creates a client and checks the server is reachable.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// HistoryKey is the list of recent wrenches.
func (p *Publisher) HistoryKey() string {
	return p.Channel + ":" + p.Ref.Name() + ":wrench"
}

// Publish implements comm.Publisher.
func (p *Publisher) Publish(ctx context.Context, msg msgs.SerializableMessage) error {
	data, err := comm.EncodeEvent(p.Ref, msg)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.Channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	if _, ok := msg.(*msgs.Wrench); ok && p.History > 0 {
		pipe := p.client.Pipeline()
		pipe.LPush(ctx, p.HistoryKey(), data)
		pipe.LTrim(ctx, p.HistoryKey(), 0, p.History-1)
		if _, err := pipe.Exec(ctx); err != nil {
			glog.Warningf("redis history: %v", err)
		}
	}
	return nil
}

// Recent returns up to n most recent wrenches, newest first.
func (p *Publisher) Recent(ctx context.Context, n int64) ([]*msgs.Wrench, error) {
	items, err := p.client.LRange(ctx, p.HistoryKey(), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	res := make([]*msgs.Wrench, 0, len(items))
	for _, item := range items {
		var ev comm.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, err
		}
		var w msgs.Wrench
		if err := json.Unmarshal(ev.Data, &w); err != nil {
			return nil, err
		}
		res = append(res, &w)
	}
	return res, nil
}

// Close implements io.Closer.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// Run implements Runnable, closing the client when ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	<-ctx.Done()
	p.Close()
	return ctx.Err()
}

// EventHandler receives decoded events.
type EventHandler func(ev *comm.Event, msg msgs.SerializableMessage)

// Watch subscribes the channel until ctx is done.
func Watch(ctx context.Context, client *redis.Client, channel string, handler EventHandler) error {
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			ev, msg, err := comm.DecodeEvent([]byte(m.Payload))
			if err != nil {
				glog.V(2).Infof("redis %s: %v", channel, err)
				continue
			}
			handler(ev, msg)
		}
	}
}
