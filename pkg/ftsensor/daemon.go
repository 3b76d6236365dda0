package ftsensor

import (
	"context"
	"net/http"

	"github.com/golang/glog"

	"github.com/robotalks/ftsense/pkg/comm"
	"github.com/robotalks/ftsense/pkg/comm/mqtt"
	rediscomm "github.com/robotalks/ftsense/pkg/comm/redis"
	"github.com/robotalks/ftsense/pkg/comm/websocket"
	fx "github.com/robotalks/ftsense/pkg/framework"
	"github.com/robotalks/ftsense/pkg/metrics"
)

// Daemon is a sensor controller wired to the configured publishers.
type Daemon struct {
	Config      *Config
	Controller  *Controller
	Recorder    *metrics.Recorder
	Broadcaster *websocket.Broadcaster
	Publishers  comm.PublisherMux
	Loop        *fx.Loop

	mux *http.ServeMux
}

// NewDaemon creates the publishers enabled in the config.
func (c *Config) NewDaemon(ctx context.Context) (*Daemon, error) {
	ref := c.Ref()
	d := &Daemon{
		Config:   c,
		Recorder: metrics.NewRecorder(ref.Name()),
		mux:      http.NewServeMux(),
	}
	d.Recorder.Register(d.mux)

	if c.MQTTURL != "" {
		registrar, err := mqtt.NewRegistrar(c.MQTTURL, c.Info())
		if err != nil {
			return nil, err
		}
		d.Publishers.Add(registrar)
		glog.Infof("publish to MQTT %s", c.MQTTURL)
	}
	if c.RedisURL != "" {
		pub, err := rediscomm.NewPublisher(ctx, c.RedisURL, ref)
		if err != nil {
			return nil, err
		}
		d.Publishers.Add(pub)
		glog.Infof("publish to Redis %s", c.RedisURL)
	}
	if c.Listen != "" {
		d.Broadcaster = websocket.NewBroadcaster(ref)
		d.mux.Handle("/ws", d.Broadcaster.Handler())
		d.Publishers.Add(d.Broadcaster)
	}

	d.Controller = c.NewController(&d.Publishers)
	d.Controller.Recorder = d.Recorder
	d.Loop = fx.NewLoop(c.Interval).Add(&d.Publishers, d.Controller)
	if c.Listen != "" {
		d.Loop.AddRunnable(fx.NamedRun("http", fx.RunFunc(d.serveHTTP)))
	}
	return d, nil
}

// Handler serves /ws, /metrics and /health.
func (d *Daemon) Handler() http.Handler {
	return d.mux
}

// Run implements Runnable. The sensor is closed when the loop exits.
func (d *Daemon) Run(ctx context.Context) error {
	glog.Infof("sensor %s on %s, interval %v", d.Config.Ref().Name(), d.Config.Port, d.Config.Interval)
	defer func() {
		if err := d.Controller.Close(); err != nil {
			glog.Warningf("close sensor: %v", err)
		}
	}()
	return d.Loop.Run(ctx)
}

func (d *Daemon) serveHTTP(ctx context.Context) error {
	server := &http.Server{Addr: d.Config.Listen, Handler: d.mux}
	glog.Infof("serve HTTP on %s", d.Config.Listen)
	return fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
}
