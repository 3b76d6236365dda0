package ftsensor

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ftsense/pkg/comm"
	fx "github.com/robotalks/ftsense/pkg/framework"
	"github.com/robotalks/ftsense/pkg/metrics"
	"github.com/robotalks/ftsense/pkg/msgs"
	"github.com/robotalks/ftsense/pkg/sensor"
	"github.com/robotalks/ftsense/pkg/serial"
)

// Controller samples the sensor once per loop iteration.
//
// The port is (re)opened lazily: when opening fails, or reads keep
// failing, the sensor is closed and opened again after ReopenDelay.
// All sensor access happens on the loop goroutine.
type Controller struct {
	Config    *Config
	Publisher comm.Publisher
	Recorder  *metrics.Recorder

	sensor    sensor.ForceSensor
	reopenAt  time.Time
	failures  int
	seq       uint64
	calibrate bool
	stats     sensor.Stats

	status        msgs.SensorStatus
	statusChanged bool
	statusAt      time.Time
}

// NewController creates a controller using the config.
func (c *Config) NewController(pub comm.Publisher) *Controller {
	return &Controller{
		Config:    c,
		Publisher: pub,
		status: msgs.SensorStatus{
			State: msgs.StateOffline,
			Model: c.Model,
			Port:  c.Port,
		},
		statusChanged: true,
	}
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, c)
	loop.AddController(fx.PrLvPublish, fx.ControlFunc(c.notifyStatus))
}

// Control implements Controller.
func (c *Controller) Control(cc fx.ControlContext) error {
	for _, msg := range cc.Messages() {
		if _, ok := msg.(*msgs.Calibrate); ok {
			c.calibrate = true
		}
	}
	if c.sensor == nil {
		if cc.Time().Before(c.reopenAt) {
			return nil
		}
		if err := c.open(cc.Context()); err != nil {
			c.reopenAt = cc.Time().Add(c.Config.ReopenDelay)
			return err
		}
	}
	if c.calibrate {
		c.calibrate = false
		c.init(cc.Context())
	}

	start := time.Now()
	data, err := c.sensor.ReadData()
	if c.Recorder != nil {
		c.Recorder.ObserveRead(time.Since(start), err)
	}
	if err != nil {
		c.failures++
		c.setState(msgs.StateFailing, err)
		if c.failures >= c.Config.MaxFailures {
			glog.Warningf("%d consecutive failures, reopen %s", c.failures, c.Config.Port)
			if err := c.closeSensor(); err != nil {
				glog.Warningf("close %s: %v", c.Config.Port, err)
			}
			c.reopenAt = cc.Time().Add(c.Config.ReopenDelay)
		}
		return err
	}
	c.failures = 0
	c.seq++
	c.setState(c.readyState(), nil)
	c.publish(cc.Context(), msgs.NewWrench(c.seq, cc.Time(), data, c.status.Calibrated))
	return nil
}

// Close closes the sensor. It must not be called while the loop is running.
func (c *Controller) Close() error {
	return c.closeSensor()
}

// Status returns the current status.
func (c *Controller) Status() msgs.SensorStatus {
	st := c.status
	stats := c.currentStats()
	st.Attempts, st.Successes, st.Failures = stats.Attempts, stats.Successes, stats.Failures
	return st
}

func (c *Controller) open(ctx context.Context) error {
	cfg, err := c.Config.SerialConfig()
	if err != nil {
		return err
	}
	s, err := sensor.NewModel(c.Config.Model, serial.NewPort(cfg), c.Config.Options())
	if err != nil {
		return err
	}
	if err = s.Open(); err != nil {
		c.setState(msgs.StateOffline, err)
		return err
	}
	glog.Infof("sensor %s opened on %s", c.Config.Model, cfg)
	c.sensor, c.failures = s, 0
	if err = c.init(ctx); err != nil && c.Config.RequireCalibration {
		if cerr := c.closeSensor(); cerr != nil {
			glog.Warningf("close %s: %v", c.Config.Port, cerr)
		}
		c.setState(msgs.StateFailing, err)
		return err
	}
	c.setState(c.readyState(), nil)
	return nil
}

func (c *Controller) init(ctx context.Context) error {
	err := c.sensor.Init()
	if err != nil {
		glog.Warningf("sensor init: %v", err)
	}
	if cal, ok := c.sensor.(sensor.Calibrator); ok {
		c.status.Calibrated = cal.Calibrated()
		if c.status.Calibrated {
			c.publish(ctx, &msgs.Calibration{Lsb: cal.Coefficients()})
		} else if !c.Config.RequireCalibration {
			glog.Warning("sensor not calibrated, readings are not in physical units")
		}
	} else if err == nil {
		c.status.Calibrated = true
	}
	c.statusChanged = true
	return err
}

func (c *Controller) closeSensor() error {
	if c.sensor == nil {
		return nil
	}
	stats := c.sensor.Stats()
	c.stats.Attempts += stats.Attempts
	c.stats.Successes += stats.Successes
	c.stats.Failures += stats.Failures
	err := c.sensor.Close()
	c.sensor = nil
	c.status.Calibrated = false
	c.setState(msgs.StateOffline, nil)
	return err
}

func (c *Controller) currentStats() sensor.Stats {
	stats := c.stats
	if c.sensor != nil {
		s := c.sensor.Stats()
		stats.Attempts += s.Attempts
		stats.Successes += s.Successes
		stats.Failures += s.Failures
	}
	return stats
}

func (c *Controller) readyState() string {
	if c.status.Calibrated {
		return msgs.StateCalibrated
	}
	return msgs.StateConnected
}

func (c *Controller) setState(state string, err error) {
	var lastErr string
	if err != nil {
		lastErr = err.Error()
	} else if state == msgs.StateFailing || state == msgs.StateOffline {
		lastErr = c.status.LastError
	}
	if state != c.status.State || lastErr != c.status.LastError {
		c.status.State, c.status.LastError = state, lastErr
		c.statusChanged = true
	}
}

func (c *Controller) notifyStatus(cc fx.ControlContext) error {
	if !c.statusChanged && cc.Time().Sub(c.statusAt) < c.Config.StatusPeriod {
		return nil
	}
	c.statusChanged, c.statusAt = false, cc.Time()
	st := c.Status()
	c.publish(cc.Context(), &st)
	return nil
}

func (c *Controller) publish(ctx context.Context, msg msgs.SerializableMessage) {
	if c.Recorder != nil {
		c.Recorder.Publish(ctx, msg)
	}
	if c.Publisher == nil {
		return
	}
	if err := c.Publisher.Publish(ctx, msg); err != nil {
		glog.Warningf("publish %x: %v", msg.TypeID(), err)
	}
}
