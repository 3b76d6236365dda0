package remote

import (
	"context"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ftsense/pkg/cli/sh"
	"github.com/robotalks/ftsense/pkg/comm"
	"github.com/robotalks/ftsense/pkg/comm/mqtt"
	"github.com/robotalks/ftsense/pkg/msgs"
)

// selectRef resolves TYPE ID from args, or discovers one.
func selectRef(c *ishell.Context) (ref comm.SensorRef, err error) {
	if len(c.Args) >= 2 {
		return comm.SensorRef{Type: c.Args[0], ID: c.Args[1]}, nil
	}
	var filter func(comm.SensorInfo) bool
	if len(c.Args) == 1 {
		filter = func(info comm.SensorInfo) bool {
			return info.Ref.Type == c.Args[0]
		}
	}
	info, err := sh.ShellFrom(c).SelectSensor(filter)
	if err != nil {
		return ref, err
	}
	if info == nil {
		return ref, fmt.Errorf("no sensor discovered")
	}
	return info.Ref, nil
}

var (
	// RecalibrateCmd asks a remote daemon to fetch calibration again.
	RecalibrateCmd = ishell.Cmd{
		Name:    "recalibrate",
		Aliases: []string{"rcal"},
		Help:    "[TYPE [ID]]",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			ref, err := selectRef(c)
			if err != nil {
				c.Err(err)
				return
			}
			q, err := s.Queue()
			if err != nil {
				c.Err(err)
				return
			}
			if err := mqtt.SendCommand(q, ref, &msgs.Calibrate{}); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// WatchCmd prints events of a remote sensor.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "TYPE ID [COUNT]",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("TYPE ID required"))
				return
			}
			count := 10
			if len(c.Args) > 2 {
				n, err := strconv.Atoi(c.Args[2])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid COUNT %q", c.Args[2]))
					return
				}
				count = n
			}
			q, err := s.Queue()
			if err != nil {
				c.Err(err)
				return
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			eventCh := make(chan []byte, count)
			go mqtt.Watch(ctx, q, comm.SensorRef{Type: c.Args[0], ID: c.Args[1]},
				func(ref comm.SensorRef, msg msgs.SerializableMessage) {
					data, err := comm.EncodeEvent(ref, msg)
					if err != nil {
						return
					}
					select {
					case eventCh <- data:
					case <-ctx.Done():
					}
				})
			for n := 0; n < count; n++ {
				c.Println(string(<-eventCh))
			}
		},
	}
)

func init() {
	sh.AddCmds(
		&RecalibrateCmd,
		&WatchCmd,
	)
}
