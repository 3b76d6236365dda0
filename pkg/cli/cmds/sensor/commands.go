package sensor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ftsense/pkg/cli/sh"
	"github.com/robotalks/ftsense/pkg/msgs"
	"github.com/robotalks/ftsense/pkg/sensor"
	"github.com/robotalks/ftsense/pkg/sensor/dynpick"
)

// RawFrame is the printable raw response.
type RawFrame struct {
	Command string `json:"command"`
	Frame   string `json:"frame"`
	Len     int    `json:"len"`
}

// ParseReadArgs parses COUNT and INTERVAL of the read command.
func ParseReadArgs(args []string, interval time.Duration) (count int, _ time.Duration, err error) {
	count = 1
	if len(args) > 0 {
		if count, err = strconv.Atoi(args[0]); err != nil || count <= 0 {
			return 0, 0, fmt.Errorf("invalid COUNT %q", args[0])
		}
	}
	if len(args) > 1 {
		if interval, err = time.ParseDuration(args[1]); err != nil || interval < 0 {
			return 0, 0, fmt.Errorf("invalid INTERVAL %q", args[1])
		}
	}
	return count, interval, nil
}

// ParseLsb parses six coefficients.
func ParseLsb(args []string) (lsb dynpick.Lsb, err error) {
	if len(args) != sensor.DataCount {
		return lsb, fmt.Errorf("%d coefficients required", sensor.DataCount)
	}
	for n, arg := range args {
		if lsb[n], err = strconv.ParseFloat(arg, 64); err != nil {
			return lsb, fmt.Errorf("invalid coefficient %q", arg)
		}
	}
	return lsb, lsb.Validate()
}

var (
	// ReadCmd reads measurements.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[COUNT [INTERVAL]]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			count, interval, err := ParseReadArgs(c.Args, s.Config.Interval)
			if err != nil {
				c.Err(err)
				return
			}
			calibrated := s.Status().Calibrated
			for n := 1; n <= count; n++ {
				if n > 1 {
					time.Sleep(interval)
				}
				data, err := s.Sensor.ReadData()
				if err != nil {
					c.Err(err)
					continue
				}
				w := msgs.NewWrench(uint64(n), time.Now(), data, calibrated)
				s.Output(c, w, data.String())
			}
		}),
	}

	// RawCmd sends one command and prints the raw response.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "[COMMAND]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			cmd := sensor.CmdRequestSendDataOnce
			if len(c.Args) > 0 {
				var err error
				if cmd, err = sensor.ParseCommand(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			f, err := s.Sensor.ReadBuffer(cmd)
			if err != nil {
				c.Err(err)
				return
			}
			raw := RawFrame{Command: cmd.String(), Frame: f.String(), Len: f.Len()}
			s.Output(c, raw, strconv.Quote(raw.Frame))
		}),
	}

	// CalibrateCmd fetches calibration from the device again.
	CalibrateCmd = ishell.Cmd{
		Name:    "calibrate",
		Aliases: []string{"cal"},
		Help:    "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if err := s.Sensor.Init(); err != nil {
				c.Err(err)
				return
			}
			st := s.Status()
			s.Output(c, st, sh.FormatStatus(st))
		}),
	}

	// LsbCmd shows or overrides the DynPick coefficients.
	LsbCmd = ishell.Cmd{
		Name: "lsb",
		Help: "[FX FY FZ TX TY TZ]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			d, ok := s.Sensor.(*dynpick.DynPick)
			if !ok {
				c.Err(fmt.Errorf("model %s has no coefficients", s.Config.Model))
				return
			}
			if len(c.Args) > 0 {
				lsb, err := ParseLsb(c.Args)
				if err != nil {
					c.Err(err)
					return
				}
				if err = d.SetLsb(lsb); err != nil {
					c.Err(err)
					return
				}
			}
			lsb := d.Lsb()
			items := make([]string, len(lsb))
			for n, v := range lsb {
				items[n] = strconv.FormatFloat(v, 'f', -1, 64)
			}
			s.Output(c, lsb, strings.Join(items, " "))
		}),
	}
)

func init() {
	sh.AddCmds(
		&ReadCmd,
		&RawCmd,
		&CalibrateCmd,
		&LsbCmd,
	)
}
