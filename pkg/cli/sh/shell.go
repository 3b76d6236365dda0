package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/ftsense/pkg/comm"
	"github.com/robotalks/ftsense/pkg/comm/mqtt"
	"github.com/robotalks/ftsense/pkg/ftsensor"
	"github.com/robotalks/ftsense/pkg/sensor"
	"github.com/robotalks/ftsense/pkg/serial"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *ftsensor.Config
	Sensor sensor.ForceSensor

	queue *mqtt.Queue
}

// Status is the printable state of the local sensor.
type Status struct {
	Port       string    `json:"port"`
	Model      string    `json:"model"`
	Open       bool      `json:"open"`
	Calibrated bool      `json:"calibrated"`
	Lsb        []float64 `json:"lsb,omitempty"`
	sensor.Stats
	LastError string `json:"last-error,omitempty"`
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&StatusCmd,
		&ModelsCmd,
		&DriversCmd,
		&DiscoverCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *ftsensor.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an open sensor.
// The configured sensor is opened if not yet.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if err := ShellFrom(c).Open(); err != nil {
			c.Err(fmt.Errorf("open sensor: %w", err))
			return
		}
		fn(c)
	}
}

// FormatInfo prints SensorInfo into friendly string for display.
func FormatInfo(info comm.SensorInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Port != "" {
		fmt.Fprintf(&w, " (%s)", info.Meta.Port)
	}
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	return w.String()
}

// Output prints v in JSON if requested, otherwise text.
func (s *Shell) Output(c *ishell.Context, v interface{}, text string) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Open opens the sensor configured by flags and fetches calibration.
// A failed calibration only fails Open when calibration is required.
func (s *Shell) Open() error {
	if s.Sensor != nil {
		return nil
	}
	cfg, err := s.Config.SerialConfig()
	if err != nil {
		return err
	}
	fs, err := sensor.NewModel(s.Config.Model, serial.NewPort(cfg), s.Config.Options())
	if err != nil {
		return err
	}
	if err = fs.Open(); err != nil {
		return err
	}
	if err = fs.Init(); err != nil {
		if s.Config.RequireCalibration {
			fs.Close()
			return err
		}
		glog.Warningf("sensor init: %v", err)
	}
	s.Sensor = fs
	s.setPrompt(fmt.Sprintf("%s@%s > ", s.Config.Model, s.Config.Port))
	return nil
}

// Close closes the sensor if open.
func (s *Shell) Close() error {
	if s.Sensor == nil {
		return nil
	}
	err := s.Sensor.Close()
	s.Sensor = nil
	s.setPrompt(closedPrompt)
	return err
}

// Status reports the state of the local sensor.
func (s *Shell) Status() Status {
	st := Status{Port: s.Config.Port, Model: s.Config.Model}
	if s.Sensor == nil {
		return st
	}
	st.Open = s.Sensor.IsOpen()
	st.Stats = s.Sensor.Stats()
	if err := s.Sensor.LastError(); err != nil {
		st.LastError = err.Error()
	}
	if cal, ok := s.Sensor.(sensor.Calibrator); ok {
		st.Calibrated = cal.Calibrated()
		st.Lsb = cal.Coefficients()
	}
	return st
}

// Queue returns the MQTT queue connected to the configured broker.
func (s *Shell) Queue() (*mqtt.Queue, error) {
	if s.queue != nil {
		return s.queue, nil
	}
	if s.Config.MQTTURL == "" {
		return nil, fmt.Errorf("MQTT broker required, use -mqtt")
	}
	q, err := mqtt.NewQueueFromURL(s.Config.MQTTURL)
	if err != nil {
		return nil, err
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	s.queue = q
	return q, nil
}

// DiscoverSensors discovers sensors announced on the broker.
func (s *Shell) DiscoverSensors(filter func(comm.SensorInfo) bool) ([]comm.SensorInfo, error) {
	q, err := s.Queue()
	if err != nil {
		return nil, err
	}
	infoList, err := mqtt.Discover(context.TODO(), q, mqtt.DefaultDiscoverTimeout)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		items := make([]comm.SensorInfo, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return infoList, nil
}

// SelectSensor discovers sensors and asks for a choice.
func (s *Shell) SelectSensor(filter func(comm.SensorInfo) bool) (*comm.SensorInfo, error) {
	infoList, err := s.DiscoverSensors(filter)
	if err != nil || len(infoList) == 0 {
		return nil, err
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 sensors discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one?")
	}
	return &infoList[index], nil
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

func (s *Shell) shutdown() {
	if err := s.Close(); err != nil {
		glog.Warningf("close: %v", err)
	}
	if s.queue != nil {
		s.queue.Close()
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.shutdown()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens the local sensor.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PORT]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				if err := s.Close(); err != nil {
					c.Err(err)
				}
				s.Config.Port = c.Args[0]
			}
			if err := s.Open(); err != nil {
				c.Err(err)
				return
			}
			st := s.Status()
			s.Output(c, st, fmt.Sprintf("opened %s, calibrated: %v", st.Port, st.Calibrated))
		},
	}

	// CloseCmd closes the local sensor.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Close(); err != nil {
				c.Err(err)
			}
		},
	}

	// StatusCmd shows the state of the local sensor.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Status()
			s.Output(c, st, FormatStatus(st))
		},
	}

	// ModelsCmd lists sensor models.
	ModelsCmd = ishell.Cmd{
		Name: "models",
		Help: "",
		Func: func(c *ishell.Context) {
			models := sensor.Models()
			ShellFrom(c).Output(c, models, strings.Join(models, "\n"))
		},
	}

	// DriversCmd lists serial drivers.
	DriversCmd = ishell.Cmd{
		Name: "drivers",
		Help: "",
		Func: func(c *ishell.Context) {
			drivers := serial.Drivers()
			ShellFrom(c).Output(c, drivers, strings.Join(drivers, "\n"))
		},
	}

	// DiscoverCmd discovers sensors on the MQTT broker.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "[TYPE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var filter func(comm.SensorInfo) bool
			if len(c.Args) > 0 {
				filter = func(info comm.SensorInfo) bool {
					return info.Ref.Type == c.Args[0]
				}
			}
			infoList, err := s.DiscoverSensors(filter)
			if err != nil {
				c.Err(err)
				return
			}
			if len(infoList) == 0 {
				// in case infoList is nil, make it empty slice.
				infoList = []comm.SensorInfo{}
			}
			lines := make([]string, 0, len(infoList))
			for _, info := range infoList {
				lines = append(lines, FormatInfo(info))
			}
			if len(lines) == 0 {
				lines = append(lines, "No sensors found")
			}
			s.Output(c, infoList, strings.Join(lines, "\n"))
		},
	}
)

// FormatStatus prints Status for display.
func FormatStatus(st Status) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s %s", st.Model, st.Port)
	if !st.Open {
		w.WriteString(" closed")
		return w.String()
	}
	fmt.Fprintf(&w, " open, calibrated: %v", st.Calibrated)
	if len(st.Lsb) > 0 {
		fmt.Fprintf(&w, "\nlsb: %v", st.Lsb)
	}
	fmt.Fprintf(&w, "\nreads: %d ok, %d failed of %d", st.Successes, st.Failures, st.Attempts)
	if st.LastError != "" {
		fmt.Fprintf(&w, "\nlast error: %s", st.LastError)
	}
	return w.String()
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := ftsensor.NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).Run(flag.Args()...)
}
