// Package ftsensor runs a force/torque sensor inside a sampling loop and
// publishes its measurements.
package ftsensor

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/ftsense/pkg/comm"
	"github.com/robotalks/ftsense/pkg/env"
	"github.com/robotalks/ftsense/pkg/sensor"
	"github.com/robotalks/ftsense/pkg/serial"
	"github.com/robotalks/ftsense/pkg/sim"
)

// Limits and defaults.
const (
	MinInterval          = 20 * time.Millisecond
	DefaultInterval      = 500 * time.Millisecond
	DefaultResponseDelay = 2 * time.Millisecond
	DefaultReopenDelay   = time.Second
	DefaultStatusPeriod  = 10 * time.Second
	DefaultMaxFailures   = 3
)

// Config defines the configurations of a sensor daemon.
type Config struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud"`
	DataBits int    `yaml:"databits"`
	// StopBits is the numeric stop bits code, see serial.StopBitsFromCode.
	StopBits int    `yaml:"stopbits"`
	Parity   string `yaml:"parity"`
	Driver   string `yaml:"driver"`
	Sim      bool   `yaml:"sim"`

	Model              string        `yaml:"model"`
	Interval           time.Duration `yaml:"interval"`
	Retries            int           `yaml:"retries"`
	ResponseDelay      time.Duration `yaml:"response-delay"`
	RequireCalibration bool          `yaml:"require-calibration"`
	// MaxFailures is the number of consecutive failed reads before
	// the port is reopened.
	MaxFailures  int           `yaml:"max-failures"`
	ReopenDelay  time.Duration `yaml:"reopen-delay"`
	StatusPeriod time.Duration `yaml:"status-period"`

	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	MQTTURL     string `yaml:"mqtt"`
	Listen      string `yaml:"listen"`
	RedisURL    string `yaml:"redis"`
}

var (
	defaultConfig = Config{
		Port:          "/dev/ttyUSB0",
		BaudRate:      921600,
		DataBits:      8,
		StopBits:      0,
		Parity:        "N",
		Model:         "dynpick",
		Interval:      DefaultInterval,
		Retries:       sensor.DefaultMaxRetries,
		ResponseDelay: DefaultResponseDelay,
		MaxFailures:   DefaultMaxFailures,
		ReopenDelay:   DefaultReopenDelay,
		StatusPeriod:  DefaultStatusPeriod,
	}

	configFile string
)

func init() {
	defaultConfig.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) {
	if val := getenv("FTSENSE_PORT"); val != "" {
		c.Port = val
	}
	if val := getenv("FTSENSE_MQTT_URL"); val != "" {
		c.MQTTURL = val
	}
	if val := getenv("FTSENSE_ID"); val != "" {
		c.ID = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	defaultConfig.SetupFlags(flag.CommandLine)
	flag.StringVar(&configFile, "config", configFile, "YAML config file, overridden by flags.")
}

// SetupFlags binds flags to the config.
func (c *Config) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Port, "port", c.Port, "Serial port.")
	fs.IntVar(&c.BaudRate, "baud", c.BaudRate, "Baud rate.")
	fs.IntVar(&c.DataBits, "databits", c.DataBits, "Data bits.")
	fs.IntVar(&c.StopBits, "stopbits", c.StopBits, "Stop bits code: 0 or 3 for 1, 1 for 1.5, 2 for 2.")
	fs.StringVar(&c.Parity, "parity", c.Parity, "Parity: N, O or E.")
	fs.StringVar(&c.Driver, "driver", c.Driver, fmt.Sprintf("Serial driver %v, empty for %s.", serial.Drivers(), serial.DefaultDriver()))
	fs.BoolVar(&c.Sim, "sim", c.Sim, "Use the emulated sensor.")
	fs.StringVar(&c.Model, "model", c.Model, fmt.Sprintf("Sensor model %v.", sensor.Models()))
	fs.DurationVar(&c.Interval, "interval", c.Interval, "Sampling interval, at least 20ms.")
	fs.IntVar(&c.Retries, "retries", c.Retries, "Retries of each read.")
	fs.DurationVar(&c.ResponseDelay, "response-delay", c.ResponseDelay, "Wait between request and response.")
	fs.BoolVar(&c.RequireCalibration, "require-calibration", c.RequireCalibration, "Refuse to sample without calibration.")
	fs.IntVar(&c.MaxFailures, "max-failures", c.MaxFailures, "Consecutive failed reads before reopening the port.")
	fs.StringVar(&c.ID, "id", c.ID, "Sensor ID, default derived from machine ID.")
	fs.StringVar(&c.Description, "desc", c.Description, "Sensor description.")
	fs.StringVar(&c.MQTTURL, "mqtt", c.MQTTURL, "MQTT broker URL, e.g. mqtt://localhost:1883/ftsense/.")
	fs.StringVar(&c.Listen, "listen", c.Listen, "HTTP address for /ws, /metrics and /health.")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "Redis URL, e.g. redis://localhost:6379/0.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults, the config file and flags.
// It must be called after flag.Parse.
func NewConfig() (*Config, error) {
	if configFile != "" {
		if err := defaultConfig.LoadFile(configFile); err != nil {
			return nil, err
		}
		// flags win over file
		flag.Parse()
	}
	conf := defaultConfig
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// LoadFile loads YAML config over current values.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config %s: %w", fn, err)
	}
	return nil
}

// Validate checks the config and fills in derived defaults.
func (c *Config) Validate() error {
	if !knownModel(c.Model) {
		return fmt.Errorf("%w %q, available %v", sensor.ErrUnknownModel, c.Model, sensor.Models())
	}
	if _, err := c.SerialConfig(); err != nil {
		return err
	}
	if c.Interval < MinInterval {
		glog.Warningf("interval %v too short, using %v", c.Interval, MinInterval)
		c.Interval = MinInterval
	}
	if c.Retries < 0 {
		return fmt.Errorf("invalid retries %d", c.Retries)
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.ReopenDelay <= 0 {
		c.ReopenDelay = DefaultReopenDelay
	}
	if c.StatusPeriod <= 0 {
		c.StatusPeriod = DefaultStatusPeriod
	}
	if c.ID == "" {
		c.ID = env.DefaultID()
	}
	return nil
}

func knownModel(name string) bool {
	for _, model := range sensor.Models() {
		if model == name {
			return true
		}
	}
	return false
}

// SerialConfig converts to serial settings.
func (c *Config) SerialConfig() (cfg serial.Config, err error) {
	stopBits, err := serial.StopBitsFromCode(c.StopBits)
	if err != nil {
		return cfg, err
	}
	parity, err := serial.ParseParity(c.Parity)
	if err != nil {
		return cfg, err
	}
	cfg = serial.Config{
		PortName: c.Port,
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		StopBits: stopBits,
		Parity:   parity,
		Driver:   c.Driver,
	}
	if c.Sim {
		cfg.Driver = sim.DriverName
	}
	return cfg, cfg.Validate()
}

// Options returns the acquisition options.
func (c *Config) Options() sensor.Options {
	return sensor.Options{ResponseDelay: c.ResponseDelay, MaxRetries: c.Retries}
}

// Ref returns the reference used to publish events.
func (c *Config) Ref() comm.SensorRef {
	return comm.SensorRef{Type: c.Model, ID: c.ID}
}

// Info returns the information announced to consumers.
func (c *Config) Info() comm.SensorInfo {
	return comm.SensorInfo{
		Ref: c.Ref(),
		Meta: comm.SensorMeta{
			Description: c.Description,
			Port:        c.Port,
			Interval:    c.Interval.String(),
		},
	}
}
