package ftsensor

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ftsense/pkg/sensor"
	"github.com/robotalks/ftsense/pkg/serial"
	"github.com/robotalks/ftsense/pkg/sim"
)

func TestApplyEnv(t *testing.T) {
	conf := Config{Port: "/dev/ttyUSB0"}
	env := map[string]string{
		"FTSENSE_PORT":     "/dev/ttyS1",
		"FTSENSE_MQTT_URL": "mqtt://broker:1883/",
	}
	conf.applyEnv(func(name string) string { return env[name] })
	require.Equal(t, "/dev/ttyS1", conf.Port)
	require.Equal(t, "mqtt://broker:1883/", conf.MQTTURL)
	require.Empty(t, conf.ID)
}

func TestLoadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "ftsense.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
port: /dev/ttyS3
baud: 115200
parity: E
stopbits: 2
interval: 100ms
response-delay: 5ms
require-calibration: true
id: bench
`), 0644))
	conf := *Default()
	require.NoError(t, conf.LoadFile(fn))
	require.Equal(t, "/dev/ttyS3", conf.Port)
	require.Equal(t, 115200, conf.BaudRate)
	require.Equal(t, 100*time.Millisecond, conf.Interval)
	require.Equal(t, 5*time.Millisecond, conf.ResponseDelay)
	require.True(t, conf.RequireCalibration)
	require.Equal(t, "dynpick", conf.Model)

	cfg, err := conf.SerialConfig()
	require.NoError(t, err)
	require.Equal(t, serial.ParityEven, cfg.Parity)
	require.Equal(t, serial.TwoStopBits, cfg.StopBits)

	require.Error(t, conf.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("interval: [1"), 0644))
	require.Error(t, conf.LoadFile(bad))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name  string
		patch func(*Config)
		valid bool
	}{
		{"default", func(*Config) {}, true},
		{"parity", func(c *Config) { c.Parity = "X" }, false},
		{"stopbits", func(c *Config) { c.StopBits = 4 }, false},
		{"databits", func(c *Config) { c.DataBits = 9 }, false},
		{"retries", func(c *Config) { c.Retries = -1 }, false},
		{"no retries", func(c *Config) { c.Retries = 0 }, true},
		{"model", func(c *Config) { c.Model = "dynpik" }, false},
		{"no model", func(c *Config) { c.Model = "" }, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := *Default()
			tc.patch(&conf)
			err := conf.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	conf := Config{
		Model:    "dynpick",
		Port:     "/dev/ttyUSB0",
		BaudRate: 921600,
		DataBits: 8,
		Parity:   "N",
		Interval: time.Millisecond,
	}
	require.NoError(t, conf.Validate())
	require.Equal(t, MinInterval, conf.Interval)
	require.Equal(t, DefaultMaxFailures, conf.MaxFailures)
	require.Equal(t, DefaultReopenDelay, conf.ReopenDelay)
	require.Equal(t, DefaultStatusPeriod, conf.StatusPeriod)
	require.NotEmpty(t, conf.ID)
}

func TestValidateUnknownModel(t *testing.T) {
	conf := *Default()
	conf.Model = "ati"
	err := conf.Validate()
	require.ErrorIs(t, err, sensor.ErrUnknownModel)
	require.Contains(t, err.Error(), `"ati"`)
}

func TestSerialConfigSim(t *testing.T) {
	conf := *Default()
	conf.Driver = "termios"
	conf.Sim = true
	cfg, err := conf.SerialConfig()
	require.NoError(t, err)
	require.Equal(t, sim.DriverName, cfg.Driver)
	require.Equal(t, conf.Port, cfg.PortName)
}

func TestFlags(t *testing.T) {
	conf := *Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	conf.SetupFlags(fs)
	require.NoError(t, fs.Parse([]string{"-port", "/dev/ttyS9", "-interval", "50ms", "-sim"}))
	require.Equal(t, "/dev/ttyS9", conf.Port)
	require.Equal(t, 50*time.Millisecond, conf.Interval)
	require.True(t, conf.Sim)
	require.Equal(t, "dynpick/"+conf.ID, conf.Ref().Name())
	require.Equal(t, "50ms", conf.Info().Meta.Interval)
}
