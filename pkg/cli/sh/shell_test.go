package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ftsense/pkg/comm"
	"github.com/robotalks/ftsense/pkg/ftsensor"
	"github.com/robotalks/ftsense/pkg/sensor/dynpick"
	"github.com/robotalks/ftsense/pkg/sim"
)

func simConfig(t *testing.T, devConfig sim.Config) *ftsensor.Config {
	conf := *ftsensor.Default()
	conf.Port = "sh-" + t.Name()
	conf.Sim = true
	conf.ID = "test"
	conf.ResponseDelay = 0
	require.NoError(t, conf.Validate())
	sim.Configure(conf.Port, devConfig)
	return &conf
}

func TestShellOpenClose(t *testing.T) {
	s := &Shell{Config: simConfig(t, sim.DefaultConfig())}
	st := s.Status()
	require.False(t, st.Open)
	require.Contains(t, FormatStatus(st), "closed")

	require.NoError(t, s.Open())
	require.NoError(t, s.Open())
	st = s.Status()
	require.True(t, st.Open)
	require.True(t, st.Calibrated)
	require.Equal(t, []float64{32.8, 32.8, 32.8, 1638.2, 1638.2, 1638.2}, st.Lsb)

	_, err := s.Sensor.ReadData()
	require.NoError(t, err)
	st = s.Status()
	require.Equal(t, uint64(1), st.Successes)
	require.Contains(t, FormatStatus(st), "reads: 1 ok, 0 failed of 1")

	require.NoError(t, s.Close())
	require.Nil(t, s.Sensor)
	require.NoError(t, s.Close())
}

func TestShellOpenUncalibrated(t *testing.T) {
	conf := simConfig(t, sim.Config{Lsb: dynpick.Lsb{1e9, 1, 1, 1, 1, 1}})
	s := &Shell{Config: conf}
	require.NoError(t, s.Open())
	require.False(t, s.Status().Calibrated)
	require.NoError(t, s.Close())

	conf.RequireCalibration = true
	require.Error(t, s.Open())
	require.Nil(t, s.Sensor)
}

func TestShellQueueRequiresBroker(t *testing.T) {
	s := &Shell{Config: simConfig(t, sim.DefaultConfig())}
	_, err := s.Queue()
	require.Error(t, err)
	_, err = s.DiscoverSensors(nil)
	require.Error(t, err)
}

func TestFormatInfo(t *testing.T) {
	info := comm.SensorInfo{Ref: comm.SensorRef{Type: "dynpick", ID: "a1"}}
	require.Equal(t, "dynpick/a1", FormatInfo(info))
	info.Meta.Port = "/dev/ttyUSB0"
	info.Meta.Description = "left wrist"
	require.Equal(t, "dynpick/a1 (/dev/ttyUSB0): left wrist", FormatInfo(info))
}
