package ftsensor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ftsense/pkg/msgs"
	"github.com/robotalks/ftsense/pkg/sim"
)

func TestDaemonRun(t *testing.T) {
	conf := *Default()
	conf.Port = "daemon-" + t.Name()
	conf.Sim = true
	conf.ID = "test"
	conf.Interval = MinInterval
	conf.ResponseDelay = 0
	conf.Listen = "127.0.0.1:0"
	require.NoError(t, conf.Validate())
	sim.Configure(conf.Port, sim.DefaultConfig())

	d, err := conf.NewDaemon(context.Background())
	require.NoError(t, err)
	require.NotNil(t, d.Broadcaster)
	require.Len(t, d.Publishers.Publishers, 1)

	server := httptest.NewServer(d.Handler())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan error, 1)
	go func() { doneCh <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(server.URL + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var st msgs.SensorStatus
		return resp.StatusCode == http.StatusOK &&
			json.NewDecoder(resp.Body).Decode(&st) == nil &&
			st.State == msgs.StateCalibrated
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-doneCh, context.Canceled)
	require.Nil(t, d.Controller.sensor)
}

func TestDaemonWithoutPublishers(t *testing.T) {
	conf := *Default()
	conf.Port = "daemon-" + t.Name()
	conf.Sim = true
	conf.ID = "test"
	require.NoError(t, conf.Validate())
	d, err := conf.NewDaemon(context.Background())
	require.NoError(t, err)
	require.Nil(t, d.Broadcaster)
	require.Empty(t, d.Publishers.Publishers)

	_, err = (&Config{RedisURL: "not a url"}).NewDaemon(context.Background())
	require.Error(t, err)
}
