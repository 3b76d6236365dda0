package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/ftsense/pkg/msgs"
	"github.com/robotalks/ftsense/pkg/sensor"
)

func TestRecorderCycles(t *testing.T) {
	r := NewRecorder("dynpick/test")
	r.ObserveRead(time.Millisecond, nil)
	r.ObserveRead(time.Millisecond, nil)
	r.ObserveRead(time.Millisecond, errors.New("failed"))
	require.Equal(t, 2.0, testutil.ToFloat64(r.cycles.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("failure")))
}

func TestRecorderPublish(t *testing.T) {
	r := NewRecorder("dynpick/test")
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, msgs.NewWrench(1, time.Unix(10, 0), sensor.Data{1, 2, 3, 4, 5, 6}, true)))
	require.Equal(t, 3.0, testutil.ToFloat64(r.wrench.WithLabelValues("fz")))
	require.Equal(t, 10.0, testutil.ToFloat64(r.lastSample))

	_, ok := r.Healthy()
	require.False(t, ok)
	require.NoError(t, r.Publish(ctx, &msgs.SensorStatus{State: msgs.StateCalibrated, Calibrated: true}))
	require.Equal(t, 1.0, testutil.ToFloat64(r.calibrated))
	_, ok = r.Healthy()
	require.True(t, ok)
}

func TestRecorderHandler(t *testing.T) {
	r := NewRecorder("dynpick/test")
	r.ObserveRead(time.Millisecond, nil)
	server := httptest.NewServer(r.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	r.Publish(context.Background(), &msgs.SensorStatus{State: msgs.StateConnected})
	resp, err = http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `ftsense_read_cycles_total{result="success",sensor="dynpick/test"} 1`)
}
