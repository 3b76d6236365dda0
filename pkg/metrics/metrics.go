// Package metrics exports acquisition metrics to Prometheus.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/ftsense/pkg/msgs"
)

var axes = [...]string{"fx", "fy", "fz", "tx", "ty", "tz"}

// Recorder records acquisition of one sensor.
// It implements comm.Publisher so that published events update gauges.
type Recorder struct {
	Registry *prometheus.Registry

	cycles     *prometheus.CounterVec
	duration   prometheus.Histogram
	wrench     *prometheus.GaugeVec
	calibrated prometheus.Gauge
	lastSample prometheus.Gauge

	lock   sync.RWMutex
	status msgs.SensorStatus
	seen   time.Time
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder(sensorName string) *Recorder {
	labels := prometheus.Labels{"sensor": sensorName}
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ftsense_read_cycles_total",
			Help:        "Acquisition cycles by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "ftsense_read_duration_seconds",
			Help:        "Duration of ReadData including retries.",
			ConstLabels: labels,
			Buckets:     []float64{.001, .002, .005, .01, .02, .05, .1, .2, .5},
		}),
		wrench: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ftsense_wrench",
			Help:        "Last measurement per axis.",
			ConstLabels: labels,
		}, []string{"axis"}),
		calibrated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ftsense_calibrated",
			Help:        "1 if calibration coefficients are fetched from the sensor.",
			ConstLabels: labels,
		}),
		lastSample: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ftsense_last_sample_timestamp_seconds",
			Help:        "Time of the last successful measurement.",
			ConstLabels: labels,
		}),
	}
	r.Registry.MustRegister(r.cycles, r.duration, r.wrench, r.calibrated, r.lastSample,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return r
}

// ObserveRead records one ReadData call.
func (r *Recorder) ObserveRead(d time.Duration, err error) {
	r.duration.Observe(d.Seconds())
	if err != nil {
		r.cycles.WithLabelValues("failure").Inc()
	} else {
		r.cycles.WithLabelValues("success").Inc()
	}
}

// Publish implements comm.Publisher.
func (r *Recorder) Publish(_ context.Context, msg msgs.SerializableMessage) error {
	switch m := msg.(type) {
	case *msgs.Wrench:
		for n, v := range m.Data() {
			r.wrench.WithLabelValues(axes[n]).Set(v)
		}
		r.lastSample.Set(float64(m.Timestamp) / float64(time.Second))
	case *msgs.SensorStatus:
		if m.Calibrated {
			r.calibrated.Set(1)
		} else {
			r.calibrated.Set(0)
		}
		r.lock.Lock()
		r.status, r.seen = *m, time.Now()
		r.lock.Unlock()
	}
	return nil
}

// Healthy indicates the last reported status is not failing.
func (r *Recorder) Healthy() (msgs.SensorStatus, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	st := r.status
	return st, st.State == msgs.StateConnected || st.State == msgs.StateCalibrated
}

// Handler serves /metrics and /health.
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()
	r.Register(mux)
	return mux
}

// Register adds /metrics and /health to the mux.
func (r *Recorder) Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", r.serveHealth)
}

func (r *Recorder) serveHealth(w http.ResponseWriter, req *http.Request) {
	st, ok := r.Healthy()
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(&st)
}
