// Package metrics exposes engine statistics as Prometheus gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/e7canasta/frametie"
)

// Metrics publishes one engine's stats on a Prometheus registry. All
// gauges read live Stats() snapshots; nothing is sampled or cached.
type Metrics struct {
	engine   *frametie.Engine
	registry *prometheus.Registry
}

// New creates a Metrics instance wired to the engine
func New(engine *frametie.Engine) *Metrics {
	m := &Metrics{
		engine:   engine,
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics()

	return m
}

// registerPrometheusMetrics registers all gauges with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "frametie_frames_copied_total",
			Help: "Total frames copied from source to sink",
		},
		func() float64 { return float64(m.engine.Stats().FramesCopied) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "frametie_read_retries_total",
			Help: "Total transient source read failures",
		},
		func() float64 { return float64(m.engine.Stats().ReadRetries) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "frametie_reconfigures_total",
			Help: "Total source reconfigurations triggered by read recovery",
		},
		func() float64 { return float64(m.engine.Stats().Reconfigures) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "frametie_average_fps",
			Help: "Frames copied per second of running time",
		},
		func() float64 { return m.engine.Stats().AverageFPS },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "frametie_uptime_seconds",
			Help: "Seconds since the engine was last configured",
		},
		func() float64 { return m.engine.Stats().Uptime.Seconds() },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "frametie_engine_state",
			Help: "Engine state (0=idle, 1=running, 2=paused, 3=stopped)",
		},
		func() float64 { return float64(m.engine.State()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "frametie_last_error_class",
			Help: "Class of the error that stopped the engine (0=none, 4=transient, 5=fatal)",
		},
		func() float64 { return float64(frametie.Classify(m.engine.Err())) },
	))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server. It blocks until the
// listener fails.
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
