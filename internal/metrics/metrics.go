package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch results used as the "result" label.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// HostMetrics holds all Prometheus metrics of the host process.
type HostMetrics struct {
	registry *prometheus.Registry

	// Frame metrics
	FramesTotal   prometheus.Counter
	FrameDuration prometheus.Histogram

	// Input metrics
	EventsFlushedTotal prometheus.Counter

	// Preload metrics
	PreloadFetchesTotal *prometheus.CounterVec

	// Render metrics
	DrawCallsTotal prometheus.Counter
	TexturesLive   prometheus.Gauge
}

// NewHostMetrics creates the metrics on a fresh registry.
func NewHostMetrics() *HostMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &HostMetrics{
		registry: reg,

		FramesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "canvashost_frames_total",
				Help: "Total number of frames run by the guest",
			},
		),

		FrameDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "canvashost_frame_duration_seconds",
				Help:    "Time spent in a single frame, input flush included",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .0167, .025, .05, .1, .25},
			},
		),

		EventsFlushedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "canvashost_events_flushed_total",
				Help: "Total number of input events delivered to the guest",
			},
		),

		PreloadFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvashost_preload_fetches_total",
				Help: "Total number of preload fetches by outcome",
			},
			[]string{"result"},
		),

		DrawCallsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "canvashost_draw_calls_total",
				Help: "Total number of draw calls issued by the guest",
			},
		),

		TexturesLive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "canvashost_textures_live",
				Help: "Number of textures currently allocated by the guest",
			},
		),
	}
}

// ObserveFetch records a preload fetch outcome.
func (m *HostMetrics) ObserveFetch(relPath string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.PreloadFetchesTotal.WithLabelValues(result).Inc()
}

// RecordFrame records a completed frame and the events it delivered.
func (m *HostMetrics) RecordFrame(duration time.Duration, events int) {
	m.FramesTotal.Inc()
	m.FrameDuration.Observe(duration.Seconds())
	if events > 0 {
		m.EventsFlushedTotal.Add(float64(events))
	}
}

// RecordDraw records a draw call.
func (m *HostMetrics) RecordDraw() {
	m.DrawCallsTotal.Inc()
}

// SetTextures records the number of live textures.
func (m *HostMetrics) SetTextures(n int) {
	m.TexturesLive.Set(float64(n))
}

// Registry exposes the underlying registry.
func (m *HostMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *HostMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
