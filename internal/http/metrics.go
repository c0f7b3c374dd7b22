package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. It satisfies acquire.Recorder and
// core.EventRecorder.
type Metrics struct {
	registry *prometheus.Registry

	MessagesTotal         *prometheus.CounterVec
	AcquisitionsTotal     *prometheus.CounterVec
	ProviderOutcomesTotal *prometheus.CounterVec
	ErrorsTotal           *prometheus.CounterVec
	AcquisitionDuration   *prometheus.HistogramVec
	ActiveDownloadsGauge  prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackhound_messages_total",
				Help: "Total number of chat messages processed",
			},
			[]string{"type", "status"},
		),
		AcquisitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackhound_acquisitions_total",
				Help: "Total number of acquisition runs by final status",
			},
			[]string{"status"},
		),
		ProviderOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackhound_provider_outcomes_total",
				Help: "Total number of provider attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackhound_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
		AcquisitionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trackhound_acquisition_duration_seconds",
				Help:    "Time spent walking the provider cascade",
				Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320},
			},
			[]string{"status"},
		),
		ActiveDownloadsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trackhound_active_downloads",
				Help: "Number of acquisitions currently holding a download slot",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MessagesTotal,
		m.AcquisitionsTotal,
		m.ProviderOutcomesTotal,
		m.ErrorsTotal,
		m.AcquisitionDuration,
		m.ActiveDownloadsGauge,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ProviderOutcome(provider, outcome string) {
	m.ProviderOutcomesTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) Acquisition(status string, duration time.Duration) {
	m.AcquisitionsTotal.WithLabelValues(status).Inc()
	m.AcquisitionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) ActiveDownloads(n int64) {
	m.ActiveDownloadsGauge.Set(float64(n))
}

func (m *Metrics) Message(msgType, status string) {
	m.MessagesTotal.WithLabelValues(msgType, status).Inc()
}

func (m *Metrics) Error(component, errType string) {
	m.ErrorsTotal.WithLabelValues(component, errType).Inc()
}
