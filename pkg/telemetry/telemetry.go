// Package telemetry exposes Prometheus collectors for the weather station.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/reading"
)

const namespace = "tinyweather"

// Failure reasons for the ingest_failures_total counter
const (
	ReasonInvalid = "invalid"
	ReasonStorage = "storage"
)

// Metrics groups the station's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	readingsIngested  prometheus.Counter
	ingestFailures    *prometheus.CounterVec
	skippedRecords    prometheus.Counter
	windowExtractions prometheus.Counter
	intervalChanges   prometheus.Counter
	temperature       prometheus.Gauge
	humidity          prometheus.Gauge
	intervalMinutes   prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, together with the
// standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		readingsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Readings appended to the log.",
		}),
		ingestFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_failures_total",
			Help:      "Rejected or failed ingest attempts by reason.",
		}, []string{"reason"}),
		skippedRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_skipped_records_total",
			Help:      "Malformed records skipped while extracting the window.",
		}),
		windowExtractions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_extractions_total",
			Help:      "Window extractions served.",
		}),
		intervalChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interval_changes_total",
			Help:      "Sampling interval updates.",
		}),
		temperature: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Most recently ingested temperature.",
		}),
		humidity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "humidity_percent",
			Help:      "Most recently ingested relative humidity.",
		}),
		intervalMinutes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sampling_interval_minutes",
			Help:      "Current sampling interval.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReading records a successful ingest.
func (m *Metrics) ObserveReading(r reading.Reading) {
	if m == nil {
		return
	}
	m.readingsIngested.Inc()
	m.temperature.Set(r.Temperature)
	m.humidity.Set(r.Humidity)
}

// ObserveFailure records a failed ingest.
func (m *Metrics) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.ingestFailures.WithLabelValues(reason).Inc()
}

// ObserveExtraction records one window extraction and its skipped records.
func (m *Metrics) ObserveExtraction(skipped int) {
	if m == nil {
		return
	}
	m.windowExtractions.Inc()
	m.skippedRecords.Add(float64(skipped))
}

// ObserveInterval records the current interval; changed marks an update.
func (m *Metrics) ObserveInterval(i interval.Interval, changed bool) {
	if m == nil {
		return
	}
	m.intervalMinutes.Set(float64(i))
	if changed {
		m.intervalChanges.Inc()
	}
}
