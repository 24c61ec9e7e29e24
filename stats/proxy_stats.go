// Package stats provides methods and functionality to register, track, and
// expose the Prometheus metrics the emulator's HTTP front door accumulates
// for every request it serves.
//
// Naming convention carried over from the teacher's StatsD days: "*.n" for
// a count, "*.latency" for a duration — Prometheus metric names below keep
// the same spirit (request counters, latency histograms) even though the
// transport changed from StatsD to a pulled /metrics endpoint.
package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the process-wide set of request counters and latency
// histograms, one label set per (service, operation, status).
type Collector struct {
	registry *prometheus.Registry

	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	storageObjects *prometheus.GaugeVec
}

// NewCollector builds and registers the emulator's Prometheus metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudemu",
			Name:      "requests_total",
			Help:      "Total requests handled, by service and status code.",
		}, []string{"service", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cloudemu",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency in seconds, by service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		storageObjects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cloudemu",
			Name:      "storage_entities",
			Help:      "Count of stored entities, by kind (bucket, table, queue, topic, ...).",
		}, []string{"kind"}),
	}
	reg.MustRegister(c.requestsTotal, c.requestLatency, c.storageObjects)
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return c
}

// Observe records one completed request's service label, status code, and
// duration. Called from router.Router after every dispatch.
func (c *Collector) Observe(service string, status int, seconds float64) {
	c.requestsTotal.WithLabelValues(service, statusBucket(status)).Inc()
	c.requestLatency.WithLabelValues(service).Observe(seconds)
}

// SetStorageCount records the current number of stored entities of one
// kind, e.g. SetStorageCount("bucket", len(buckets)).
func (c *Collector) SetStorageCount(kind string, n int) {
	c.storageObjects.WithLabelValues(kind).Set(float64(n))
}

func statusBucket(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
