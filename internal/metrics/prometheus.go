package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every exported metric.
const Namespace = "assistantsproxy"

// Collector exports listing and HTTP metrics to Prometheus.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	listRequestsTotal *prometheus.CounterVec
	listDuration      *prometheus.HistogramVec
	listedAssistants  *prometheus.CounterVec

	upstreamRequestsTotal *prometheus.CounterVec
	upstreamDuration      *prometheus.HistogramVec
}

// NewCollector registers all metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		listRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "assistant_list_requests_total",
				Help:      "Total number of assistant listing requests",
			},
			[]string{"endpoint", "version", "result"},
		),
		listDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "assistant_list_duration_seconds",
				Help:      "Assistant listing duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"endpoint", "version"},
		),
		listedAssistants: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "assistants_listed_total",
				Help:      "Total number of assistants returned to callers",
			},
			[]string{"endpoint"},
		),
		upstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of vendor list calls",
			},
			[]string{"endpoint", "group", "result"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Vendor list call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"endpoint", "group"},
		),
	}
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordListing records one listing request and the number of assistants it returned.
func (c *Collector) RecordListing(endpoint, version, result string, assistants int, duration time.Duration) {
	c.listRequestsTotal.WithLabelValues(endpoint, version, result).Inc()
	c.listDuration.WithLabelValues(endpoint, version).Observe(duration.Seconds())
	if assistants > 0 {
		c.listedAssistants.WithLabelValues(endpoint).Add(float64(assistants))
	}
}

// RecordUpstream records one vendor list call.
func (c *Collector) RecordUpstream(endpoint, group, result string, duration time.Duration) {
	c.upstreamRequestsTotal.WithLabelValues(endpoint, group, result).Inc()
	c.upstreamDuration.WithLabelValues(endpoint, group).Observe(duration.Seconds())
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
