// Package statistics exposes the client and server metrics of the engine
// as prometheus collectors.
package statistics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "giop"

	clientSubsystem = "client"
	serverSubsystem = "server"
)

var latencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// ClientCollector is a prometheus.Collector for outgoing calls and the
// client connection pool. A nil collector records nothing.
type ClientCollector struct {
	connGet   prometheus.Histogram
	connNew   prometheus.Histogram
	roundTrip prometheus.Histogram
	pooled    prometheus.Gauge
	reaped    prometheus.Counter
	requests  *prometheus.CounterVec
}

func NewClientCollector() *ClientCollector {
	return &ClientCollector{
		connGet: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: clientSubsystem,
			Name:      "connection_get_seconds",
			Help:      "Time taken to obtain a pooled connection.",
			Buckets:   latencyBuckets,
		}),
		connNew: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: clientSubsystem,
			Name:      "connection_dial_seconds",
			Help:      "Time taken to dial a new connection.",
			Buckets:   latencyBuckets,
		}),
		roundTrip: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: clientSubsystem,
			Name:      "round_trip_seconds",
			Help:      "Time from writing a request to receiving its reply.",
			Buckets:   latencyBuckets,
		}),
		pooled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: clientSubsystem,
			Name:      "idle_connections",
			Help:      "The number of idle pooled connections.",
		}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: clientSubsystem,
			Name:      "reaped_connections_total",
			Help:      "The number of connections closed by the idle sweep.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: clientSubsystem,
			Name:      "requests_total",
			Help:      "The number of requests sent, by outcome.",
		}, []string{"outcome"}),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *ClientCollector) Describe(ch chan<- *prometheus.Desc) {
	c.connGet.Describe(ch)
	c.connNew.Describe(ch)
	c.roundTrip.Describe(ch)
	c.pooled.Describe(ch)
	c.reaped.Describe(ch)
	c.requests.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *ClientCollector) Collect(ch chan<- prometheus.Metric) {
	c.connGet.Collect(ch)
	c.connNew.Collect(ch)
	c.roundTrip.Collect(ch)
	c.pooled.Collect(ch)
	c.reaped.Collect(ch)
	c.requests.Collect(ch)
}

func (c *ClientCollector) ObserveConnGet(d time.Duration) {
	if c != nil {
		c.connGet.Observe(d.Seconds())
	}
}

func (c *ClientCollector) ObserveConnNew(d time.Duration) {
	if c != nil {
		c.connNew.Observe(d.Seconds())
	}
}

func (c *ClientCollector) ObserveRoundTrip(d time.Duration) {
	if c != nil {
		c.roundTrip.Observe(d.Seconds())
	}
}

func (c *ClientCollector) SetIdle(n int) {
	if c != nil {
		c.pooled.Set(float64(n))
	}
}

func (c *ClientCollector) AddReaped(n int) {
	if c != nil {
		c.reaped.Add(float64(n))
	}
}

// IncRequest counts a finished request. The outcome is a reply status
// name or a system exception kind.
func (c *ClientCollector) IncRequest(outcome string) {
	if c != nil {
		c.requests.WithLabelValues(outcome).Inc()
	}
}
