package statistics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerCollector is a prometheus.Collector for accepted connections and
// the requests served on them. A nil collector records nothing.
type ServerCollector struct {
	conns    prometheus.Gauge
	read     prometheus.Histogram
	write    prometheus.Histogram
	dispatch prometheus.Histogram
	requests *prometheus.CounterVec
}

func NewServerCollector() *ServerCollector {
	return &ServerCollector{
		conns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: serverSubsystem,
			Name:      "connections",
			Help:      "The number of open accepted connections.",
		}),
		read: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: serverSubsystem,
			Name:      "read_seconds",
			Help:      "Time taken to read one message.",
			Buckets:   latencyBuckets,
		}),
		write: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: serverSubsystem,
			Name:      "write_seconds",
			Help:      "Time taken to write one reply.",
			Buckets:   latencyBuckets,
		}),
		dispatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: serverSubsystem,
			Name:      "dispatch_seconds",
			Help:      "Time spent in servants.",
			Buckets:   latencyBuckets,
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: serverSubsystem,
			Name:      "requests_total",
			Help:      "The number of requests served, by reply status.",
		}, []string{"status"}),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *ServerCollector) Describe(ch chan<- *prometheus.Desc) {
	c.conns.Describe(ch)
	c.read.Describe(ch)
	c.write.Describe(ch)
	c.dispatch.Describe(ch)
	c.requests.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *ServerCollector) Collect(ch chan<- prometheus.Metric) {
	c.conns.Collect(ch)
	c.read.Collect(ch)
	c.write.Collect(ch)
	c.dispatch.Collect(ch)
	c.requests.Collect(ch)
}

func (c *ServerCollector) ConnOpened() {
	if c != nil {
		c.conns.Inc()
	}
}

func (c *ServerCollector) ConnClosed() {
	if c != nil {
		c.conns.Dec()
	}
}

func (c *ServerCollector) ObserveRead(d time.Duration) {
	if c != nil {
		c.read.Observe(d.Seconds())
	}
}

func (c *ServerCollector) ObserveWrite(d time.Duration) {
	if c != nil {
		c.write.Observe(d.Seconds())
	}
}

func (c *ServerCollector) ObserveDispatch(d time.Duration) {
	if c != nil {
		c.dispatch.Observe(d.Seconds())
	}
}

func (c *ServerCollector) IncRequest(status string) {
	if c != nil {
		c.requests.WithLabelValues(status).Inc()
	}
}
