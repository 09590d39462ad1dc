package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Metrics holds the collectors shared by the API and the media worker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer       prometheus.Gatherer
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	authEvents     *prometheus.CounterVec
	mediaTasks     *prometheus.CounterVec
}

// New registers the collectors on reg. Passing nil uses a fresh registry
// that also exports Go runtime and process metrics.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		gatherer: reg,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accounts",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "accounts",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accounts",
			Name:      "auth_events_total",
			Help:      "Account operations by outcome",
		}, []string{"op", "outcome"}),
		mediaTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accounts",
			Subsystem: "media",
			Name:      "tasks_total",
			Help:      "Media janitor tasks by type and outcome",
		}, []string{"type", "outcome"}),
	}

	for _, collector := range []prometheus.Collector{m.requestTotal, m.requestLatency, m.authEvents, m.mediaTasks} {
		if err := reg.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
			switch existing := are.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				switch collector {
				case m.requestTotal:
					m.requestTotal = existing
				case m.authEvents:
					m.authEvents = existing
				case m.mediaTasks:
					m.mediaTasks = existing
				}
			case *prometheus.HistogramVec:
				m.requestLatency = existing
			}
		}
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(duration.Seconds())
}

// AuthEvent counts one account operation. outcome is "ok" or a failure reason.
func (m *Metrics) AuthEvent(op, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.With(prometheus.Labels{"op": op, "outcome": outcome}).Inc()
}

func (m *Metrics) MediaTask(taskType, outcome string) {
	if m == nil {
		return
	}
	m.mediaTasks.With(prometheus.Labels{"type": taskType, "outcome": outcome}).Inc()
}
