// Package metrics exposes lifecycle and HTTP counters for Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/procurement-decisions/internal/application/dispatcher"
	"github.com/garyjia/procurement-decisions/internal/domain/event"
)

const namespace = "procurement"

// Metrics owns a private registry so tests and multiple containers do not collide
type Metrics struct {
	registry *prometheus.Registry

	events       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	sweptTotal   prometheus.Counter
}

// New creates the collectors and registers them, plus Go runtime collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Domain events emitted after a committed change, by event type.",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Idle editing sessions discarded by the janitor.",
		}),
	}

	m.registry.MustRegister(
		m.events,
		m.httpRequests,
		m.httpDuration,
		m.sweptTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Register counts every domain event the dispatcher delivers
func (m *Metrics) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{
		event.TypeProposalSaved,
		event.TypeDecisionFinalized,
		event.TypeDecisionReverted,
		event.TypeActualInvoiceEntered,
	} {
		d.SubscribeNamed(t, "metrics.count_event", func(ctx context.Context, evt *event.Event) error {
			m.events.WithLabelValues(string(evt.Type)).Inc()
			return nil
		})
	}
}

// TrackSessions exposes the number of open editing sessions
func (m *Metrics) TrackSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_open",
		Help:      "Editing sessions currently held in memory.",
	}, func() float64 { return float64(count()) }))
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SessionsSwept adds n to the swept-session counter
func (m *Metrics) SessionsSwept(n int) {
	m.sweptTotal.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
