// Package metrics exports the backend's Prometheus collectors.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "companion"

// Expiry paths for RemindersExpired.
const (
	PathList  = "list"
	PathSweep = "sweep"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	remindersCreated *prometheus.CounterVec
	remindersExpired *prometheus.CounterVec
	reportsGenerated *prometheus.CounterVec
	chatIngested     prometheus.Counter
	requestDuration  *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go and
// process collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		remindersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_created_total",
			Help:      "Reminders created, by reminder type.",
		}, []string{"type"}),
		remindersExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_expired_total",
			Help:      "One-shot reminders moved to completed after their due time.",
		}, []string{"path"}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Daily reports generated, by outcome.",
		}, []string{"status"}),
		chatIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_ingested_total",
			Help:      "Chat messages accepted from devices.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.remindersCreated,
		m.remindersExpired,
		m.reportsGenerated,
		m.chatIngested,
		m.requestDuration,
	} {
		if err := m.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ReminderCreated(typ string) {
	if m == nil {
		return
	}
	m.remindersCreated.WithLabelValues(typ).Inc()
}

func (m *Metrics) RemindersExpired(path string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.remindersExpired.WithLabelValues(path).Add(float64(n))
}

func (m *Metrics) ReportGenerated(status string) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(status).Inc()
}

func (m *Metrics) ChatIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.chatIngested.Add(float64(n))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, fmt.Sprint(status)).Observe(d.Seconds())
}
