// Package metrics exposes Prometheus collectors for the HTTP surface and the
// view executor.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atlekbai/crm_backoffice/internal/entity"
)

var (
	RouteLabel   = "route"
	MethodLabel  = "method"
	StatusLabel  = "status"
	EntityLabel  = "entity"
	OutcomeLabel = "outcome"
)

// Metrics owns a private registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	applies  *prometheus.HistogramVec
	lookups  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		}, []string{RouteLabel, MethodLabel, StatusLabel}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crm_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		}, []string{RouteLabel, MethodLabel}),
		applies: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crm_view_apply_duration_seconds",
			Help:    "Time to resolve, compile and fetch a saved view",
			Buckets: prometheus.ExponentialBuckets(0.002, 2, 12),
		}, []string{EntityLabel, OutcomeLabel}),
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_filter_lookups_total",
			Help: "Relation name lookups issued while resolving view filters",
		}, []string{EntityLabel}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.With(prometheus.Labels{
		RouteLabel:  route,
		MethodLabel: method,
		StatusLabel: strconv.Itoa(status),
	}).Inc()
	m.latency.With(prometheus.Labels{RouteLabel: route, MethodLabel: method}).Observe(d.Seconds())
}

func (m *Metrics) ObserveApply(n entity.Name, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.applies.With(prometheus.Labels{EntityLabel: string(n), OutcomeLabel: outcome}).Observe(d.Seconds())
}

func (m *Metrics) IncLookup(target entity.Name) {
	if m == nil {
		return
	}
	m.lookups.With(prometheus.Labels{EntityLabel: string(target)}).Inc()
}
