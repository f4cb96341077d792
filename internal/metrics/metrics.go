// Package metrics exposes the service counters on a private Prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classfees"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	mutations      *prometheus.CounterVec
	storeErrors    *prometheus.CounterVec
	snapshotLookup *prometheus.CounterVec
	events         *prometheus.CounterVec
	sheetSyncs     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Successful store writes, by collection and operation.",
	}, []string{"collection", "op"})

	m.storeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Document store failures, by reason.",
	}, []string{"reason"})

	m.snapshotLookup = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "lookups_total",
		Help:      "Snapshot cache lookups, by result (fresh, stale, miss).",
	}, []string{"result"})

	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Change events handed to the broker, by outcome.",
	}, []string{"outcome"})

	m.sheetSyncs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sheets",
		Name:      "syncs_total",
		Help:      "Ledger mirror writes, by operation and outcome.",
	}, []string{"op", "outcome"})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.mutations, m.storeErrors,
		m.snapshotLookup, m.events, m.sheetSyncs,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Mutation(collection, op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(collection, op).Inc()
}

func (m *Metrics) StoreError(reason string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) SnapshotLookup(result string) {
	if m == nil {
		return
	}
	m.snapshotLookup.WithLabelValues(result).Inc()
}

func (m *Metrics) EventPublished(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SheetSync(op string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.sheetSyncs.WithLabelValues(op, outcome).Inc()
}
