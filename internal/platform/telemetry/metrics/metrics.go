package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "playstore"

// Metrics holds the process collectors.
type Metrics struct {
	registry *prometheus.Registry

	editsOpened     prometheus.Counter
	editsCommitted  prometheus.Counter
	editsDiscarded  prometheus.Counter
	discardFailures prometheus.Counter
	retries         *prometheus.CounterVec
	mutations       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		editsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "edit", Name: "opened_total",
			Help: "Edit sessions opened.",
		}),
		editsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "edit", Name: "committed_total",
			Help: "Edit sessions committed.",
		}),
		editsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "edit", Name: "discarded_total",
			Help: "Edit sessions discarded.",
		}),
		discardFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "edit", Name: "discard_failures_total",
			Help: "Edit discards that failed upstream and were swallowed.",
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "retries_total",
			Help: "Transient upstream failures that were retried.",
		}, []string{"status"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "mutations_total",
			Help: "Mutation results by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.editsOpened,
		m.editsCommitted,
		m.editsDiscarded,
		m.discardFailures,
		m.retries,
		m.mutations,
	)
	return m
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) EditOpened() {
	if m != nil {
		m.editsOpened.Inc()
	}
}

func (m *Metrics) EditCommitted() {
	if m != nil {
		m.editsCommitted.Inc()
	}
}

func (m *Metrics) EditDiscarded() {
	if m != nil {
		m.editsDiscarded.Inc()
	}
}

func (m *Metrics) DiscardFailed() {
	if m != nil {
		m.discardFailures.Inc()
	}
}

// Retried records one retry caused by an upstream status.
func (m *Metrics) Retried(status int) {
	if m != nil {
		m.retries.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}

// Mutation records the outcome ("success" or an error kind) of an operation.
func (m *Metrics) Mutation(operation, outcome string) {
	if m != nil {
		m.mutations.WithLabelValues(operation, outcome).Inc()
	}
}
