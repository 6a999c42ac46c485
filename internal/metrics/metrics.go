package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dinherin"

// Metrics groups the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	webhookEvents       *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	reconcileDowngrades prometheus.Counter
	reconcileFailures   prometheus.Counter
	rateLimited         prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Billing webhook events by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entitlement_transitions_total",
				Help:      "Subscription state changes applied to accounts.",
			},
			[]string{"from", "to"},
		),
		reconcileDowngrades: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_downgrades_total",
			Help:      "Accounts downgraded because the provider reported no active subscription.",
		}),
		reconcileFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_failures_total",
			Help:      "Accounts skipped during reconciliation because of an error.",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

func (m *Metrics) WebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}

	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil || from == to {
		return
	}

	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ReconcileDowngrade() {
	if m == nil {
		return
	}

	m.reconcileDowngrades.Inc()
}

func (m *Metrics) ReconcileFailure() {
	if m == nil {
		return
	}

	m.reconcileFailures.Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}

	m.rateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
