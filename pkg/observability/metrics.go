package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors fed by engine events.
type Metrics struct {
	registry *prometheus.Registry

	Decisions          *prometheus.CounterVec
	ClassifierCalls    *prometheus.CounterVec
	ClassifierDuration *prometheus.HistogramVec
	Fallbacks          *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wayfinder_decisions_total",
				Help: "Total number of node decisions by rule",
			},
			[]string{"kind"},
		),
		ClassifierCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wayfinder_classifier_calls_total",
				Help: "Total number of intent classifier calls",
			},
			[]string{"scope", "outcome"},
		),
		ClassifierDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wayfinder_classifier_duration_seconds",
				Help:    "Duration of intent classifier calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scope"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wayfinder_fallbacks_total",
				Help: "Total number of turns routed to the fallback resource",
			},
			[]string{"reason"},
		),
	}
	m.registry.MustRegister(m.Decisions, m.ClassifierCalls, m.ClassifierDuration, m.Fallbacks)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) {
			m.Decisions.WithLabelValues(string(e.Kind)).Inc()
		},
		OnClassify: func(_ context.Context, e *domain.ClassifyEvent) {
			scope := scopeOf(e.Global)
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			m.ClassifierCalls.WithLabelValues(scope, outcome).Inc()
			m.ClassifierDuration.WithLabelValues(scope).Observe(e.Duration.Seconds())
		},
		OnFallback: func(_ context.Context, e *domain.FallbackEvent) {
			m.Fallbacks.WithLabelValues(e.Reason).Inc()
		},
	}
}

func scopeOf(global bool) string {
	if global {
		return "global"
	}
	return "local"
}
