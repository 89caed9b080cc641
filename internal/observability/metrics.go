package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// advisor core.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec // labels: intent, outcome={ok,error}
	RequestDuration prometheus.Histogram

	// Provider gateway metrics.
	ProviderCalls        *prometheus.CounterVec   // labels: provider, outcome={success,partial,timeout,unavailable,invalid_query}
	ProviderCallDuration *prometheus.HistogramVec // labels: provider
	ProviderRetries      prometheus.Counter

	// Session metrics.
	SessionsCreated prometheus.Counter
	SessionsEnded   *prometheus.CounterVec // labels: reason={expired,reset}
	ActiveSessions  prometheus.Gauge

	ClassificationFailures prometheus.Counter

	// Geocoding cache metrics.
	GeocodeCache *prometheus.CounterVec // labels: result={hit,miss}

	// Assessment publishing metrics.
	AssessmentsPublished prometheus.Counter
	PublisherEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "requests_total",
			Help:      "Orchestrated requests by intent kind and outcome.",
		}, []string{"intent", "outcome"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_advisor",
			Name:      "request_duration_seconds",
			Help:      "End-to-end duration of one orchestrated request.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "provider_calls_total",
			Help:      "Specialist provider calls by provider name and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_advisor",
			Name:      "provider_call_duration_seconds",
			Help:      "Duration of a single provider call including retry.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		ProviderRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "provider_retries_total",
			Help:      "Retry attempts after a timeout or unavailable result.",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "sessions_created_total",
			Help:      "Sessions created for new or expired callers.",
		}),
		SessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "sessions_ended_total",
			Help:      "Sessions invalidated, by reason.",
		}, []string{"reason"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_advisor",
			Name:      "active_sessions",
			Help:      "Sessions currently inside their idle window.",
		}),
		ClassificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "classification_failures_total",
			Help:      "Requests whose intent could not be determined.",
		}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		AssessmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_advisor",
			Name:      "assessments_published_total",
			Help:      "Completed risk assessments published to the sink topic.",
		}),
		PublisherEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_advisor",
			Name:      "publisher_enabled",
			Help:      "1 when assessment publishing is enabled, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all advisor metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ProviderCalls,
		m.ProviderCallDuration,
		m.ProviderRetries,
		m.SessionsCreated,
		m.SessionsEnded,
		m.ActiveSessions,
		m.ClassificationFailures,
		m.GeocodeCache,
		m.AssessmentsPublished,
		m.PublisherEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
