package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "assistant_console"

type Metrics struct {
	// Purchases counts purchase coordinator outcomes by result.
	Purchases *prometheus.CounterVec
	// ProviderCalls counts outbound gateway calls by provider, operation and outcome.
	ProviderCalls *prometheus.CounterVec
	// ProviderLatency observes gateway call duration.
	ProviderLatency *prometheus.HistogramVec
	// Compensations counts releases issued after a failed insert.
	Compensations *prometheus.CounterVec
	// PreviewCache counts voice preview cache lookups by tier and result.
	PreviewCache *prometheus.CounterVec
}

var (
	once   sync.Once
	global *Metrics
)

// Global returns the process-wide metrics, registered once on the default registry.
func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "number_purchases_total",
				Help:      "Phone number purchase requests by outcome",
			}, []string{"outcome"}),
			ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Outbound third-party API calls",
			}, []string{"provider", "operation", "outcome"}),
			ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_call_seconds",
				Help:      "Outbound third-party API call latency",
				Buckets:   prometheus.DefBuckets,
			}, []string{"provider", "operation"}),
			Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purchase_compensations_total",
				Help:      "Number releases issued after a failed local insert",
			}, []string{"result"}),
			PreviewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "voice_preview_cache_total",
				Help:      "Voice preview cache lookups",
			}, []string{"tier", "result"}),
		}
		prometheus.MustRegister(
			global.Purchases,
			global.ProviderCalls,
			global.ProviderLatency,
			global.Compensations,
			global.PreviewCache,
		)
	})
	return global
}

// ObserveCall records one outbound call.
func (m *Metrics) ObserveCall(provider, operation string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ProviderCalls.WithLabelValues(provider, operation, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider, operation).Observe(seconds)
}
