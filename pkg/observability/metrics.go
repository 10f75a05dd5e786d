/*
Package observability exposes Prometheus metrics for the engine: message
throughput, transition counts, cache effectiveness and storage retries.
*/
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the engine's Prometheus collectors. A nil *Metrics is
// valid and records nothing, so instrumentation points never need nil
// checks at call sites beyond the method receiver.
type Metrics struct {
	messagesTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	storeRetries     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// New registers the engine collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "balcao",
			Name:      "messages_total",
			Help:      "Inbound messages processed, by outcome.",
		}, []string{"outcome"}),
		transitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "balcao",
			Name:      "transitions_total",
			Help:      "Committed state transitions, by source state and trigger.",
		}, []string{"from", "trigger"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "balcao",
			Name:      "session_cache_hits_total",
			Help:      "Session reads served from the cache tier.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "balcao",
			Name:      "session_cache_misses_total",
			Help:      "Session reads that fell through to the durable tier.",
		}),
		storeRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "balcao",
			Name:      "store_retries_total",
			Help:      "Storage operation retries, by operation.",
		}, []string{"op"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "balcao",
			Name:      "active_sessions",
			Help:      "Sessions currently live in the store.",
		}),
	}
}

// Message records one processed message with the given outcome
// ("ok", "fallback", "rejected", "error").
func (m *Metrics) Message(outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(outcome).Inc()
}

// Transition records one committed transition.
func (m *Metrics) Transition(from, trigger string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, trigger).Inc()
}

// CacheHit records a cache-tier read hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss records a cache-tier read miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// Retry records one retry of a storage operation.
func (m *Metrics) Retry(op string) {
	if m == nil {
		return
	}
	m.storeRetries.WithLabelValues(op).Inc()
}

// SetActiveSessions updates the live-session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
