// Package metrics provides Prometheus metrics for the AI dispatch path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports dispatcher metrics on a private registry.
type Exporter struct {
	registry *prometheus.Registry

	aiRequests *prometheus.CounterVec
	aiLatency  *prometheus.HistogramVec
	aiTokens   *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	rateDenials *prometheus.CounterVec

	messagesRouted     *prometheus.CounterVec
	remindersDelivered *prometheus.CounterVec
	catalogIngested    *prometheus.CounterVec
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one).
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds).
	LatencyBuckets []float64
}

// NewExporter creates a metrics exporter.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30}
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.aiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ashbot",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Total AI provider requests",
		},
		[]string{"provider", "status"},
	)

	e.aiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ashbot",
			Subsystem: "ai",
			Name:      "request_latency_seconds",
			Help:      "AI provider request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"provider"},
	)

	e.aiTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ashbot",
			Subsystem: "ai",
			Name:      "tokens_total",
			Help:      "Total provider tokens consumed",
		},
		[]string{"provider", "token_type"},
	)

	e.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ashbot",
			Subsystem: "ai",
			Name:      "cache_hits_total",
			Help:      "Total cache hits",
		},
		[]string{"cache_type"},
	)

	e.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ashbot",
			Subsystem: "ai",
			Name:      "cache_misses_total",
			Help:      "Total cache misses",
		},
		[]string{"cache_type"},
	)

	e.rateDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ashbot",
			Subsystem: "ai",
			Name:      "rate_denials_total",
			Help:      "Total requests denied by the rate limiter",
		},
		[]string{"reason"},
	)

	e.messagesRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ashbot",
			Subsystem: "bot",
			Name:      "messages_routed_total",
			Help:      "Total inbound messages by routing outcome",
		},
		[]string{"rule"},
	)

	e.remindersDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ashbot",
			Subsystem: "bot",
			Name:      "reminders_delivered_total",
			Help:      "Total reminder delivery attempts",
		},
		[]string{"status"},
	)

	e.catalogIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ashbot",
			Subsystem: "catalog",
			Name:      "records_ingested_total",
			Help:      "Total catalog records processed by ingestion",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(
		e.aiRequests,
		e.aiLatency,
		e.aiTokens,
		e.cacheHits,
		e.cacheMisses,
		e.rateDenials,
		e.messagesRouted,
		e.remindersDelivered,
		e.catalogIngested,
	)

	return e
}

// RecordAIRequest records a provider call outcome.
func (e *Exporter) RecordAIRequest(provider, status string, latency time.Duration) {
	e.aiRequests.WithLabelValues(provider, status).Inc()
	e.aiLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordAITokens records token usage for a provider call.
func (e *Exporter) RecordAITokens(provider string, promptTokens, completionTokens int) {
	e.aiTokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	e.aiTokens.WithLabelValues(provider, "completion").Add(float64(completionTokens))
}

// RecordCacheHit records a cache hit.
func (e *Exporter) RecordCacheHit(cacheType string) {
	e.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (e *Exporter) RecordCacheMiss(cacheType string) {
	e.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordRateDenial records a limiter denial.
func (e *Exporter) RecordRateDenial(reason string) {
	e.rateDenials.WithLabelValues(reason).Inc()
}

// RecordRoutedMessage records which router rule consumed a message.
func (e *Exporter) RecordRoutedMessage(rule string) {
	e.messagesRouted.WithLabelValues(rule).Inc()
}

// RecordReminderDelivery records a reminder delivery attempt.
func (e *Exporter) RecordReminderDelivery(status string) {
	e.remindersDelivered.WithLabelValues(status).Inc()
}

// RecordCatalogRecord records a catalog ingestion outcome.
func (e *Exporter) RecordCatalogRecord(outcome string) {
	e.catalogIngested.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
