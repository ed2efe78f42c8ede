// Package metrics exposes the pipeline's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector served at /metrics.
var Registry = prometheus.NewRegistry()

// Prometheus metrics
var (
	ingestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_ingests_total",
			Help: "Total number of document ingests by outcome code",
		},
		[]string{"outcome"},
	)
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_queries_total",
			Help: "Total number of retrieval queries by outcome code",
		},
		[]string{"outcome"},
	)
	indexGeneration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docqa_index_generation",
			Help: "Generation id currently visible to searches",
		},
	)
	indexChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docqa_index_chunks",
			Help: "Number of chunks in the visible generation",
		},
	)
	retrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docqa_retrieval_duration_seconds",
			Help:    "Duration of query embedding plus index search",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)
)

func init() {
	Registry.MustRegister(
		ingestsTotal, queriesTotal, indexGeneration, indexChunks, retrievalDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveIngest counts one ingest. An empty outcome means success.
func ObserveIngest(outcome string) {
	ingestsTotal.WithLabelValues(label(outcome)).Inc()
}

// ObserveQuery counts one retrieval and records its latency.
func ObserveQuery(outcome string, took time.Duration) {
	queriesTotal.WithLabelValues(label(outcome)).Inc()
	retrievalDuration.Observe(took.Seconds())
}

// SetIndex records the visible generation and its size.
func SetIndex(generation uint64, chunks int) {
	indexGeneration.Set(float64(generation))
	indexChunks.Set(float64(chunks))
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func label(outcome string) string {
	if outcome == "" {
		return "ok"
	}
	return outcome
}
