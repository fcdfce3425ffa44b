package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics specific to the orchestration loop itself live next to the code
// that records them, mirroring the per-package metrics.go convention from
// mbaxamb33-yuzu.agent.webrtc.toy (internal/orchestrator/metrics.go,
// internal/stt/metrics.go) rather than one central registry file. Transport
// and session-lifecycle counters live in internal/metrics instead, next to
// the WebSocket layer that observes them.
var (
	metricTranslationLatencyMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "meetassist_translation_latency_ms",
		Help:    "Latency of a translator call, successful or failed",
		Buckets: prometheus.ExponentialBuckets(50, 1.8, 10),
	})

	metricCorrectionBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "meetassist_correction_batch_size",
		Help:    "Number of segments drained into a single correction batch",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})
)
