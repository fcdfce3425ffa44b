// Package metrics exposes Prometheus counters/histograms for the meeting
// orchestrator, grounded on mbaxamb33-yuzu.agent.webrtc.toy's
// internal/orchestrator/metrics.go promauto pattern.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetassist_sessions_started_total",
		Help: "Total meeting sessions started",
	})

	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetassist_sessions_closed_total",
		Help: "Total meeting sessions closed",
	})

	TranscriptsFinal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetassist_transcripts_final_total",
		Help: "Total finalized transcript segments",
	})

	ErrorsByCode = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetassist_errors_total",
		Help: "Error events emitted to clients, by code",
	}, []string{"code"})
)

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
