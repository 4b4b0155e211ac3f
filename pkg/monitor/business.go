package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds the relay pipeline metrics.
type BusinessMetrics struct {
	RelayTotal             *prometheus.CounterVec
	BroadcastDuration      *prometheus.HistogramVec
	QuorumSignDuration     prometheus.Histogram
	SignatureCacheHitTotal prometheus.Counter
	MirrorFailureTotal     *prometheus.CounterVec
	SequenceStepTotal      *prometheus.CounterVec
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics initializes the business metrics.
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		RelayTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_invocations_total",
			Help: "Total relay invocations by flow and outcome",
		}, []string{"flow", "outcome"}),
		BroadcastDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_broadcast_duration_seconds",
			Help:    "Time from submission to one confirmation",
			Buckets: []float64{1, 2.5, 5, 10, 20, 45, 90},
		}, []string{"chain"}),
		QuorumSignDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_quorum_sign_duration_seconds",
			Help:    "Duration of quorum signing round-trips",
			Buckets: prometheus.DefBuckets,
		}),
		SignatureCacheHitTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_signature_cache_hits_total",
			Help: "Signing requests served from a prior signature on the same digest",
		}),
		MirrorFailureTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_mirror_failures_total",
			Help: "Secondary-chain mirror write failures recorded for reconciliation",
		}, []string{"chain"}),
		SequenceStepTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_sequence_steps_total",
			Help: "Sequenced transaction steps by final status",
		}, []string{"status"}),
	}
}
