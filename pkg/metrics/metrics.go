package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConsentRequests counts consent request submissions by result (success|invalid|error).
	ConsentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeloop_consent_requests_total",
			Help: "Total number of parent consent requests",
		},
		[]string{"result"},
	)

	// ConsentConfirmations counts confirmation link visits by outcome.
	ConsentConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeloop_consent_confirmations_total",
			Help: "Total number of consent confirmation attempts",
		},
		[]string{"outcome"},
	)

	// MediaRefreshes counts media refresh runs (success|precondition|upstream|error).
	MediaRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeloop_media_refresh_total",
			Help: "Total number of Instagram media refresh runs",
		},
		[]string{"result"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeloop_emails_sent_total",
			Help: "Total number of outbound emails by provider",
		},
		[]string{"provider", "result"},
	)

	VoiceRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeloop_voice_registrations_total",
			Help: "Total number of voice clone registrations",
		},
		[]string{"result"},
	)

	// PendingConfirmations tracks pending confirmations that have not expired.
	PendingConfirmations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lifeloop_pending_confirmations",
			Help: "Number of pending, unexpired parent confirmations",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifeloop_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Result maps an error to the success|error label used by the counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
