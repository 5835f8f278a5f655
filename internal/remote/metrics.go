package remote

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK      = "ok"
	outcomeNetwork = "network_error"
	outcomeRemote  = "remote_error"
)

var (
	// remoteReqs counts backend calls by operation and outcome.
	remoteReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_requests_total",
			Help: "Total number of calls to the AI backend.",
		},
		[]string{"operation", "outcome"},
	)

	// remoteLat records call duration; image generation runs for tens of
	// seconds on CPU backends, hence the long tail buckets.
	remoteLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_request_duration_seconds",
			Help:    "Duration of calls to the AI backend in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(remoteReqs, remoteLat)
}
