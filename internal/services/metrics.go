package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// workflowPending tracks dispatched requests that have not resolved yet,
	// including superseded ones whose responses will be discarded.
	workflowPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workflow_requests_pending",
			Help: "Number of remote requests in flight.",
		},
		[]string{"operation"},
	)

	workflowStale = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_stale_responses_total",
			Help: "Responses discarded because they were issued against a superseded image.",
		},
		[]string{"operation"},
	)

	workflowRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_rejections_total",
			Help: "Intents rejected synchronously, by reason (precondition or busy).",
		},
		[]string{"operation", "reason"},
	)

	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "workflow_sessions_active",
		Help: "Number of open workflow sessions.",
	})
)

const (
	reasonPrecondition = "precondition"
	reasonBusy         = "busy"
)

func init() {
	prometheus.MustRegister(workflowPending, workflowStale, workflowRejections, sessionsActive)
}
