package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts billing webhook requests by event type and status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealbyme",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total billing webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks billing webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mealbyme",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Billing webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// ReconcileResults counts reconciler outcomes (applied, unresolved, failed).
	ReconcileResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealbyme",
		Subsystem: "billing",
		Name:      "reconcile_results_total",
		Help:      "Billing event reconciliation outcomes.",
	}, []string{"event_type", "result"})

	// GenerationSubmissions counts generation jobs submitted by kind (plan, swap, recipe).
	GenerationSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealbyme",
		Subsystem: "generation",
		Name:      "submissions_total",
		Help:      "Generation jobs submitted to the assistant service.",
	}, []string{"kind"})

	// PollOutcomes counts poll steps by resulting run state.
	PollOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealbyme",
		Subsystem: "generation",
		Name:      "poll_outcomes_total",
		Help:      "Run status polls by resulting state.",
	}, []string{"state"})

	// Materializations counts materialization attempts by kind and result.
	Materializations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealbyme",
		Subsystem: "generation",
		Name:      "materializations_total",
		Help:      "Meal plan materializations by kind (plan, swap) and result.",
	}, []string{"kind", "result"})

	// SweptPlans counts abandoned provisional meal plans removed by the sweeper.
	SweptPlans = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mealbyme",
		Subsystem: "generation",
		Name:      "swept_plans_total",
		Help:      "Provisional meal plans deleted after their generation was abandoned.",
	})
)
