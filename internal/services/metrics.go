// Prometheus instrumentation for the pipeline. Label sets are kept small and
// enumerable: outcomes, waterfall legs, and model names only, never case or
// tenant identifiers.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// extractionsTotal counts finished extraction tasks by outcome
	// (success, error, skipped_duplicate).
	extractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_extractions_total",
			Help: "Total number of document extraction tasks by outcome.",
		},
		[]string{"outcome"},
	)

	// faninChecksTotal counts fan-in completion checks by result
	// (pending, triggered, duplicate, no_success).
	faninChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_fanin_checks_total",
			Help: "Total number of fan-in completion checks by result.",
		},
		[]string{"result"},
	)

	// outboxMessagesTotal counts outbox deliveries by result
	// (processed, retried, failed).
	outboxMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_outbox_messages_total",
			Help: "Total number of outbox message deliveries by result.",
		},
		[]string{"result"},
	)

	// generationCallsTotal counts provider calls by waterfall leg
	// (cached, no_cache, fallback) and outcome (success, error).
	generationCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_generation_calls_total",
			Help: "Total number of report generation provider calls by waterfall leg and outcome.",
		},
		[]string{"leg", "outcome"},
	)

	// generationTokens accumulates provider token usage by kind
	// (input, output, cached).
	generationTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_generation_tokens_total",
			Help: "Total provider token usage by kind.",
		},
		[]string{"kind"},
	)

	// versionsTotal counts report versions created by kind
	// (draft, preliminary, final).
	versionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_report_versions_total",
			Help: "Total number of report versions created by kind.",
		},
		[]string{"kind"},
	)

	// rescuedCasesTotal counts cases reset to OPEN by the zombie sweep.
	rescuedCasesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_rescued_cases_total",
			Help: "Total number of stuck cases reset to OPEN by the rescue sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		extractionsTotal,
		faninChecksTotal,
		outboxMessagesTotal,
		generationCallsTotal,
		generationTokens,
		versionsTotal,
		rescuedCasesTotal,
	)
}
