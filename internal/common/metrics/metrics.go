package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"task_type"},
	)

	GenerationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_attempts_total",
			Help: "Remote generation attempts by policy and outcome",
		},
		[]string{"policy", "outcome"},
	)

	GenerationExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_retries_exhausted_total",
			Help: "Calls that failed on every attempt",
		},
		[]string{"policy"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_call_duration_seconds",
			Help:    "Wall-clock duration of a generation call including retries",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 15, 30, 60},
		},
		[]string{"policy"},
	)

	GenerationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_outcomes_total",
			Help: "Operation results by kind and failure class",
		},
		[]string{"kind", "failure"},
	)

	GenerationTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_tokens_total",
			Help: "Tokens reported by the model per operation kind",
		},
		[]string{"kind"},
	)

	FallbackAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_fallback_answers_total",
			Help: "Local template answers served instead of a model reply",
		},
		[]string{"topic"},
	)

	QuotaDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_quota_denials_total",
			Help: "Generation requests refused by the credit ledger",
		},
		[]string{"reason"},
	)

	PromptStoreLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_store_lookups_total",
			Help: "Prompt template lookups by source",
		},
		[]string{"source"},
	)

	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degradation_alerts_total",
			Help: "Degradation alerts by publish status",
		},
		[]string{"status"},
	)
)
