package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_turns_total",
			Help: "Total number of processed turns by outcome and follow-up kind",
		},
		[]string{"outcome", "follow_up"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesagent_turn_duration_seconds",
			Help:    "End-to-end turn latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"outcome"},
	)

	OracleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_oracle_calls_total",
			Help: "Language model calls by purpose, model and outcome",
		},
		[]string{"purpose", "model", "outcome"},
	)

	OracleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesagent_oracle_duration_seconds",
			Help:    "Language model call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"purpose"},
	)

	OracleTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_oracle_tokens_total",
			Help: "Tokens reported by the language model provider",
		},
		[]string{"purpose", "model", "direction"},
	)

	OracleCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_oracle_cost_usd_total",
			Help: "Estimated language model spend in USD",
		},
		[]string{"model"},
	)

	ClassificationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesagent_classification_fallbacks_total",
			Help: "Turns whose classification degraded to the safe default",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_events_published_total",
			Help: "Telemetry events by name and publish outcome",
		},
		[]string{"event", "outcome"},
	)
)
