package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatMessagesTotal counts processed chat events by outcome and source.
	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_chat_messages_total",
			Help: "Chat events processed by the ingestion pipeline",
		},
		[]string{"source", "outcome"},
	)

	ParticipantsRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giveaway_participants_registered_total",
			Help: "New participants registered across all giveaways",
		},
	)

	// DrawsTotal counts winner draws by result (winner, no_participants, error).
	DrawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_draws_total",
			Help: "Winner draws by result",
		},
		[]string{"result"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giveaway_store_errors_total",
			Help: "Store calls that failed with an infrastructure error",
		},
		[]string{"operation"},
	)

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giveaway_store_operation_duration_seconds",
			Help:    "Store call latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)
)
