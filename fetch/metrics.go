package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corelib_fetch",
			Name:      "attempts_total",
			Help:      "Finished attempts by primitive kind and outcome.",
		},
		[]string{"primitive", "outcome"},
	)

	droppedCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corelib_fetch",
			Name:      "dropped_completions_total",
			Help:      "Completions discarded because the primitive was closed or a newer attempt exists.",
		},
		[]string{"primitive", "reason"},
	)
)
