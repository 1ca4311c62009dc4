package shardqueue

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corelib_loop",
		Name:      "submissions_total",
		Help:      "Jobs accepted per shard.",
	}, []string{"shard"})

	queueFullTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corelib_loop",
		Name:      "queue_full_total",
		Help:      "Submits rejected because the shard stayed full.",
	}, []string{"shard"})

	panicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corelib_loop",
		Name:      "job_panics_total",
		Help:      "Jobs that panicked.",
	}, []string{"shard"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "corelib_loop",
		Name:      "job_run_seconds",
		Help:      "Job run time.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"shard"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "corelib_loop",
		Name:      "queue_depth",
		Help:      "Jobs waiting per shard.",
	}, []string{"shard"})
)

func labelFor(shard int) string { return strconv.Itoa(shard) }
