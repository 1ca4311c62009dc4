package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "corelib_httpclient",
			Name:      "requests_total",
			Help:      "Round trips by method and outcome (ok, http_error, network_error).",
		},
		[]string{"method", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "corelib_httpclient",
			Name:      "request_duration_seconds",
			Help:      "Round trip latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corelib_httpclient",
		Name:      "cache_hits_total",
		Help:      "GETs served from the response cache.",
	})

	sharedRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corelib_httpclient",
		Name:      "shared_requests_total",
		Help:      "GETs that joined an identical in-flight round trip.",
	})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corelib_httpclient",
		Name:      "retries_total",
		Help:      "GET attempts after the first.",
	})
)
