package leaderboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lbsim_requests_total",
		Help: "Requests sent to the leaderboard API by endpoint and response code (\"error\" when no response arrived)",
	}, []string{"endpoint", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lbsim_request_duration_seconds",
		Help:    "Time from sending a leaderboard API request to reading its full response",
		Buckets: prometheus.ExponentialBucketsRange(0.001, 10, 16),
	}, []string{"endpoint"})
)
