package simulator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rounds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lbsim_rounds_total",
		Help: "Completed submit/top/rank rounds",
	})

	submitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lbsim_scores_submitted_total",
		Help: "Score submissions the leaderboard accepted",
	})
)
