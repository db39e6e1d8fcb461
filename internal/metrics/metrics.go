// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "radrush",
		Name:      "sessions_started_total",
		Help:      "Quiz sessions started, by mode.",
	}, []string{"mode"})

	SessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "radrush",
		Name:      "sessions_finished_total",
		Help:      "Quiz sessions that reached the final question, by mode.",
	}, []string{"mode"})

	Answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "radrush",
		Name:      "answers_total",
		Help:      "Resolved questions by outcome (correct, incorrect, timeout).",
	}, []string{"outcome"})

	LeaderboardMerges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "radrush",
		Name:      "leaderboard_merges_total",
		Help:      "Leaderboard merges by result (ok, load_error, save_error).",
	}, []string{"result"})

	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "radrush",
		Name:      "question_generations_total",
		Help:      "Question generation requests by result.",
	}, []string{"result"})
)
