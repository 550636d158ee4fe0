package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mfa_attempts_total",
	Help: "Authentication attempts by outcome (initiated, succeeded, cancelled, failed).",
}, []string{"outcome"})
