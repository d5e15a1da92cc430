package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus counters for the matching and logging pipeline. Registered on
// the default registry; the HTTP layer decides whether /metrics is exposed.

var queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ticksnap_queries_total",
	Help: "Payment queries handled, by resolution outcome.",
}, []string{"outcome"})

var choicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ticksnap_choices_total",
	Help: "Disambiguation choices handled, by result.",
}, []string{"result"})

var paymentsLoggedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ticksnap_payments_logged_total",
	Help: "Payment rows successfully appended to the log.",
})

var appendRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ticksnap_log_append_retries_total",
	Help: "Row collisions recovered by the append retry loop.",
})

var appendConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ticksnap_log_append_conflicts_total",
	Help: "Appends abandoned after exhausting the retry bound.",
})
