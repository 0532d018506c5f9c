package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_received_total", Help: "Trade signals accepted by the engine"},
		[]string{"signal"},
	)
	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "correlation_outcomes_total", Help: "Correlation outcomes per signal (stored, paired, mismatch)"},
		[]string{"outcome"},
	)
	PairActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pair_actions_total", Help: "Classifier actions for matched pairs"},
		[]string{"action"},
	)
	HoldingsClosedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "holdings_closed_total", Help: "Holdings moved to Sent on reappearance"},
	)
	DispatchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dispatch_failures_total", Help: "Notifications that failed to deliver"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, OutcomesTotal, PairActionsTotal, HoldingsClosedTotal, DispatchFailuresTotal)
}

func Handler() http.Handler { return promhttp.Handler() }
