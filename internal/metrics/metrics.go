package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BetsPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bets_placed_total",
			Help: "Total bets accepted",
		},
	)
	BetsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bets_rejected_total",
			Help: "Total bets rejected",
		},
		[]string{"reason"}, // closed|invalid|insufficient_funds
	)
	SettlementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Total questions settled",
		},
	)
	PayoutUnits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payout_units_total",
			Help: "Total currency units distributed to winners",
		},
	)
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transactions_total",
			Help: "Total committed wallet transactions",
		},
		[]string{"kind"}, // credit|debit
	)
)

// Handler serves the /metrics endpoint
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(BetsPlaced)
	prometheus.MustRegister(BetsRejected)
	prometheus.MustRegister(SettlementsTotal)
	prometheus.MustRegister(PayoutUnits)
	prometheus.MustRegister(TransactionsTotal)
}
