package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wallet_client"

var (
	// BalanceUpdates counts catalog replacements by source (push, rest).
	BalanceUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_updates_total",
		Help:      "Asset catalog replacements by source.",
	}, []string{"source"})

	// RefreshOutcomes counts manual refresh results.
	RefreshOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_refresh_total",
		Help:      "Manual balance refresh outcomes.",
	}, []string{"outcome"})

	// PushReconnects counts push channel (re)connect attempts by result.
	PushReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_connect_attempts_total",
		Help:      "Push channel connect attempts.",
	}, []string{"result"})

	// Withdrawals counts submitted withdrawals by outcome.
	Withdrawals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "withdrawals_total",
		Help:      "Withdrawal submissions by outcome.",
	}, []string{"outcome"})

	// SubmitDuration observes the full PIN-verify + send round trip.
	SubmitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "withdrawal_submit_seconds",
		Help:      "Duration of withdrawal submission.",
		Buckets:   prometheus.DefBuckets,
	})

	registerOnce sync.Once
)

// MustRegisterMetrics registers all collectors with the default registry. Safe to call twice.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(BalanceUpdates, RefreshOutcomes, PushReconnects, Withdrawals, SubmitDuration)
	})
}
