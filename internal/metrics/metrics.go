package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_payment_confirmations_total",
			Help: "Payment confirmations by outcome",
		},
		[]string{"outcome"},
	)

	LedgerEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_wallet_ledger_entries_total",
			Help: "Wallet ledger operations by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)

	Effects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_side_effects_total",
			Help: "Post-payment side effects by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	Withdrawals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_withdrawals_total",
			Help: "Withdrawal request transitions by type and resulting status",
		},
		[]string{"type", "status"},
	)

	GatewayVerifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settlement_gateway_verify_duration_seconds",
			Help:    "Duration of payment gateway verification calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
	)

	IdempotencyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_idempotency_requests_total",
			Help: "Requests carrying an Idempotency-Key by result (replayed, in_flight, stored, bypass)",
		},
		[]string{"result"},
	)
)
