package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Vault operation metrics
	// ============================================
	DepositsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yieldgate_deposits_total",
		Help: "Total number of successful deposits",
	})

	WithdrawalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yieldgate_withdrawals_total",
		Help: "Total number of successful withdrawals",
	})

	AccrualRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yieldgate_accrual_runs_total",
			Help: "Total number of accrual runs by outcome",
		},
		[]string{"outcome"},
	)

	AccrualCapHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yieldgate_accrual_cap_hits_total",
		Help: "Total number of accrual runs clamped by the daily cap",
	})

	VaultTotalDeposited = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yieldgate_vault_total_deposited",
		Help: "Current total deposited value backing the vault",
	})

	VaultUtilizationBps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yieldgate_vault_utilization_bps",
		Help: "Current vault utilization in basis points",
	})

	VaultPaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yieldgate_vault_paused",
		Help: "Vault pause state (1=paused, 0=active)",
	})

	// ============================================
	// Ledger supply metrics
	// ============================================
	LedgerTotalSupply = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yieldgate_ledger_total_supply",
		Help: "Current rebasing total supply",
	})

	LedgerTotalShares = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yieldgate_ledger_total_shares",
		Help: "Current total shares outstanding",
	})

	// ============================================
	// Cross-ledger transfer metrics
	// ============================================
	TransfersOutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yieldgate_transfers_out_total",
			Help: "Total outbound cross-ledger transfers by destination chain",
		},
		[]string{"dest_chain"},
	)

	TransfersInTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yieldgate_transfers_in_total",
			Help: "Total inbound cross-ledger transfers by source chain",
		},
		[]string{"source_chain"},
	)

	TransfersRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yieldgate_transfers_rejected_total",
			Help: "Total rejected transfers by reason",
		},
		[]string{"reason"},
	)

	DuplicateMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yieldgate_duplicate_messages_total",
		Help: "Total inbound intents dropped as already processed",
	})

	RateLimitBucketAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yieldgate_rate_limit_bucket_available",
			Help: "Available token bucket capacity per counterparty chain",
		},
		[]string{"chain"},
	)

	// ============================================
	// NATS relay metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yieldgate_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yieldgate_nats_messages_received_total",
			Help: "Total number of NATS messages received",
		},
		[]string{"subject"},
	)

	NATSMessagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yieldgate_nats_messages_failed_total",
			Help: "Total number of NATS messages failed to process",
		},
		[]string{"subject", "error_type"},
	)
)
