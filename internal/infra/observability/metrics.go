// Package observability defines the Prometheus metrics exposed on /metrics.
// Counters are registered once via promauto and shared process-wide.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Reward Engine Metrics ──────────────────────────────────────────────────

var (
	// Evaluations counts reward evaluation cycles.
	Evaluations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studytime_reward_evaluations_total",
		Help: "Number of reward evaluation cycles run.",
	})

	// Grants counts rewards granted.
	Grants = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studytime_reward_grants_total",
		Help: "Number of rewards granted.",
	})

	// GrantedMinutes accumulates offered reward minutes across all grants.
	GrantedMinutes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studytime_reward_granted_minutes_total",
		Help: "Total reward minutes granted (before daily-cap truncation).",
	})
)

// ─── Wallet Metrics ─────────────────────────────────────────────────────────

var (
	// ConsumedMinutes accumulates minutes debited for activity time.
	ConsumedMinutes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studytime_wallet_consumed_minutes_total",
		Help: "Total activity minutes consumed from wallets.",
	})

	// RejectedConsumptions counts consumption requests refused for
	// insufficient balance.
	RejectedConsumptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studytime_wallet_rejected_consumptions_total",
		Help: "Consumption requests rejected for insufficient balance.",
	})

	// TasksApproved counts parent task approvals.
	TasksApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studytime_tasks_approved_total",
		Help: "Number of study tasks approved by a parent.",
	})
)
