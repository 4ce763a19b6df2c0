package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the reward engine depends on them.

// History is the read-only view of plans and tasks the trigger
// evaluator consumes. Implementations must never mutate.
type History interface {
	// PlansOn returns the child's plans for a calendar day, tasks included.
	PlansOn(ctx context.Context, childID int64, day string) ([]StudyPlan, error)
}

// RuleSource lists the rules an evaluation cycle considers.
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]RewardRule, error)
}

// LedgerStore is the mutable wallet/ledger surface of the reward engine.
type LedgerStore interface {
	// GetOrCreateWallet returns the child's wallet, creating an empty one
	// with default settings on first use.
	GetOrCreateWallet(ctx context.Context, childID int64) (*Wallet, error)

	// AlreadyGranted reports whether a grant record exists for the triple.
	AlreadyGranted(ctx context.Context, childID, ruleID int64, day string) (bool, error)

	// ApplyGrant atomically inserts the grant record and credits the
	// wallet with g.GrantedMinutes, capping the balance at the daily
	// limit. The credit is computed inside the store's transaction, so
	// concurrent grants for different rules never lose an update. A
	// concurrent duplicate for the same (child, rule, day) fails with
	// ErrDuplicateGrant and leaves the wallet untouched. Returns the
	// post-grant balance.
	ApplyGrant(ctx context.Context, g GrantRecord) (int, error)
}
