package domain

import (
	"encoding/json"
	"time"
)

// ─── Trigger Types ──────────────────────────────────────────────────────────

// TriggerKind is the closed set of reward rule triggers.
// An unknown kind read from storage is not an error: the engine
// evaluates it as "not satisfied" and skips the rule.
type TriggerKind string

const (
	// TriggerHomeworkComplete fires when every homework task across all of
	// the day's plans is approved, and at least one homework task exists.
	TriggerHomeworkComplete TriggerKind = "all_homework_done"

	// TriggerTimeThreshold fires when approved study minutes for the day
	// reach the condition's threshold.
	TriggerTimeThreshold TriggerKind = "study_time_reached"

	// TriggerTaskComplete fires when any task for the day is approved.
	// The name predates the approval flow; the check is against the
	// approved state, not completed-pending-approval.
	TriggerTaskComplete TriggerKind = "task_completed"

	// TriggerStreak fires when the homework-complete check holds for each
	// of the last N consecutive days ending today.
	TriggerStreak TriggerKind = "streak"
)

// IsValid reports whether the kind is one of the known variants.
func (k TriggerKind) IsValid() bool {
	switch k {
	case TriggerHomeworkComplete, TriggerTimeThreshold, TriggerTaskComplete, TriggerStreak:
		return true
	default:
		return false
	}
}

// Defaults applied when a rule's condition omits a parameter.
const (
	DefaultThresholdMinutes = 60
	DefaultStreakDays       = 7
)

// TriggerCondition carries the kind-specific parameters of a rule.
// Only the field relevant to the rule's kind is consulted.
type TriggerCondition struct {
	Minutes int `json:"minutes,omitempty"` // time-threshold target
	Days    int `json:"days,omitempty"`    // streak length
}

// ThresholdMinutes returns the configured minute target, or the default.
func (c TriggerCondition) ThresholdMinutes() int {
	if c.Minutes > 0 {
		return c.Minutes
	}
	return DefaultThresholdMinutes
}

// StreakDays returns the configured streak length, or the default.
func (c TriggerCondition) StreakDays() int {
	if c.Days > 0 {
		return c.Days
	}
	return DefaultStreakDays
}

// ParseTriggerCondition decodes the condition JSON stored on a rule.
// Empty or malformed input degrades to the zero condition, whose
// accessors fall back to the documented defaults.
func ParseTriggerCondition(raw string) TriggerCondition {
	var c TriggerCondition
	if raw == "" {
		return c
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return TriggerCondition{}
	}
	return c
}

// ─── Reward Rules ───────────────────────────────────────────────────────────

// RewardRule maps a trigger condition to activity minutes.
// Rules are read-only during evaluation; deactivation is a soft
// disable via IsActive, never a mid-cycle delete.
type RewardRule struct {
	ID            int64            `json:"id"`
	Kind          TriggerKind      `json:"trigger_type"`
	Condition     TriggerCondition `json:"trigger_condition"`
	RewardMinutes int              `json:"reward_minutes"`
	Description   string           `json:"description"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ─── Wallet & Ledger Types ──────────────────────────────────────────────────

// DefaultDailyLimitMinutes caps grant-earned balance at two hours per day.
const DefaultDailyLimitMinutes = 120

// Wallet holds a child's earned activity minutes. One per child.
// Grants never push Balance above DailyLimit (the ledger applies
// min(balance+reward, limit) when crediting); manual adjustments may.
type Wallet struct {
	ChildID    int64     `json:"child_id"`
	Balance    int       `json:"balance_minutes"`
	DailyLimit int       `json:"daily_limit_minutes"`
	CarryOver  bool      `json:"carry_over"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ActivityKind classifies what earned minutes were spent on.
type ActivityKind string

const (
	ActivitySwitch ActivityKind = "switch"
	ActivityTablet ActivityKind = "tablet"
	ActivityOther  ActivityKind = "other"
)

// IsValid reports whether the kind is one of the known variants.
func (k ActivityKind) IsValid() bool {
	return k == ActivitySwitch || k == ActivityTablet || k == ActivityOther
}

// GrantRecord is an append-only fact: rule R paid child C on day D.
// (ChildID, RuleID, GrantedDate) is the idempotency key — at most one
// record per triple, enforced by the store. GrantedMinutes records the
// offered reward even when the daily cap absorbed less.
type GrantRecord struct {
	ID             int64     `json:"id"`
	ChildID        int64     `json:"child_id"`
	RuleID         int64     `json:"rule_id"`
	GrantedMinutes int       `json:"granted_minutes"`
	GrantedDate    string    `json:"granted_date"` // YYYY-MM-DD
	CreatedAt      time.Time `json:"created_at"`
}

// ConsumptionRecord is an append-only fact: minutes debited from a wallet.
// Negative minutes represent a manual credit (parent bonus).
type ConsumptionRecord struct {
	ID              int64        `json:"id"`
	ChildID         int64        `json:"child_id"`
	Kind            ActivityKind `json:"activity_type"`
	Description     string       `json:"description,omitempty"`
	ConsumedMinutes int          `json:"consumed_minutes"`
	Source          string       `json:"source,omitempty"` // "consumption", "manual", or rule description
	CreatedAt       time.Time    `json:"created_at"`
}

// GrantResult is one newly granted reward returned by an evaluation cycle.
type GrantResult struct {
	RuleID         int64  `json:"rule_id"`
	Description    string `json:"description"`
	GrantedMinutes int    `json:"granted_minutes"`
	NewBalance     int    `json:"new_balance"`
}
