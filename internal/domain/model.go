// Package domain holds the tracker's core types: family members, study
// plans and tasks, reward rules, and the activity wallet ledger. It has
// no infrastructure dependencies; the sqlite store and the HTTP layer
// build on top of it.
package domain

import "time"

// ─── User Types ─────────────────────────────────────────────────────────────

// Role distinguishes parents from children.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// IsValid reports whether the role is one of the known variants.
func (r Role) IsValid() bool {
	return r == RoleParent || r == RoleChild
}

// User is a family member. Children own a wallet and study plans;
// parents approve tasks and adjust wallets.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	PINHash   string    `json:"-"` // bcrypt hash, empty when no PIN set
	CreatedAt time.Time `json:"created_at"`
}

// ─── Study Plan Types ───────────────────────────────────────────────────────

// TaskStatus is the lifecycle state of a study task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed" // finished, awaiting parent approval
	StatusApproved   TaskStatus = "approved"
	StatusRejected   TaskStatus = "rejected"
)

// IsValid reports whether the status is one of the known variants.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// DefaultEstimatedMinutes is assigned when a task is created without an estimate.
const DefaultEstimatedMinutes = 30

// StudyTask is a single unit of study work inside a plan.
type StudyTask struct {
	ID               int64      `json:"id"`
	PlanID           int64      `json:"plan_id"`
	Subject          string     `json:"subject"`
	Description      string     `json:"description,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	ActualMinutes    int        `json:"actual_minutes,omitempty"` // 0 = not recorded
	IsHomework       bool       `json:"is_homework"`
	Status           TaskStatus `json:"status"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	ApprovedBy       int64      `json:"approved_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// StudyMinutes returns the minutes this task counts toward a time-threshold
// trigger: actual minutes when recorded, otherwise the estimate.
func (t StudyTask) StudyMinutes() int {
	if t.ActualMinutes > 0 {
		return t.ActualMinutes
	}
	return t.EstimatedMinutes
}

// StudyPlan groups a child's tasks under a single calendar date.
type StudyPlan struct {
	ID        int64       `json:"id"`
	ChildID   int64       `json:"child_id"`
	PlanDate  string      `json:"plan_date"` // YYYY-MM-DD
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
	Tasks     []StudyTask `json:"tasks"`
}

// ─── Calendar Days ──────────────────────────────────────────────────────────

// DayOf formats a point in time as the calendar day it falls on.
// All date logic in the reward engine operates on these strings;
// YYYY-MM-DD compares correctly as text.
func DayOf(t time.Time) string {
	return t.Format(time.DateOnly)
}

// PrevDay returns the calendar day n days before day.
// Invalid input is returned unchanged — callers only pass DayOf output.
func PrevDay(day string, n int) string {
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, -n).Format(time.DateOnly)
}
