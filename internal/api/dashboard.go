package api

import (
	"net/http"
	"time"

	"github.com/studytime-tracker/studytime/internal/domain"
)

// ─── Dashboard Handlers ─────────────────────────────────────────────────────
// Read-only aggregation for the child and parent home screens. Nothing here
// feeds back into reward correctness; it only summarizes the ledgers.

// handleChildDashboard returns the child's view of today.
// GET /api/tasks/dashboard/child/{id}
func (s *Server) handleChildDashboard(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child id")
		return
	}
	ctx := r.Context()

	child, err := s.db.GetUser(ctx, childID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if child.Role != domain.RoleChild {
		writeDomainError(w, domain.ErrNotAChild)
		return
	}

	today := domain.DayOf(time.Now())

	plans, err := s.db.PlansOn(ctx, childID, today)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var todayPlan *domain.StudyPlan
	if len(plans) > 0 {
		todayPlan = &plans[0]
	}

	balance, dailyLimit := 0, domain.DefaultDailyLimitMinutes
	if wallet, err := s.db.GetWallet(ctx, childID); err == nil {
		balance, dailyLimit = wallet.Balance, wallet.DailyLimit
	}

	earned := 0
	grants, err := s.db.ListGrants(ctx, childID, today)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	for _, g := range grants {
		earned += g.GrantedMinutes
	}

	consumed := 0
	logs, err := s.db.ListConsumptions(ctx, childID, 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	for _, l := range logs {
		if domain.DayOf(l.CreatedAt) == today {
			consumed += l.ConsumedMinutes
		}
	}

	pending, completed, approved := 0, 0, 0
	if todayPlan != nil {
		for _, t := range todayPlan.Tasks {
			switch t.Status {
			case domain.StatusPending, domain.StatusInProgress:
				pending++
			case domain.StatusCompleted:
				completed++
			case domain.StatusApproved:
				approved++
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":            child,
		"today_plan":      todayPlan,
		"wallet_balance":  balance,
		"daily_limit":     dailyLimit,
		"today_earned":    earned,
		"today_consumed":  consumed,
		"pending_tasks":   pending,
		"completed_tasks": completed,
		"approved_tasks":  approved,
	})
}

// handleParentDashboard returns the household overview.
// GET /api/tasks/dashboard/parent
func (s *Server) handleParentDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	children, err := s.db.ListChildren(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if children == nil {
		children = []domain.User{}
	}

	pendingApprovals, err := s.db.ListTasksByStatus(ctx, domain.StatusCompleted)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if pendingApprovals == nil {
		pendingApprovals = []domain.StudyTask{}
	}

	todayPlans, err := s.db.ListPlans(ctx, 0, domain.DayOf(time.Now()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if todayPlans == nil {
		todayPlans = []domain.StudyPlan{}
	}

	activeRules, err := s.db.ListRules(ctx, true)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if activeRules == nil {
		activeRules = []domain.RewardRule{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"children":          children,
		"pending_approvals": pendingApprovals,
		"today_plans":       todayPlans,
		"active_rules":      activeRules,
	})
}
