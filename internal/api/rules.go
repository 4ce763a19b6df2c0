package api

import (
	"encoding/json"
	"net/http"

	"github.com/studytime-tracker/studytime/internal/domain"
	"github.com/studytime-tracker/studytime/internal/infra/sqlite"
)

// ─── Reward Rule Handlers ───────────────────────────────────────────────────

// handleCreateRule creates a reward rule.
// POST /api/rules
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind          domain.TriggerKind      `json:"trigger_type"`
		Condition     domain.TriggerCondition `json:"trigger_condition"`
		RewardMinutes int                     `json:"reward_minutes"`
		Description   string                  `json:"description"`
		IsActive      *bool                   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Kind.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown trigger_type")
		return
	}
	if req.RewardMinutes < 0 {
		writeError(w, http.StatusBadRequest, "reward_minutes must be non-negative")
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	rule, err := s.db.CreateRule(r.Context(), domain.RewardRule{
		Kind:          req.Kind,
		Condition:     req.Condition,
		RewardMinutes: req.RewardMinutes,
		Description:   req.Description,
		IsActive:      active,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// handleListRules lists rules, optionally only active ones.
// GET /api/rules?active_only=true
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	rules, err := s.db.ListRules(r.Context(), activeOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rules == nil {
		rules = []domain.RewardRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// handleGetRule returns one rule.
// GET /api/rules/{id}
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	rule, err := s.db.GetRule(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// handleUpdateRule applies a partial update to a rule.
// PATCH /api/rules/{id}
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	var upd sqlite.RuleUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if upd.Kind != nil && !upd.Kind.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown trigger_type")
		return
	}
	rule, err := s.db.UpdateRule(r.Context(), id, upd)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// handleDeleteRule removes a rule.
// DELETE /api/rules/{id}
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	if err := s.db.DeleteRule(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "rule deleted"})
}

// handleSeedRules installs the default household rule set.
// POST /api/rules/seed-defaults
func (s *Server) handleSeedRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.db.SeedDefaultRules(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}
