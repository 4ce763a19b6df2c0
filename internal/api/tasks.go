package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/studytime-tracker/studytime/internal/domain"
	"github.com/studytime-tracker/studytime/internal/infra/observability"
)

// ─── Task Lifecycle Handlers ────────────────────────────────────────────────

// handleGetTask returns one task.
// GET /api/tasks/{id}
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := s.db.GetTask(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleStartTask marks a task as in-progress (child starts studying).
// POST /api/tasks/{id}/start
func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := s.db.StartTask(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleCompleteTask marks a task as completed (child finished studying).
// POST /api/tasks/{id}/complete  {actual_minutes}
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req struct {
		ActualMinutes int `json:"actual_minutes"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req) // body is optional
	}
	task, err := s.db.CompleteTask(r.Context(), id, req.ActualMinutes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleApproveTask approves a completed task (parent action) and runs a
// reward evaluation cycle for the owning child.
// POST /api/tasks/{id}/approve  {parent_id}
func (s *Server) handleApproveTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req struct {
		ParentID int64 `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	parent, err := s.db.GetUser(r.Context(), req.ParentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if parent.Role != domain.RoleParent {
		writeDomainError(w, domain.ErrNotAParent)
		return
	}

	task, err := s.db.ApproveTask(r.Context(), id, req.ParentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.TasksApproved.Inc()

	childID, err := s.db.PlanChildID(r.Context(), task.PlanID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	granted, err := s.engine.EvaluateAndGrant(r.Context(), childID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	for _, g := range granted {
		s.grantHub.Broadcast(GrantEvent{
			Type:           "reward_granted",
			ChildID:        childID,
			RuleID:         g.RuleID,
			Description:    g.Description,
			GrantedMinutes: g.GrantedMinutes,
			NewBalance:     g.NewBalance,
			Timestamp:      time.Now().Unix(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task":            task,
		"rewards_granted": granted,
	})
}

// handleRejectTask sends a completed task back to the child.
// POST /api/tasks/{id}/reject
func (s *Server) handleRejectTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := s.db.RejectTask(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
