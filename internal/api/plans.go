package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/studytime-tracker/studytime/internal/domain"
	"github.com/studytime-tracker/studytime/internal/infra/sqlite"
)

// ─── Plan Handlers ──────────────────────────────────────────────────────────

// handleCreatePlan creates a study plan with its initial tasks.
// POST /api/plans  {child_id, plan_date, title, tasks: [...]}
func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildID  int64            `json:"child_id"`
		PlanDate string           `json:"plan_date"`
		Title    string           `json:"title"`
		Tasks    []sqlite.NewTask `json:"tasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlanDate == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "plan_date and title are required")
		return
	}

	child, err := s.db.GetUser(r.Context(), req.ChildID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if child.Role != domain.RoleChild {
		writeDomainError(w, domain.ErrNotAChild)
		return
	}

	plan, err := s.db.CreatePlan(r.Context(), req.ChildID, req.PlanDate, req.Title, req.Tasks)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// handleListPlans lists plans, optionally filtered by child and/or date.
// GET /api/plans?child_id=&plan_date=
func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	var childID int64
	if v := r.URL.Query().Get("child_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid child_id")
			return
		}
		childID = id
	}
	day := r.URL.Query().Get("plan_date")

	plans, err := s.db.ListPlans(r.Context(), childID, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if plans == nil {
		plans = []domain.StudyPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// handleGetPlan returns one plan with its tasks.
// GET /api/plans/{id}
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan id")
		return
	}
	plan, err := s.db.GetPlan(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleDeletePlan removes a plan and its tasks.
// DELETE /api/plans/{id}
func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan id")
		return
	}
	if err := s.db.DeletePlan(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "plan deleted"})
}

// handleAddTask appends a task to an existing plan.
// POST /api/plans/{id}/tasks
func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan id")
		return
	}
	var task sqlite.NewTask
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	plan, err := s.db.AddTask(r.Context(), id, task)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
