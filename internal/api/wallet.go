package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/studytime-tracker/studytime/internal/domain"
	"github.com/studytime-tracker/studytime/internal/infra/observability"
)

// ─── Wallet Handlers ────────────────────────────────────────────────────────

// handleGetWallet returns a child's activity wallet.
// GET /api/wallet/{childID}
func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child id")
		return
	}
	wallet, err := s.db.GetWallet(r.Context(), childID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// handleAdjustWallet applies a manual balance change (parent action).
// Positive minutes add time, negative subtract. The daily cap does not apply.
// POST /api/wallet/{childID}/adjust  {minutes, reason}
func (s *Server) handleAdjustWallet(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child id")
		return
	}
	var req struct {
		Minutes int    `json:"minutes"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wallet, err := s.db.Adjust(r.Context(), childID, req.Minutes, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// handleWalletSettings updates the daily limit and carry-over policy.
// PATCH /api/wallet/{childID}/settings  {daily_limit_minutes, carry_over}
func (s *Server) handleWalletSettings(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child id")
		return
	}
	var req struct {
		DailyLimitMinutes int   `json:"daily_limit_minutes"`
		CarryOver         *bool `json:"carry_over"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wallet, err := s.db.UpdateWalletSettings(r.Context(), childID, req.DailyLimitMinutes, req.CarryOver)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// handleConsume records activity consumption (e.g. 30 min of Switch play).
// POST /api/wallet/{childID}/consume  {activity_type, consumed_minutes, description}
func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child id")
		return
	}
	var req struct {
		ActivityType    string `json:"activity_type"`
		ConsumedMinutes int    `json:"consumed_minutes"`
		Description     string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConsumedMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "consumed_minutes must be positive")
		return
	}

	rec, err := s.db.Consume(r.Context(), childID, domain.ActivityKind(req.ActivityType), req.ConsumedMinutes, req.Description)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			observability.RejectedConsumptions.Inc()
		}
		writeDomainError(w, err)
		return
	}
	observability.ConsumedMinutes.Add(float64(req.ConsumedMinutes))
	writeJSON(w, http.StatusOK, rec)
}

// handleConsumptionLogs returns a child's consumption history.
// GET /api/wallet/{childID}/logs?limit=
func (s *Server) handleConsumptionLogs(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child id")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	logs, err := s.db.ListConsumptions(r.Context(), childID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if logs == nil {
		logs = []domain.ConsumptionRecord{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleGrantLogs returns a child's reward grant history.
// GET /api/wallet/{childID}/rewards?granted_date=
func (s *Server) handleGrantLogs(w http.ResponseWriter, r *http.Request) {
	childID, err := pathID(r, "childID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child id")
		return
	}
	grants, err := s.db.ListGrants(r.Context(), childID, r.URL.Query().Get("granted_date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if grants == nil {
		grants = []domain.GrantRecord{}
	}
	writeJSON(w, http.StatusOK, grants)
}

// ─── Live Grant Feed ────────────────────────────────────────────────────────
// Dashboards subscribe here to show rewards the moment a parent approves
// the triggering task. Delivered via Server-Sent Events for HTTP/2
// friendliness — no extra websocket dependency.

// GrantEvent is one reward grant pushed to connected dashboards.
type GrantEvent struct {
	Type           string `json:"type"` // "reward_granted"
	ChildID        int64  `json:"child_id"`
	RuleID         int64  `json:"rule_id"`
	Description    string `json:"description"`
	GrantedMinutes int    `json:"granted_minutes"`
	NewBalance     int    `json:"new_balance"`
	Timestamp      int64  `json:"timestamp"`
}

// GrantHub manages SSE subscribers for the live grant feed.
type GrantHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewGrantHub creates a new grant broadcast hub.
func NewGrantHub() *GrantHub {
	return &GrantHub{clients: make(map[chan []byte]struct{})}
}

// Broadcast sends a grant event to all connected clients.
func (h *GrantHub) Broadcast(event GrantEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Client too slow — drop message
		}
	}
}

// Subscribe registers a new client. Returns the channel and an unsubscribe func.
func (h *GrantHub) Subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (h *GrantHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleGrantSSE serves the live grant feed.
// GET /api/wallet/feed
func (h *GrantHub) HandleGrantSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch, unsub := h.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
