// Package api provides the HTTP server for the study-time tracker.
// Routing and request/response schemas live here; the reward engine and
// the sqlite stores do the actual work.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studytime-tracker/studytime/internal/app/reward"
	"github.com/studytime-tracker/studytime/internal/domain"
	"github.com/studytime-tracker/studytime/internal/infra/sqlite"
)

// Server is the HTTP API server.
type Server struct {
	db             *sqlite.DB
	engine         *reward.Engine
	sessions       *sessionStore
	grantHub       *GrantHub
	metricsEnabled bool
}

// NewServer creates a new API server around the store and reward engine.
func NewServer(db *sqlite.DB, engine *reward.Engine) *Server {
	return &Server{
		db:       db,
		engine:   engine,
		sessions: newSessionStore(),
		grantHub: NewGrantHub(),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// GrantHub returns the live grant feed hub (for broadcasting events).
func (s *Server) GrantHub() *GrantHub { return s.grantHub }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/users", s.handleListUsers)
		r.Get("/users/{id}", s.handleGetUser)
	})

	r.Route("/api/plans", func(r chi.Router) {
		r.Post("/", s.handleCreatePlan)
		r.Get("/", s.handleListPlans)
		r.Get("/{id}", s.handleGetPlan)
		r.Delete("/{id}", s.handleDeletePlan)
		r.Post("/{id}/tasks", s.handleAddTask)
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/{id}", s.handleGetTask)
		r.Post("/{id}/start", s.handleStartTask)
		r.Post("/{id}/complete", s.handleCompleteTask)
		r.Post("/{id}/approve", s.handleApproveTask)
		r.Post("/{id}/reject", s.handleRejectTask)
		r.Get("/dashboard/child/{id}", s.handleChildDashboard)
		r.Get("/dashboard/parent", s.handleParentDashboard)
	})

	r.Route("/api/rules", func(r chi.Router) {
		r.Post("/", s.handleCreateRule)
		r.Get("/", s.handleListRules)
		r.Get("/{id}", s.handleGetRule)
		r.Patch("/{id}", s.handleUpdateRule)
		r.Delete("/{id}", s.handleDeleteRule)
		r.Post("/seed-defaults", s.handleSeedRules)
	})

	r.Route("/api/wallet", func(r chi.Router) {
		r.Get("/feed", s.grantHub.HandleGrantSSE)
		r.Get("/{childID}", s.handleGetWallet)
		r.Post("/{childID}/adjust", s.handleAdjustWallet)
		r.Patch("/{childID}/settings", s.handleWalletSettings)
		r.Post("/{childID}/consume", s.handleConsume)
		r.Get("/{childID}/logs", s.handleConsumptionLogs)
		r.Get("/{childID}/rewards", s.handleGrantLogs)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps domain sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrRuleNotFound),
		errors.Is(err, domain.ErrWalletNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrBadTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrWrongPIN):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotAParent), errors.Is(err, domain.ErrNotAChild):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// pathID parses a numeric chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// corsMiddleware adds CORS headers for the local dashboard frontend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
