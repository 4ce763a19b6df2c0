package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studytime-tracker/studytime/internal/domain"
)

// ─── PIN Auth ───────────────────────────────────────────────────────────────
// Family-grade authentication: a short PIN per user, stored as a bcrypt
// hash. Login hands out an opaque session token the frontend echoes back;
// there is no expiry — the tracker lives on the home network.

// sessionStore maps session tokens to user ids.
type sessionStore struct {
	mu     sync.RWMutex
	tokens map[string]int64
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]int64)}
}

func (s *sessionStore) issue(userID int64) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
	return token
}

// lookup resolves a token to a user id; 0 means unknown token.
func (s *sessionStore) lookup(token string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[token]
}

// handleRegister creates a parent or child user.
// POST /api/auth/register  {name, role, pin}
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Role string `json:"role"`
		PIN  string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role := domain.Role(req.Role)
	if req.Name == "" || !role.IsValid() {
		writeError(w, http.StatusBadRequest, "name and a valid role are required")
		return
	}

	pinHash := ""
	if req.PIN != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		pinHash = string(hash)
	}

	user, err := s.db.CreateUser(r.Context(), req.Name, role, pinHash)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleLogin authenticates by user id and optional PIN.
// POST /api/auth/login  {user_id, pin}
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64  `json:"user_id"`
		PIN    string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.db.GetUser(r.Context(), req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if user.PINHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PINHash), []byte(req.PIN)); err != nil {
			writeDomainError(w, domain.ErrWrongPIN)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": s.sessions.issue(user.ID),
	})
}

// handleListUsers returns all family members for the selection screen.
// GET /api/auth/users
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.db.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// handleGetUser returns one user.
// GET /api/auth/users/{id}
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := s.db.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
