package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrNotAParent   = errors.New("action requires a parent user")
	ErrNotAChild    = errors.New("action requires a child user")
	ErrWrongPIN     = errors.New("PIN does not match")

	// Plan/task errors
	ErrPlanNotFound  = errors.New("study plan not found")
	ErrTaskNotFound  = errors.New("study task not found")
	ErrBadTransition = errors.New("task status does not allow this transition")

	// Rule errors
	ErrRuleNotFound = errors.New("reward rule not found")

	// Wallet/ledger errors
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("wallet balance is insufficient")
	ErrDuplicateGrant      = errors.New("reward already granted for this rule today")
)
