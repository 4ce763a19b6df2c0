package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/studytime-tracker/studytime/internal/domain"
)

// ─── Wallet Operations ──────────────────────────────────────────────────────

// GetWallet fetches a child's wallet.
func (db *DB) GetWallet(ctx context.Context, childID int64) (*domain.Wallet, error) {
	return getWallet(ctx, db.db, childID)
}

// GetOrCreateWallet implements domain.LedgerStore: the wallet is created
// lazily with default settings on first use.
func (db *DB) GetOrCreateWallet(ctx context.Context, childID int64) (*domain.Wallet, error) {
	w, err := db.GetWallet(ctx, childID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}
	_, err = db.db.ExecContext(ctx, `
		INSERT INTO activity_wallets (child_id, balance_minutes, daily_limit_minutes, carry_over, updated_at)
		VALUES (?, 0, ?, 0, ?)
		ON CONFLICT(child_id) DO NOTHING
	`, childID, domain.DefaultDailyLimitMinutes, nowUTC())
	if err != nil {
		return nil, err
	}
	return db.GetWallet(ctx, childID)
}

// UpdateWalletSettings changes the daily limit and carry-over policy.
// Non-positive limit means "leave as is".
func (db *DB) UpdateWalletSettings(ctx context.Context, childID int64, dailyLimit int, carryOver *bool) (*domain.Wallet, error) {
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		w, err := getWallet(ctx, tx, childID)
		if err != nil {
			return err
		}
		if dailyLimit > 0 {
			w.DailyLimit = dailyLimit
		}
		if carryOver != nil {
			w.CarryOver = *carryOver
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE activity_wallets SET daily_limit_minutes = ?, carry_over = ?, updated_at = ?
			WHERE child_id = ?
		`, w.DailyLimit, boolInt(w.CarryOver), nowUTC(), childID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return db.GetWallet(ctx, childID)
}

// ResetNonCarryOverWallets zeroes the balance of every wallet that does not
// carry unused minutes across days. Run by the daemon at local midnight.
func (db *DB) ResetNonCarryOverWallets(ctx context.Context) (int64, error) {
	res, err := db.db.ExecContext(ctx, `
		UPDATE activity_wallets SET balance_minutes = 0, updated_at = ?
		WHERE carry_over = 0 AND balance_minutes > 0
	`, nowUTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ─── Grant Ledger ───────────────────────────────────────────────────────────

// AlreadyGranted implements the grant guard: has this rule paid this child
// on this day?
func (db *DB) AlreadyGranted(ctx context.Context, childID, ruleID int64, day string) (bool, error) {
	var n int
	err := db.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM reward_logs
		WHERE child_id = ? AND rule_id = ? AND granted_date = ?
	`, childID, ruleID, day).Scan(&n)
	return n > 0, err
}

// ApplyGrant inserts the grant record and credits the wallet in a single
// transaction, capping the balance at the daily limit. The credit is
// computed inside the transaction, so two concurrent grants for different
// rules each land on the other's committed balance rather than a stale
// read. The UNIQUE(child_id, rule_id, granted_date) index rejects a
// concurrent duplicate of the same rule, surfaced as ErrDuplicateGrant
// with no wallet mutation. Returns the post-grant balance.
func (db *DB) ApplyGrant(ctx context.Context, g domain.GrantRecord) (int, error) {
	var balance int
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reward_logs (child_id, rule_id, granted_minutes, granted_date, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, g.ChildID, g.RuleID, g.GrantedMinutes, g.GrantedDate, nowUTC())
		if isUniqueViolation(err) {
			return domain.ErrDuplicateGrant
		}
		if err != nil {
			return fmt.Errorf("insert grant: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE activity_wallets
			SET balance_minutes = MIN(balance_minutes + ?, daily_limit_minutes), updated_at = ?
			WHERE child_id = ?
		`, g.GrantedMinutes, nowUTC(), g.ChildID); err != nil {
			return err
		}
		w, err := getWallet(ctx, tx, g.ChildID)
		if err != nil {
			return err
		}
		balance = w.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ListGrants returns a child's grant history, newest first. An empty day
// returns all days.
func (db *DB) ListGrants(ctx context.Context, childID int64, day string) ([]domain.GrantRecord, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, child_id, rule_id, granted_minutes, granted_date, created_at
		FROM reward_logs
		WHERE child_id = ? AND (? = '' OR granted_date = ?)
		ORDER BY id DESC
	`, childID, day, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []domain.GrantRecord
	for rows.Next() {
		var g domain.GrantRecord
		var created string
		if err := rows.Scan(&g.ID, &g.ChildID, &g.RuleID, &g.GrantedMinutes, &g.GrantedDate, &created); err != nil {
			return nil, err
		}
		g.CreatedAt = parseTime(created)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ─── Consumption Ledger ─────────────────────────────────────────────────────

// Consume debits minutes from a wallet and appends a consumption record.
// Fails with ErrInsufficientBalance — and no mutation — when the balance
// cannot cover the debit.
func (db *DB) Consume(ctx context.Context, childID int64, kind domain.ActivityKind, minutes int, description string) (*domain.ConsumptionRecord, error) {
	if !kind.IsValid() {
		kind = domain.ActivityOther
	}
	var rec *domain.ConsumptionRecord
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		w, err := getWallet(ctx, tx, childID)
		if err != nil {
			return err
		}
		if w.Balance < minutes {
			return domain.ErrInsufficientBalance
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE activity_wallets SET balance_minutes = ?, updated_at = ?
			WHERE child_id = ?
		`, w.Balance-minutes, nowUTC(), childID); err != nil {
			return err
		}
		rec, err = appendConsumption(ctx, tx, domain.ConsumptionRecord{
			ChildID:         childID,
			Kind:            kind,
			Description:     description,
			ConsumedMinutes: minutes,
			Source:          "consumption",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Adjust applies a manual balance change of either sign (parent action).
// The daily cap intentionally does not apply — a parent bonus may push the
// balance above the limit. A delta that would take the balance negative
// fails with ErrInsufficientBalance and no mutation.
func (db *DB) Adjust(ctx context.Context, childID int64, delta int, reason string) (*domain.Wallet, error) {
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		w, err := getWallet(ctx, tx, childID)
		if err != nil {
			return err
		}
		if w.Balance+delta < 0 {
			return domain.ErrInsufficientBalance
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE activity_wallets SET balance_minutes = ?, updated_at = ?
			WHERE child_id = ?
		`, w.Balance+delta, nowUTC(), childID); err != nil {
			return err
		}
		// Logged as negative consumption: added time shows up as a credit.
		_, err = appendConsumption(ctx, tx, domain.ConsumptionRecord{
			ChildID:         childID,
			Kind:            domain.ActivityOther,
			Description:     "manual adjustment: " + reason,
			ConsumedMinutes: -delta,
			Source:          "manual",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return db.GetWallet(ctx, childID)
}

// ListConsumptions returns a child's consumption log, newest first.
func (db *DB) ListConsumptions(ctx context.Context, childID int64, limit int) ([]domain.ConsumptionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, child_id, activity_type, description, consumed_minutes, source, created_at
		FROM activity_logs WHERE child_id = ? ORDER BY id DESC LIMIT ?
	`, childID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.ConsumptionRecord
	for rows.Next() {
		var r domain.ConsumptionRecord
		var kind, created string
		if err := rows.Scan(&r.ID, &r.ChildID, &kind, &r.Description, &r.ConsumedMinutes, &r.Source, &created); err != nil {
			return nil, err
		}
		r.Kind = domain.ActivityKind(kind)
		r.CreatedAt = parseTime(created)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// ─── Internals ──────────────────────────────────────────────────────────────

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getWallet(ctx context.Context, q querier, childID int64) (*domain.Wallet, error) {
	var w domain.Wallet
	var carry int
	var updated string
	err := q.QueryRowContext(ctx, `
		SELECT child_id, balance_minutes, daily_limit_minutes, carry_over, updated_at
		FROM activity_wallets WHERE child_id = ?
	`, childID).Scan(&w.ChildID, &w.Balance, &w.DailyLimit, &carry, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	w.CarryOver = carry == 1
	w.UpdatedAt = parseTime(updated)
	return &w, nil
}

func appendConsumption(ctx context.Context, tx *sql.Tx, r domain.ConsumptionRecord) (*domain.ConsumptionRecord, error) {
	now := nowUTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO activity_logs (child_id, activity_type, description, consumed_minutes, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ChildID, string(r.Kind), r.Description, r.ConsumedMinutes, r.Source, now)
	if err != nil {
		return nil, err
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(now)
	return &r, nil
}
