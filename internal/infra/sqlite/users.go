package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/studytime-tracker/studytime/internal/domain"
)

// ─── User Operations ────────────────────────────────────────────────────────

// CreateUser inserts a new family member. A child automatically gets an
// empty wallet with default settings.
func (db *DB) CreateUser(ctx context.Context, name string, role domain.Role, pinHash string) (*domain.User, error) {
	now := nowUTC()
	var id int64
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (name, role, pin_hash, created_at)
			VALUES (?, ?, ?, ?)
		`, name, string(role), pinHash, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		if role == domain.RoleChild {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO activity_wallets (child_id, balance_minutes, daily_limit_minutes, carry_over, updated_at)
				VALUES (?, 0, ?, 0, ?)
			`, id, domain.DefaultDailyLimitMinutes, now)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return db.GetUser(ctx, id)
}

// GetUser fetches a user by id.
func (db *DB) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	var role, created string
	err := db.db.QueryRowContext(ctx, `
		SELECT id, name, role, pin_hash, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &role, &u.PINHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// ListUsers returns all family members, in registration order.
func (db *DB) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, name, role, pin_hash, created_at FROM users ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var role, created string
		if err := rows.Scan(&u.ID, &u.Name, &role, &u.PINHash, &created); err != nil {
			return nil, err
		}
		u.Role = domain.Role(role)
		u.CreatedAt = parseTime(created)
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListChildren returns all child users.
func (db *DB) ListChildren(ctx context.Context) ([]domain.User, error) {
	users, err := db.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	children := users[:0:0]
	for _, u := range users {
		if u.Role == domain.RoleChild {
			children = append(children, u)
		}
	}
	return children, nil
}
