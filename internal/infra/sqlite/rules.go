package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/studytime-tracker/studytime/internal/domain"
)

// ─── Reward Rule Operations ─────────────────────────────────────────────────

// CreateRule inserts a reward rule.
func (db *DB) CreateRule(ctx context.Context, r domain.RewardRule) (*domain.RewardRule, error) {
	cond, err := encodeCondition(r.Condition)
	if err != nil {
		return nil, err
	}
	res, err := db.db.ExecContext(ctx, `
		INSERT INTO reward_rules (trigger_type, trigger_condition, reward_minutes, description, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(r.Kind), cond, r.RewardMinutes, r.Description, boolInt(r.IsActive), nowUTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetRule(ctx, id)
}

// GetRule fetches a rule by id.
func (db *DB) GetRule(ctx context.Context, id int64) (*domain.RewardRule, error) {
	row := db.db.QueryRowContext(ctx, `
		SELECT id, trigger_type, trigger_condition, reward_minutes, description, is_active, created_at
		FROM reward_rules WHERE id = ?
	`, id)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRules returns all rules, optionally only active ones.
func (db *DB) ListRules(ctx context.Context, activeOnly bool) ([]domain.RewardRule, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, trigger_type, trigger_condition, reward_minutes, description, is_active, created_at
		FROM reward_rules WHERE (? = 0 OR is_active = 1) ORDER BY id
	`, boolInt(activeOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.RewardRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ActiveRules implements domain.RuleSource.
func (db *DB) ActiveRules(ctx context.Context) ([]domain.RewardRule, error) {
	return db.ListRules(ctx, true)
}

// RuleUpdate carries the mutable fields of a rule. Nil means "leave as is".
type RuleUpdate struct {
	Kind          *domain.TriggerKind      `json:"trigger_type,omitempty"`
	Condition     *domain.TriggerCondition `json:"trigger_condition,omitempty"`
	RewardMinutes *int                     `json:"reward_minutes,omitempty"`
	Description   *string                  `json:"description,omitempty"`
	IsActive      *bool                    `json:"is_active,omitempty"`
}

// UpdateRule applies a partial update to a rule.
func (db *DB) UpdateRule(ctx context.Context, id int64, upd RuleUpdate) (*domain.RewardRule, error) {
	r, err := db.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Kind != nil {
		r.Kind = *upd.Kind
	}
	if upd.Condition != nil {
		r.Condition = *upd.Condition
	}
	if upd.RewardMinutes != nil {
		r.RewardMinutes = *upd.RewardMinutes
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	if upd.IsActive != nil {
		r.IsActive = *upd.IsActive
	}

	cond, err := encodeCondition(r.Condition)
	if err != nil {
		return nil, err
	}
	_, err = db.db.ExecContext(ctx, `
		UPDATE reward_rules
		SET trigger_type = ?, trigger_condition = ?, reward_minutes = ?, description = ?, is_active = ?
		WHERE id = ?
	`, string(r.Kind), cond, r.RewardMinutes, r.Description, boolInt(r.IsActive), id)
	if err != nil {
		return nil, err
	}
	return db.GetRule(ctx, id)
}

// DeleteRule removes a rule. Prefer deactivation; deletion is for
// configuration mistakes before any grant references the rule.
func (db *DB) DeleteRule(ctx context.Context, id int64) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM reward_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// SeedDefaultRules installs the standard household rule set. Idempotence is
// the caller's concern; running it twice creates duplicate rules.
func (db *DB) SeedDefaultRules(ctx context.Context) ([]domain.RewardRule, error) {
	defaults := []domain.RewardRule{
		{Kind: domain.TriggerHomeworkComplete, RewardMinutes: 30, Description: "All of today's homework finished", IsActive: true},
		{Kind: domain.TriggerTimeThreshold, Condition: domain.TriggerCondition{Minutes: 60}, RewardMinutes: 30, Description: "One hour of study completed", IsActive: true},
		{Kind: domain.TriggerTaskComplete, RewardMinutes: 15, Description: "Finished a study task", IsActive: true},
		{Kind: domain.TriggerStreak, Condition: domain.TriggerCondition{Days: 7}, RewardMinutes: 120, Description: "Seven-day streak (weekend bonus)", IsActive: true},
	}
	for _, r := range defaults {
		if _, err := db.CreateRule(ctx, r); err != nil {
			return nil, err
		}
	}
	return db.ListRules(ctx, false)
}

func scanRule(row interface{ Scan(dest ...any) error }) (domain.RewardRule, error) {
	var r domain.RewardRule
	var kind, cond, created string
	var active int
	err := row.Scan(&r.ID, &kind, &cond, &r.RewardMinutes, &r.Description, &active, &created)
	if err != nil {
		return r, err
	}
	r.Kind = domain.TriggerKind(kind)
	r.Condition = domain.ParseTriggerCondition(cond)
	r.IsActive = active == 1
	r.CreatedAt = parseTime(created)
	return r, nil
}

func encodeCondition(c domain.TriggerCondition) (string, error) {
	if c == (domain.TriggerCondition{}) {
		return "", nil
	}
	b, err := json.Marshal(c)
	return string(b), err
}
