// Package reward implements the reward evaluation engine.
//
// The engine:
//  1. Iterates the active reward rules
//  2. Skips rules already granted today (grant guard)
//  3. Evaluates the rule's trigger against the child's plan history
//  4. Credits the wallet, capped at the daily limit
//  5. Records the grant, exactly once per (child, rule, day)
//
// It is invoked synchronously after a task approval and is safe to invoke
// any number of times per day: the grant record's uniqueness key turns a
// concurrent race into a rejected duplicate rather than a double credit.
package reward

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/studytime-tracker/studytime/internal/domain"
	"github.com/studytime-tracker/studytime/internal/infra/observability"
)

// Engine orchestrates trigger evaluation and wallet grants.
type Engine struct {
	history domain.History
	rules   domain.RuleSource
	ledger  domain.LedgerStore
	now     func() time.Time
}

// New creates a reward engine over the given collaborators.
func New(history domain.History, rules domain.RuleSource, ledger domain.LedgerStore) *Engine {
	return &Engine{
		history: history,
		rules:   rules,
		ledger:  ledger,
		now:     time.Now,
	}
}

// SetClock overrides the engine's notion of "now". Used by tests to pin
// the evaluation day.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// EvaluateAndGrant runs one evaluation cycle for a child and returns the
// rewards granted by this invocation, in rule iteration order.
//
// Rules are independent: a rule that cannot be evaluated is skipped with a
// warning and never aborts the rest of the cycle. The returned error covers
// only failures before any rule is considered (listing the active rules).
func (e *Engine) EvaluateAndGrant(ctx context.Context, childID int64) ([]domain.GrantResult, error) {
	today := domain.DayOf(e.now())
	active, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	observability.Evaluations.Inc()

	granted := []domain.GrantResult{}
	for _, rule := range active {
		done, err := e.ledger.AlreadyGranted(ctx, childID, rule.ID, today)
		if err != nil {
			log.Printf("reward: grant guard check failed for rule %d: %v", rule.ID, err)
			continue
		}
		if done {
			continue
		}

		ok, err := e.satisfied(ctx, rule, childID, today)
		if err != nil {
			log.Printf("reward: trigger evaluation failed for rule %d: %v", rule.ID, err)
			continue
		}
		if !ok {
			continue
		}

		if _, err := e.ledger.GetOrCreateWallet(ctx, childID); err != nil {
			log.Printf("reward: wallet load failed for child %d: %v", childID, err)
			continue
		}

		// The grant record keeps the offered minutes even when the cap
		// absorbs less; the audit trail records entitlement, not delivery.
		// The capped credit itself is computed by the ledger, inside its
		// transaction.
		rec := domain.GrantRecord{
			ChildID:        childID,
			RuleID:         rule.ID,
			GrantedMinutes: rule.RewardMinutes,
			GrantedDate:    today,
		}
		newBalance, err := e.ledger.ApplyGrant(ctx, rec)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateGrant) {
				// Lost a race against a concurrent evaluation. The winner
				// already credited the wallet; absorb and move on.
				continue
			}
			log.Printf("reward: grant persist failed for rule %d: %v", rule.ID, err)
			continue
		}

		observability.Grants.Inc()
		observability.GrantedMinutes.Add(float64(rule.RewardMinutes))

		granted = append(granted, domain.GrantResult{
			RuleID:         rule.ID,
			Description:    rule.Description,
			GrantedMinutes: rule.RewardMinutes,
			NewBalance:     newBalance,
		})
	}

	return granted, nil
}
