package reward

import (
	"context"
	"log"

	"github.com/studytime-tracker/studytime/internal/domain"
)

// ─── Trigger Evaluation ─────────────────────────────────────────────────────
// Pure decisions over the History view. No side effects.

// satisfied dispatches on the rule's trigger kind. An unrecognized kind is
// not an error — the rule is simply never satisfied.
func (e *Engine) satisfied(ctx context.Context, rule domain.RewardRule, childID int64, day string) (bool, error) {
	switch rule.Kind {
	case domain.TriggerHomeworkComplete:
		return e.homeworkComplete(ctx, childID, day)
	case domain.TriggerTimeThreshold:
		return e.timeThreshold(ctx, childID, day, rule.Condition.ThresholdMinutes())
	case domain.TriggerTaskComplete:
		return e.taskApproved(ctx, childID, day)
	case domain.TriggerStreak:
		return e.streak(ctx, childID, day, rule.Condition.StreakDays())
	default:
		log.Printf("reward: rule %d has unrecognized trigger kind %q, skipping", rule.ID, rule.Kind)
		return false, nil
	}
}

// homeworkComplete holds when every homework task across all of the day's
// plans is approved AND at least one homework task exists. A day with plans
// but no homework does not qualify — no vacuous grants. A day with no plans
// never qualifies.
func (e *Engine) homeworkComplete(ctx context.Context, childID int64, day string) (bool, error) {
	plans, err := e.history.PlansOn(ctx, childID, day)
	if err != nil {
		return false, err
	}
	if len(plans) == 0 {
		return false, nil
	}

	totalHomework := 0
	for _, plan := range plans {
		for _, task := range plan.Tasks {
			if !task.IsHomework {
				continue
			}
			totalHomework++
			if task.Status != domain.StatusApproved {
				return false, nil
			}
		}
	}
	return totalHomework > 0, nil
}

// timeThreshold holds when approved study minutes for the day reach target.
// Each approved task counts its actual minutes, falling back to the estimate.
func (e *Engine) timeThreshold(ctx context.Context, childID int64, day string, target int) (bool, error) {
	plans, err := e.history.PlansOn(ctx, childID, day)
	if err != nil {
		return false, err
	}

	total := 0
	for _, plan := range plans {
		for _, task := range plan.Tasks {
			if task.Status == domain.StatusApproved {
				total += task.StudyMinutes()
			}
		}
	}
	return total >= target, nil
}

// taskApproved holds when any task across the day's plans is approved.
func (e *Engine) taskApproved(ctx context.Context, childID int64, day string) (bool, error) {
	plans, err := e.history.PlansOn(ctx, childID, day)
	if err != nil {
		return false, err
	}

	for _, plan := range plans {
		for _, task := range plan.Tasks {
			if task.Status == domain.StatusApproved {
				return true, nil
			}
		}
	}
	return false, nil
}

// streak holds when homeworkComplete holds for each of the last days
// consecutive calendar days ending on and including day. One missed or
// homework-less day breaks the streak.
func (e *Engine) streak(ctx context.Context, childID int64, day string, days int) (bool, error) {
	for i := 0; i < days; i++ {
		ok, err := e.homeworkComplete(ctx, childID, domain.PrevDay(day, i))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
