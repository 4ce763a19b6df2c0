package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/studytime-tracker/studytime/internal/domain"
)

// ─── Study Plan Operations ──────────────────────────────────────────────────

// NewTask carries the caller-supplied fields for a task being created.
type NewTask struct {
	Subject          string `json:"subject"`
	Description      string `json:"description"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	IsHomework       bool   `json:"is_homework"`
}

// CreatePlan inserts a plan with its initial tasks.
func (db *DB) CreatePlan(ctx context.Context, childID int64, day, title string, tasks []NewTask) (*domain.StudyPlan, error) {
	now := nowUTC()
	var planID int64
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO study_plans (child_id, plan_date, title, created_at)
			VALUES (?, ?, ?, ?)
		`, childID, day, title, now)
		if err != nil {
			return err
		}
		planID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.EstimatedMinutes <= 0 {
				t.EstimatedMinutes = domain.DefaultEstimatedMinutes
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO study_tasks (plan_id, subject, description, estimated_minutes, is_homework, status, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, planID, t.Subject, t.Description, t.EstimatedMinutes, boolInt(t.IsHomework), string(domain.StatusPending), now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return db.GetPlan(ctx, planID)
}

// GetPlan fetches a plan with its tasks.
func (db *DB) GetPlan(ctx context.Context, planID int64) (*domain.StudyPlan, error) {
	var p domain.StudyPlan
	var created string
	err := db.db.QueryRowContext(ctx, `
		SELECT id, child_id, plan_date, title, created_at FROM study_plans WHERE id = ?
	`, planID).Scan(&p.ID, &p.ChildID, &p.PlanDate, &p.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	p.Tasks, err = db.tasksForPlan(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlans returns plans filtered by child and/or day, newest day first.
// A zero childID or empty day means "any".
func (db *DB) ListPlans(ctx context.Context, childID int64, day string) ([]domain.StudyPlan, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, child_id, plan_date, title, created_at FROM study_plans
		WHERE (? = 0 OR child_id = ?) AND (? = '' OR plan_date = ?)
		ORDER BY plan_date DESC, id
	`, childID, childID, day, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.StudyPlan
	for rows.Next() {
		var p domain.StudyPlan
		var created string
		if err := rows.Scan(&p.ID, &p.ChildID, &p.PlanDate, &p.Title, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range plans {
		plans[i].Tasks, err = db.tasksForPlan(ctx, plans[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return plans, nil
}

// PlansOn implements domain.History: the child's plans for one calendar day.
func (db *DB) PlansOn(ctx context.Context, childID int64, day string) ([]domain.StudyPlan, error) {
	return db.ListPlans(ctx, childID, day)
}

// DeletePlan removes a plan and its tasks.
func (db *DB) DeletePlan(ctx context.Context, planID int64) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM study_tasks WHERE plan_id = ?`, planID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM study_plans WHERE id = ?`, planID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrPlanNotFound
		}
		return nil
	})
}

// AddTask appends a task to an existing plan.
func (db *DB) AddTask(ctx context.Context, planID int64, t NewTask) (*domain.StudyPlan, error) {
	if _, err := db.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	if t.EstimatedMinutes <= 0 {
		t.EstimatedMinutes = domain.DefaultEstimatedMinutes
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO study_tasks (plan_id, subject, description, estimated_minutes, is_homework, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, planID, t.Subject, t.Description, t.EstimatedMinutes, boolInt(t.IsHomework), string(domain.StatusPending), nowUTC())
	if err != nil {
		return nil, err
	}
	return db.GetPlan(ctx, planID)
}

// ─── Study Task Operations ──────────────────────────────────────────────────

const taskColumns = `id, plan_id, subject, description, estimated_minutes, actual_minutes,
	is_homework, status, started_at, completed_at, approved_at, approved_by, created_at`

func scanTask(row interface{ Scan(dest ...any) error }) (domain.StudyTask, error) {
	var t domain.StudyTask
	var homework int
	var status, created string
	var started, completed, approved sql.NullString
	err := row.Scan(&t.ID, &t.PlanID, &t.Subject, &t.Description, &t.EstimatedMinutes,
		&t.ActualMinutes, &homework, &status, &started, &completed, &approved,
		&t.ApprovedBy, &created)
	if err != nil {
		return t, err
	}
	t.IsHomework = homework == 1
	t.Status = domain.TaskStatus(status)
	t.StartedAt = parseNullTime(started)
	t.CompletedAt = parseNullTime(completed)
	t.ApprovedAt = parseNullTime(approved)
	t.CreatedAt = parseTime(created)
	return t, nil
}

func (db *DB) tasksForPlan(ctx context.Context, planID int64) ([]domain.StudyTask, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM study_tasks WHERE plan_id = ? ORDER BY id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.StudyTask{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask fetches a single task.
func (db *DB) GetTask(ctx context.Context, taskID int64) (*domain.StudyTask, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM study_tasks WHERE id = ?`, taskID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasksByStatus returns every task in the given state, oldest first.
// Used by the parent dashboard to list approvals waiting on them.
func (db *DB) ListTasksByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.StudyTask, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM study_tasks WHERE status = ? ORDER BY id`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.StudyTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// StartTask moves a pending task to in-progress and records the start time.
func (db *DB) StartTask(ctx context.Context, taskID int64) (*domain.StudyTask, error) {
	task, err := db.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.StatusPending {
		return nil, domain.ErrBadTransition
	}
	_, err = db.db.ExecContext(ctx, `
		UPDATE study_tasks SET status = ?, started_at = ? WHERE id = ?
	`, string(domain.StatusInProgress), nowUTC(), taskID)
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, taskID)
}

// CompleteTask moves a pending or in-progress task to completed.
// A non-positive actualMinutes falls back to elapsed time since start,
// when a start was recorded.
func (db *DB) CompleteTask(ctx context.Context, taskID int64, actualMinutes int) (*domain.StudyTask, error) {
	task, err := db.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.StatusPending && task.Status != domain.StatusInProgress {
		return nil, domain.ErrBadTransition
	}

	now := nowUTC()
	if actualMinutes <= 0 && task.StartedAt != nil {
		actualMinutes = int(parseTime(now).Sub(*task.StartedAt).Minutes())
	}
	if actualMinutes < 0 {
		actualMinutes = 0
	}

	_, err = db.db.ExecContext(ctx, `
		UPDATE study_tasks SET status = ?, completed_at = ?, actual_minutes = ? WHERE id = ?
	`, string(domain.StatusCompleted), now, actualMinutes, taskID)
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, taskID)
}

// ApproveTask marks a completed task approved by the given parent.
// The caller is responsible for running reward evaluation afterwards.
func (db *DB) ApproveTask(ctx context.Context, taskID, parentID int64) (*domain.StudyTask, error) {
	task, err := db.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.StatusCompleted {
		return nil, domain.ErrBadTransition
	}
	_, err = db.db.ExecContext(ctx, `
		UPDATE study_tasks SET status = ?, approved_at = ?, approved_by = ? WHERE id = ?
	`, string(domain.StatusApproved), nowUTC(), parentID, taskID)
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, taskID)
}

// RejectTask sends a completed task back to the child.
func (db *DB) RejectTask(ctx context.Context, taskID int64) (*domain.StudyTask, error) {
	task, err := db.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.StatusCompleted {
		return nil, domain.ErrBadTransition
	}
	_, err = db.db.ExecContext(ctx, `
		UPDATE study_tasks SET status = ? WHERE id = ?
	`, string(domain.StatusRejected), taskID)
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, taskID)
}

// PlanChildID resolves the owning child of a task's plan.
func (db *DB) PlanChildID(ctx context.Context, planID int64) (int64, error) {
	var childID int64
	err := db.db.QueryRowContext(ctx,
		`SELECT child_id FROM study_plans WHERE id = ?`, planID).Scan(&childID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrPlanNotFound
	}
	return childID, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
