package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/store"
)

const taskColumns = `t.id, t.post_id, t.step_id, t.type, t.status, t.organization_id, t.tenant_id, t.created_at, t.resolved_at`

type taskRepo struct {
	c conn
}

func (r *taskRepo) Create(ctx context.Context, t *model.Task) error {
	if len(t.AssigneeIDs) == 0 {
		return errors.NewValidationError("task must have at least one assignee").WithField("assignee_ids")
	}
	_, err := r.c.exec(ctx, `INSERT INTO task (id, post_id, step_id, type, status, organization_id, tenant_id, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullString(t.PostID), nullString(t.StepID), string(t.Type), string(t.Status),
		t.OrganizationID, t.TenantID, dbTime(t.CreatedAt), nullTime(t.ResolvedAt))
	if err != nil {
		return mapError("insert task", err)
	}
	return r.insertAssignees(ctx, t.ID, t.AssigneeIDs)
}

func (r *taskRepo) insertAssignees(ctx context.Context, taskID string, assigneeIDs []string) error {
	for i, userID := range assigneeIDs {
		if _, err := r.c.exec(ctx, `INSERT INTO task_assignee (task_id, user_id, position) VALUES (?, ?, ?)`,
			taskID, userID, i); err != nil {
			return mapError("insert task assignee", err)
		}
	}
	return nil
}

func (r *taskRepo) Get(ctx context.Context, tenantID, id string) (*model.Task, error) {
	t, err := scanTask(r.c.queryRow(ctx, `SELECT `+taskColumns+` FROM task t WHERE t.id = ? AND t.tenant_id = ?`, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("task", id)
	}
	if err != nil {
		return nil, mapError("select task", err)
	}
	if err := r.loadAssignees(ctx, []*model.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *taskRepo) List(ctx context.Context, f store.TaskFilter) ([]*model.Task, error) {
	var (
		conds []string
		args  []any
	)
	if f.TenantID != "" {
		conds = append(conds, "t.tenant_id = ?")
		args = append(args, f.TenantID)
	}
	if f.PostID != "" {
		conds = append(conds, "t.post_id = ?")
		args = append(args, f.PostID)
	}
	if f.Status != "" {
		conds = append(conds, "t.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.AssigneeID != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM task_assignee a WHERE a.task_id = t.id AND a.user_id = ?)")
		args = append(args, f.AssigneeID)
	}

	query := `SELECT ` + taskColumns + ` FROM task t`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY t.created_at, t.id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, mapError("select tasks", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, mapError("scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate tasks", err)
	}
	if err := r.loadAssignees(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// loadAssignees fills AssigneeIDs of tasks with one query.
func (r *taskRepo) loadAssignees(ctx context.Context, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[string]*model.Task, len(tasks))
	args := make([]any, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = t
		args[i] = t.ID
	}

	rows, err := r.c.query(ctx, `SELECT task_id, user_id FROM task_assignee
		WHERE task_id IN (`+placeholders(len(args))+`)
		ORDER BY task_id, position`, args...)
	if err != nil {
		return mapError("select task assignees", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID, userID string
		if err := rows.Scan(&taskID, &userID); err != nil {
			return mapError("scan task assignee", err)
		}
		if t, ok := byID[taskID]; ok {
			t.AssigneeIDs = append(t.AssigneeIDs, userID)
		}
	}
	return mapError("iterate task assignees", rows.Err())
}

func (r *taskRepo) SetAssignees(ctx context.Context, id string, assigneeIDs []string) error {
	if len(assigneeIDs) == 0 {
		return errors.NewValidationError("task must keep at least one assignee").WithField("assignee_ids")
	}

	var status string
	err := r.c.queryRow(ctx, `SELECT status FROM task WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.NewNotFoundError("task", id)
	}
	if err != nil {
		return mapError("select task status", err)
	}
	if model.TaskStatus(status) != model.TaskPending {
		return errors.NewInvalidStateError("task", id, status, model.TaskPending.String())
	}

	if _, err := r.c.exec(ctx, `DELETE FROM task_assignee WHERE task_id = ?`, id); err != nil {
		return mapError("delete task assignees", err)
	}
	return r.insertAssignees(ctx, id, assigneeIDs)
}

// selectorWhere renders sel as conditions on PENDING tasks.
func selectorWhere(sel store.TaskSelector) (string, []any, error) {
	if sel.PostID == "" && sel.StepID == "" {
		return "", nil, errors.NewValidationError("task selector needs a post or a step")
	}
	conds := []string{"status = ?"}
	args := []any{string(model.TaskPending)}
	if sel.PostID != "" {
		conds = append(conds, "post_id = ?")
		args = append(args, sel.PostID)
	}
	if sel.StepID != "" {
		conds = append(conds, "step_id = ?")
		args = append(args, sel.StepID)
	}
	if sel.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(sel.Type))
	}
	if sel.ExceptStepID != "" {
		conds = append(conds, "(step_id IS NULL OR step_id <> ?)")
		args = append(args, sel.ExceptStepID)
	}
	return strings.Join(conds, " AND "), args, nil
}

func (r *taskRepo) ResolvePending(ctx context.Context, sel store.TaskSelector, status model.TaskStatus, at time.Time) (int, error) {
	where, args, err := selectorWhere(sel)
	if err != nil {
		return 0, err
	}
	res, err := r.c.exec(ctx, `UPDATE task SET status = ?, resolved_at = ? WHERE `+where,
		append([]any{string(status), dbTime(at)}, args...)...)
	if err != nil {
		return 0, mapError("update tasks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("update tasks", err)
	}
	return int(n), nil
}

func (r *taskRepo) HasPending(ctx context.Context, sel store.TaskSelector) (bool, error) {
	where, args, err := selectorWhere(sel)
	if err != nil {
		return false, err
	}
	var n int
	if err := r.c.queryRow(ctx, `SELECT COUNT(*) FROM task WHERE `+where, args...).Scan(&n); err != nil {
		return false, mapError("count tasks", err)
	}
	return n > 0, nil
}

func (r *taskRepo) CountPending(ctx context.Context, orgID string, userIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	args := make([]any, 0, len(userIDs)+2)
	args = append(args, orgID, string(model.TaskPending))
	for _, id := range userIDs {
		args = append(args, id)
	}

	rows, err := r.c.query(ctx, `SELECT a.user_id, COUNT(*)
		FROM task_assignee a
		JOIN task t ON t.id = a.task_id
		WHERE t.organization_id = ? AND t.status = ? AND a.user_id IN (`+placeholders(len(userIDs))+`)
		GROUP BY a.user_id`, args...)
	if err != nil {
		return nil, mapError("count pending tasks", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID string
			n      int
		)
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, mapError("scan pending count", err)
		}
		counts[userID] = n
	}
	return counts, mapError("iterate pending counts", rows.Err())
}

func scanTask(s scanner) (*model.Task, error) {
	var (
		t              model.Task
		postID, stepID sql.NullString
		typ, status    string
		resolvedAt     sql.NullTime
	)
	if err := s.Scan(&t.ID, &postID, &stepID, &typ, &status, &t.OrganizationID, &t.TenantID,
		&t.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	t.PostID = postID.String
	t.StepID = stepID.String
	t.Type = model.TaskType(typ)
	t.Status = model.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.ResolvedAt = timePtr(resolvedAt)
	return &t, nil
}
