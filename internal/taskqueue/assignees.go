package taskqueue

import (
	"context"
	"slices"
	"strings"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/store"
)

// Reassign replaces the assignees of a pending task. Blank ids are ignored.
func (o *Orchestrator) Reassign(ctx context.Context, tenantID, taskID string, assigneeIDs []string) (*model.Task, error) {
	trimmed := make([]string, 0, len(assigneeIDs))
	for _, id := range assigneeIDs {
		if id = strings.TrimSpace(id); id != "" {
			trimmed = append(trimmed, id)
		}
	}
	ids := uniqueIDs(trimmed)
	return o.mutate(ctx, tenantID, taskID, "reassign", func([]string) []string {
		return ids
	})
}

// AddAssignee adds userID to a pending task. Adding an existing assignee
// changes nothing.
func (o *Orchestrator) AddAssignee(ctx context.Context, tenantID, taskID, userID string) (*model.Task, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.NewValidationError("assignee is required").WithField("user_id")
	}
	return o.mutate(ctx, tenantID, taskID, "add assignee", func(current []string) []string {
		if slices.Contains(current, userID) {
			return current
		}
		return append(current, userID)
	})
}

// RemoveAssignee removes userID from a pending task. Removing the last
// assignee is rejected.
func (o *Orchestrator) RemoveAssignee(ctx context.Context, tenantID, taskID, userID string) (*model.Task, error) {
	return o.mutate(ctx, tenantID, taskID, "remove assignee", func(current []string) []string {
		return slices.DeleteFunc(slices.Clone(current), func(id string) bool { return id == userID })
	})
}

// mutate loads the task, applies change to its assignee list and stores the
// result, all in one transaction.
func (o *Orchestrator) mutate(ctx context.Context, tenantID, taskID, op string, change func([]string) []string) (*model.Task, error) {
	var task *model.Task
	err := o.uow.Do(ctx, func(tx store.Tx) error {
		var err error
		task, err = tx.Tasks().Get(ctx, tenantID, taskID)
		if err != nil {
			return err
		}
		if task.Status != model.TaskPending {
			return errors.NewInvalidStateError("task", task.ID, task.Status.String(), model.TaskPending.String())
		}

		next := change(slices.Clone(task.AssigneeIDs))
		if len(next) == 0 {
			return errors.NewValidationError("a task must keep at least one assignee").
				WithField("assignee_ids").WithValue(next)
		}
		if slices.Equal(next, task.AssigneeIDs) {
			return nil
		}
		if err := tx.Tasks().SetAssignees(ctx, task.ID, next); err != nil {
			return err
		}
		task.AssigneeIDs = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.WithTenant(tenantID).Info("task assignees changed",
		"op", op,
		"task_id", task.ID,
		"assignees", task.AssigneeIDs)
	return task, nil
}

// ListTasks returns the tasks matching f. f.TenantID is required.
func (o *Orchestrator) ListTasks(ctx context.Context, f store.TaskFilter) ([]*model.Task, error) {
	if f.TenantID == "" {
		return nil, errors.NewValidationError("tenant is required").WithField("tenant_id")
	}
	var tasks []*model.Task
	err := o.uow.Do(ctx, func(tx store.Tx) error {
		var err error
		tasks, err = tx.Tasks().List(ctx, f)
		return err
	})
	return tasks, err
}
