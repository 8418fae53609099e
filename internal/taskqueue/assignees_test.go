package taskqueue

import (
	"context"
	"slices"
	"testing"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store"
	"github.com/Iron-Ham/postflow/internal/testutil"
)

func newPendingTask(t *testing.T, f *fixture) *model.Task {
	t.Helper()
	testutil.AddMembers(t, f.store, org, role.Member, "alice")
	post, steps := f.seedPost(t, role.Member)
	task, err := f.createReview(t, post, steps[0])
	if err != nil {
		t.Fatalf("CreateReviewTask() error = %v", err)
	}
	return task
}

func TestAssigneeMutations(t *testing.T) {
	f := newFixture(t, 1)
	task := newPendingTask(t, f)
	ctx := context.Background()

	got, err := f.orch.AddAssignee(ctx, tenant, task.ID, "bob")
	if err != nil {
		t.Fatalf("AddAssignee() error = %v", err)
	}
	if !slices.Equal(got.AssigneeIDs, []string{"alice", "bob"}) {
		t.Errorf("after add = %v", got.AssigneeIDs)
	}

	got, err = f.orch.AddAssignee(ctx, tenant, task.ID, "bob")
	if err != nil || !slices.Equal(got.AssigneeIDs, []string{"alice", "bob"}) {
		t.Errorf("adding an existing assignee = %v, %v", got, err)
	}

	got, err = f.orch.RemoveAssignee(ctx, tenant, task.ID, "alice")
	if err != nil || !slices.Equal(got.AssigneeIDs, []string{"bob"}) {
		t.Errorf("after remove = %v, %v", got, err)
	}

	_, err = f.orch.RemoveAssignee(ctx, tenant, task.ID, "bob")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("removing the last assignee: error = %v, want validation error", err)
	}

	got, err = f.orch.Reassign(ctx, tenant, task.ID, []string{"carol", "dave", "carol"})
	if err != nil || !slices.Equal(got.AssigneeIDs, []string{"carol", "dave"}) {
		t.Errorf("after reassign = %v, %v", got, err)
	}

	_, err = f.orch.Reassign(ctx, tenant, task.ID, nil)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("empty reassign: error = %v, want validation error", err)
	}

	stored, err := f.orch.ListTasks(ctx, store.TaskFilter{TenantID: tenant, AssigneeID: "dave"})
	if err != nil || len(stored) != 1 || stored[0].ID != task.ID {
		t.Fatalf("ListTasks(dave) = %v, %v", stored, err)
	}
	if !slices.Equal(stored[0].AssigneeIDs, []string{"carol", "dave"}) {
		t.Errorf("stored assignees = %v", stored[0].AssigneeIDs)
	}
}

func TestAssigneeMutations_Errors(t *testing.T) {
	f := newFixture(t, 1)
	task := newPendingTask(t, f)
	ctx := context.Background()

	if _, err := f.orch.AddAssignee(ctx, "other-tenant", task.ID, "bob"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("other tenant: error = %v, want not found", err)
	}
	if _, err := f.orch.AddAssignee(ctx, tenant, "missing", "bob"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing task: error = %v, want not found", err)
	}
	if _, err := f.orch.AddAssignee(ctx, tenant, task.ID, ""); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("empty user: error = %v, want validation error", err)
	}
	if _, err := f.orch.AddAssignee(ctx, tenant, task.ID, "  "); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("blank user: error = %v, want validation error", err)
	}
	if _, err := f.orch.Reassign(ctx, tenant, task.ID, []string{"", " "}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("blank reassign: error = %v, want validation error", err)
	}
	got, err := f.orch.Reassign(ctx, tenant, task.ID, []string{" carol ", "", "carol"})
	if err != nil {
		t.Fatalf("Reassign() error = %v", err)
	}
	if !slices.Equal(got.AssigneeIDs, []string{"carol"}) {
		t.Errorf("assignees = %v, want [carol]", got.AssigneeIDs)
	}

	f.do(t, func(tx store.Tx) error {
		_, err := f.orch.CompleteTasksForStep(ctx, tx, task.StepID)
		return err
	})
	if _, err := f.orch.AddAssignee(ctx, tenant, task.ID, "bob"); !errors.Is(err, errors.ErrInvalidState) {
		t.Errorf("resolved task: error = %v, want invalid state", err)
	}
}

func TestListTasks_RequiresTenant(t *testing.T) {
	f := newFixture(t, 1)
	if _, err := f.orch.ListTasks(context.Background(), store.TaskFilter{}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error = %v, want validation error", err)
	}
}
