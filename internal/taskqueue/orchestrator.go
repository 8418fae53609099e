package taskqueue

import (
	"context"
	"time"

	"github.com/Iron-Ham/postflow/internal/directory"
	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/event"
	"github.com/Iron-Ham/postflow/internal/logging"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store"
)

// ErrNoEligibleAssignees is returned when no organization member holds the
// role a task needs. No task is created; the caller's transaction stays
// valid and should normally continue.
var ErrNoEligibleAssignees = errors.New("no eligible assignees")

// Config configures an Orchestrator.
type Config struct {
	// Directory resolves organization members by role. Nil reads the
	// org_member table through the command transaction.
	Directory directory.Directory
	// Notifier delivers task events after commit. Nil drops them.
	Notifier *event.Notifier
	// PublisherRoles are the roles eligible for publish tasks.
	PublisherRoles role.Set
	// AssigneesPerTask is the number of members assigned to each new task.
	AssigneesPerTask int
	Logger           *logging.Logger
}

// Orchestrator creates, assigns and resolves tasks.
type Orchestrator struct {
	uow        store.UnitOfWork
	dir        directory.Directory
	notifier   *event.Notifier
	publishers role.Set
	perTask    int
	logger     *logging.Logger
	now        func() time.Time
}

// New creates an Orchestrator. uow is used by the assignee commands, which
// run in their own transactions.
func New(uow store.UnitOfWork, cfg Config) *Orchestrator {
	if cfg.AssigneesPerTask < 1 {
		cfg.AssigneesPerTask = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	if len(cfg.PublisherRoles) == 0 {
		cfg.PublisherRoles = role.Set{role.Admin, role.Publisher}
	}
	return &Orchestrator{
		uow:        uow,
		dir:        cfg.Directory,
		notifier:   cfg.Notifier,
		publishers: cfg.PublisherRoles,
		perTask:    cfg.AssigneesPerTask,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// PublisherRoles returns the roles allowed to publish.
func (o *Orchestrator) PublisherRoles() role.Set {
	return o.publishers
}

// CreateReviewTask creates the review task of step, assigned to the least
// loaded members holding the step's role.
func (o *Orchestrator) CreateReviewTask(ctx context.Context, tx store.Tx, post *model.Post, step *model.ApprovalStep) (*model.Task, error) {
	return o.create(ctx, tx, post, step, model.TaskReview, []role.Role{step.RequiredRole})
}

// CreatePublishTask creates the publish task of post, assigned to the least
// loaded members holding any publisher role.
func (o *Orchestrator) CreatePublishTask(ctx context.Context, tx store.Tx, post *model.Post) (*model.Task, error) {
	return o.create(ctx, tx, post, nil, model.TaskPublish, o.publishers)
}

func (o *Orchestrator) create(ctx context.Context, tx store.Tx, post *model.Post, step *model.ApprovalStep, typ model.TaskType, roles []role.Role) (*model.Task, error) {
	stepID := ""
	if step != nil {
		stepID = step.ID
	}
	logger := o.logger.WithTenant(post.TenantID).WithPost(post.ID)

	candidates, err := o.eligible(ctx, tx, post.OrganizationID, roles)
	if err != nil {
		return nil, err
	}

	roleNames := role.Set(roles).Strings()
	if len(candidates) == 0 {
		logger.Warn("no eligible assignees, task not created",
			"task_type", typ.String(),
			"step_id", stepID,
			"roles", roleNames,
			"organization_id", post.OrganizationID)
		o.notifier.Queue(tx, event.NewTaskSkippedEvent(post.TenantID, post.ID, stepID, typ.String(), roleNames))
		return nil, ErrNoEligibleAssignees
	}

	pending, err := tx.Tasks().CountPending(ctx, post.OrganizationID, candidates)
	if err != nil {
		return nil, errors.Wrap(err, "count pending tasks")
	}
	assignees := leastLoaded(candidates, pending, o.perTask)

	task := &model.Task{
		ID:             model.NewID(),
		PostID:         post.ID,
		StepID:         stepID,
		Type:           typ,
		Status:         model.TaskPending,
		AssigneeIDs:    assignees,
		OrganizationID: post.OrganizationID,
		TenantID:       post.TenantID,
		CreatedAt:      o.now().UTC(),
	}
	if err := tx.Tasks().Create(ctx, task); err != nil {
		return nil, err
	}

	logger.Debug("task created",
		"task_id", task.ID,
		"task_type", typ.String(),
		"step_id", stepID,
		"assignees", assignees,
		"candidates", len(candidates))
	o.notifier.Queue(tx, event.NewTaskCreatedEvent(post.TenantID, task.ID, post.ID, stepID, typ.String(), assignees))
	return task, nil
}

// eligible returns the distinct members of orgID holding any of roles, in
// directory order.
func (o *Orchestrator) eligible(ctx context.Context, tx store.Tx, orgID string, roles []role.Role) ([]string, error) {
	dir := o.dir
	if dir == nil {
		dir = directory.NewSQL(tx.Members())
	}
	groups := make([][]string, 0, len(roles))
	for _, r := range roles {
		members, err := dir.MembersWithRole(ctx, orgID, r)
		if err != nil {
			return nil, errors.Wrapf(err, "look up members with role %s", r)
		}
		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.ID
		}
		groups = append(groups, ids)
	}
	return uniqueIDs(groups...), nil
}

// CompleteTasksForStep completes every pending task of the step. It is a
// no-op when none is pending.
func (o *Orchestrator) CompleteTasksForStep(ctx context.Context, tx store.Tx, stepID string) (int, error) {
	return o.resolve(ctx, tx, store.TaskSelector{StepID: stepID}, model.TaskCompleted)
}

// CancelTasksByPost cancels every pending task of the post except those of
// exceptStepID, which may be empty.
func (o *Orchestrator) CancelTasksByPost(ctx context.Context, tx store.Tx, postID, exceptStepID string) (int, error) {
	return o.resolve(ctx, tx, store.TaskSelector{PostID: postID, ExceptStepID: exceptStepID}, model.TaskCanceled)
}

// CompletePublishTasks completes the pending publish tasks of the post.
func (o *Orchestrator) CompletePublishTasks(ctx context.Context, tx store.Tx, postID string) (int, error) {
	return o.resolve(ctx, tx, store.TaskSelector{PostID: postID, Type: model.TaskPublish}, model.TaskCompleted)
}

// HasPendingReview reports whether the step already has a pending task.
func (o *Orchestrator) HasPendingReview(ctx context.Context, tx store.Tx, stepID string) (bool, error) {
	return tx.Tasks().HasPending(ctx, store.TaskSelector{StepID: stepID, Type: model.TaskReview})
}

func (o *Orchestrator) resolve(ctx context.Context, tx store.Tx, sel store.TaskSelector, status model.TaskStatus) (int, error) {
	n, err := tx.Tasks().ResolvePending(ctx, sel, status, o.now().UTC())
	if err != nil {
		return 0, errors.Wrapf(err, "mark tasks %s", status)
	}
	return n, nil
}
