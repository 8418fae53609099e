// Package store defines the persistence contracts of the workflow engine.
//
// Every mutating command runs inside [UnitOfWork.Do]. Repositories are only
// reachable through the [Tx] handle passed to the callback, so there is no
// ambient transaction: a repository call is part of exactly the transaction
// whose handle it was reached from. Work that must only happen once the
// transaction is durable, such as event delivery, is registered with
// [Tx.AfterCommit] and discarded on rollback.
//
// Lookups of a missing row return an *errors.NotFoundError. Conditional
// transitions that find the row in an unexpected state return an
// *errors.InvalidStateError. Serialization failures and lock timeouts
// reported by the database return a retryable *errors.ConflictError.
package store

import (
	"context"
	"time"

	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/role"
)

// UnitOfWork runs functions inside a database transaction.
type UnitOfWork interface {
	// Do begins a transaction, calls fn with its handle and commits when fn
	// returns nil. Any error or panic rolls back. After a successful commit
	// the AfterCommit hooks run in registration order.
	Do(ctx context.Context, fn func(Tx) error) error
}

// Tx is an open transaction.
type Tx interface {
	Posts() PostRepository
	Steps() StepRepository
	Actions() ActionRepository
	Tasks() TaskRepository
	Templates() TemplateRepository
	Members() MemberRepository

	// AfterCommit registers fn to run once the transaction has committed.
	AfterCommit(fn func())
}

// PostRepository persists posts.
type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	// Get returns the post if it belongs to tenantID.
	Get(ctx context.Context, tenantID, id string) (*model.Post, error)
	// Save writes p if the stored status still equals expected and returns
	// an InvalidStateError otherwise.
	Save(ctx context.Context, p *model.Post, expected model.PostStatus) error
	// ListDueScheduled returns SCHEDULED posts of all tenants whose
	// publication date is not after now, oldest first.
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Post, error)
}

// StepRepository persists approval steps.
type StepRepository interface {
	Create(ctx context.Context, s *model.ApprovalStep) error
	Get(ctx context.Context, id string) (*model.ApprovalStep, error)
	// ListByRound returns the steps of one review round in ascending order.
	ListByRound(ctx context.Context, postID string, round int) ([]*model.ApprovalStep, error)
	// Resolve moves a PENDING step to status. A step that is no longer
	// PENDING yields an InvalidStateError and is left untouched.
	Resolve(ctx context.Context, id string, status model.StepStatus, at time.Time) error
}

// ActionRepository appends approval actions.
type ActionRepository interface {
	Create(ctx context.Context, a *model.ApprovalAction) error
	// ListByPost returns every action recorded on any round of the post, oldest first.
	ListByPost(ctx context.Context, postID string) ([]*model.ApprovalAction, error)
}

// TaskSelector narrows a bulk task transition. Zero fields match everything
// except that PostID or StepID must be set.
type TaskSelector struct {
	PostID       string
	StepID       string
	Type         model.TaskType
	ExceptStepID string
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	TenantID   string
	AssigneeID string
	PostID     string
	Status     model.TaskStatus
	Type       model.TaskType
	Limit      int
}

// TaskRepository persists tasks and their assignees.
type TaskRepository interface {
	Create(ctx context.Context, t *model.Task) error
	// Get returns the task if it belongs to tenantID.
	Get(ctx context.Context, tenantID, id string) (*model.Task, error)
	List(ctx context.Context, f TaskFilter) ([]*model.Task, error)
	// SetAssignees replaces the assignee list of a PENDING task.
	SetAssignees(ctx context.Context, id string, assigneeIDs []string) error
	// ResolvePending moves every PENDING task matched by sel to status and
	// returns how many changed. Already resolved tasks are left untouched.
	ResolvePending(ctx context.Context, sel TaskSelector, status model.TaskStatus, at time.Time) (int, error)
	// HasPending reports whether sel matches at least one PENDING task.
	HasPending(ctx context.Context, sel TaskSelector) (bool, error)
	// CountPending returns the number of PENDING tasks of orgID assigned to
	// each of userIDs. Users without pending tasks are absent from the map.
	CountPending(ctx context.Context, orgID string, userIDs []string) (map[string]int, error)
}

// TemplateRepository persists workflow templates.
type TemplateRepository interface {
	Create(ctx context.Context, t *model.WorkflowTemplate) error
	// Active returns the active template of tenantID, or of the global
	// default when tenantID is empty.
	Active(ctx context.Context, tenantID string) (*model.WorkflowTemplate, error)
	// Deactivate clears the active flag of every template of tenantID.
	Deactivate(ctx context.Context, tenantID string) error
	List(ctx context.Context) ([]*model.WorkflowTemplate, error)
}

// Membership is one role held by a user in an organization.
type Membership struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           role.Role `json:"role"`
}

// MemberRepository persists organization memberships.
type MemberRepository interface {
	// Add records the membership. Adding an existing membership is a no-op.
	Add(ctx context.Context, m Membership) error
	// ListByRole returns user ids holding r in orgID, in the order they were added.
	ListByRole(ctx context.Context, orgID string, r role.Role) ([]string, error)
	List(ctx context.Context, orgID string) ([]Membership, error)
}
