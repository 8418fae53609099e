package approval

import (
	"context"
	"slices"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/event"
	"github.com/Iron-Ham/postflow/internal/logging"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/publisher"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store"
	"github.com/Iron-Ham/postflow/internal/taskqueue"
	"github.com/Iron-Ham/postflow/internal/template"
)

// Actor identifies the caller of a command. Authentication happens
// upstream; the engine trusts these values.
type Actor struct {
	TenantID string
	UserID   string
	// Role is the organization role the caller acts with.
	Role role.Role
}

// Observer receives the outcome of every command.
type Observer interface {
	ObserveCommand(command string, err error, elapsed time.Duration)
}

// Config configures an Engine.
type Config struct {
	Resolver *template.Resolver
	Tasks    *taskqueue.Orchestrator
	Gateway  publisher.Gateway
	Notifier *event.Notifier
	Observer Observer
	Logger   *logging.Logger
}

// Engine executes the commands of the approval workflow.
type Engine struct {
	uow        store.UnitOfWork
	resolver   *template.Resolver
	tasks      *taskqueue.Orchestrator
	gateway    publisher.Gateway
	notifier   *event.Notifier
	observer   Observer
	publishers role.Set
	logger     *logging.Logger
	now        func() time.Time
}

// New creates an Engine over uow. cfg.Tasks and cfg.Gateway are required.
func New(uow store.UnitOfWork, cfg Config) *Engine {
	if cfg.Resolver == nil {
		cfg.Resolver = template.NewResolver(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	return &Engine{
		uow:        uow,
		resolver:   cfg.Resolver,
		tasks:      cfg.Tasks,
		gateway:    cfg.Gateway,
		notifier:   cfg.Notifier,
		observer:   cfg.Observer,
		publishers: cfg.Tasks.PublisherRoles(),
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// clock returns the current time as stored.
func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

// run executes fn in a transaction and reports the outcome.
func (e *Engine) run(ctx context.Context, command string, fn func(store.Tx) error) error {
	start := time.Now()
	err := e.uow.Do(ctx, fn)
	if e.observer != nil {
		e.observer.ObserveCommand(command, err, time.Since(start))
	}
	return err
}

// commandLogger returns a logger scoped to one command on one post.
func (e *Engine) commandLogger(command, tenantID, postID string) *logging.Logger {
	return e.logger.WithCommand(command).WithTenant(tenantID).WithPost(postID)
}

// logFailure logs a failed command at a level matching its severity.
func logFailure(logger *logging.Logger, err error) {
	switch errors.GetSeverity(err) {
	case errors.SeverityDebug, errors.SeverityInfo, errors.SeverityWarning:
		logger.Info("command rejected", "error", err, "kind", string(errors.KindOf(err)))
	default:
		logger.Error("command failed", "error", err, "kind", string(errors.KindOf(err)))
	}
}

// loadPost returns the tenant's post.
func loadPost(ctx context.Context, tx store.Tx, tenantID, postID string) (*model.Post, error) {
	if postID == "" {
		return nil, errors.NewValidationError("post id is required").WithField("post_id")
	}
	return tx.Posts().Get(ctx, tenantID, postID)
}

// requireAuthor fails unless actor wrote the post.
func requireAuthor(post *model.Post, actor Actor, operation string) error {
	if post.AuthorID != actor.UserID {
		return errors.NewForbiddenError(operation, actor.UserID).
			WithResource("post", post.ID).
			WithReason("only the author may do this")
	}
	return nil
}

// requireStatus fails unless the post is in one of allowed.
func requireStatus(post *model.Post, allowed ...model.PostStatus) error {
	if slices.Contains(allowed, post.Status) {
		return nil
	}
	expected := make([]string, len(allowed))
	for i, s := range allowed {
		expected[i] = s.String()
	}
	return errors.NewInvalidStateError("post", post.ID, post.Status.String(), expected...)
}

// nextPending returns the lowest-order PENDING step, or nil.
func nextPending(steps []*model.ApprovalStep) *model.ApprovalStep {
	var next *model.ApprovalStep
	for _, s := range steps {
		if s.Status != model.StepPending {
			continue
		}
		if next == nil || s.Order < next.Order {
			next = s
		}
	}
	return next
}

// allApproved reports whether steps is non-empty and fully approved.
func allApproved(steps []*model.ApprovalStep) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if s.Status != model.StepApproved {
			return false
		}
	}
	return true
}

// tolerateNoAssignees drops the non-fatal outcome of task creation.
func tolerateNoAssignees(err error) error {
	if errors.Is(err, taskqueue.ErrNoEligibleAssignees) {
		return nil
	}
	return err
}
