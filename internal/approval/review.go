package approval

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/event"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/store"
	"github.com/Iron-Ham/postflow/internal/template"
)

// SubmitForReview starts a new review round on a DRAFT or REJECTED post.
// The resolved workflow is snapshotted into fresh approval steps and the
// first step gets a review task. Steps and actions of earlier rounds are
// kept as history.
func (e *Engine) SubmitForReview(ctx context.Context, actor Actor, postID string) (*model.Post, error) {
	logger := e.commandLogger("submit", actor.TenantID, postID)

	var (
		post  *model.Post
		steps []*model.ApprovalStep
	)
	err := e.run(ctx, "submit", func(tx store.Tx) error {
		var err error
		post, err = loadPost(ctx, tx, actor.TenantID, postID)
		if err != nil {
			return err
		}
		if err := requireAuthor(post, actor, "submit post"); err != nil {
			return err
		}
		if err := requireStatus(post, model.PostDraft, model.PostRejected); err != nil {
			return err
		}

		workflow, source, err := e.resolver.Resolve(ctx, tx, post.TenantID)
		if err != nil {
			return errors.Wrap(err, "resolve workflow")
		}

		now := e.clock()
		previous := post.Status
		post.Status = model.PostInReview
		post.Round++
		post.SubmittedAt = &now
		post.UpdatedAt = now
		if err := tx.Posts().Save(ctx, post, previous); err != nil {
			return err
		}

		steps = snapshot(post, workflow, now)
		stepIDs := make([]string, len(steps))
		for i, s := range steps {
			if err := tx.Steps().Create(ctx, s); err != nil {
				return err
			}
			stepIDs[i] = s.ID
		}

		logger.Debug("workflow resolved", "source", string(source), "steps", len(steps), "round", post.Round)
		e.notifier.Queue(tx, event.NewPostSubmittedEvent(post.TenantID, post.ID, actor.UserID, post.Round, stepIDs))

		if first := nextPending(steps); first != nil {
			if _, err := e.tasks.CreateReviewTask(ctx, tx, post, first); tolerateNoAssignees(err) != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logFailure(logger, err)
		return nil, err
	}
	logger.Info("post submitted for review", "round", post.Round, "steps", len(steps))
	return post, nil
}

// snapshot copies the workflow into the post's current round, ordered by step order.
func snapshot(post *model.Post, workflow []model.WorkflowStep, now time.Time) []*model.ApprovalStep {
	steps := template.Snapshot(post, workflow, now)
	slices.SortStableFunc(steps, func(a, b *model.ApprovalStep) int { return a.Order - b.Order })
	return steps
}

// ApproveSteps approves a batch of pending steps of the post's current
// round. Every step must require the actor's role. After the batch, either
// the post becomes APPROVED with a publish task, or the lowest-order
// pending step gets a review task if it has none. Any failed precondition
// aborts the whole batch.
func (e *Engine) ApproveSteps(ctx context.Context, actor Actor, postID string, stepIDs []string, comment string) (*model.Post, error) {
	logger := e.commandLogger("approve", actor.TenantID, postID)

	if len(stepIDs) == 0 {
		return nil, errors.NewValidationError("at least one step is required").WithField("step_ids")
	}
	if dup := firstDuplicate(stepIDs); dup != "" {
		return nil, errors.NewValidationError("step listed more than once").WithField("step_ids").WithValue(dup)
	}

	var (
		post     *model.Post
		approved []*model.ApprovalStep
	)
	err := e.run(ctx, "approve", func(tx store.Tx) error {
		var err error
		post, err = loadPost(ctx, tx, actor.TenantID, postID)
		if err != nil {
			return err
		}
		if err := requireStatus(post, model.PostInReview); err != nil {
			return err
		}

		approved, err = e.reviewableSteps(ctx, tx, post, actor, stepIDs, "approve step")
		if err != nil {
			return err
		}

		now := e.clock()
		events := make([]event.Event, 0, len(approved))
		for _, step := range approved {
			if err := e.resolveStep(ctx, tx, step, actor, model.ActionApprove, comment); err != nil {
				return err
			}
			if _, err := e.tasks.CompleteTasksForStep(ctx, tx, step.ID); err != nil {
				return err
			}
			events = append(events, event.NewStepApprovedEvent(post.TenantID, post.ID, step.ID, step.Order, actor.UserID, comment))
		}

		e.notifier.Queue(tx, events...)

		steps, err := tx.Steps().ListByRound(ctx, post.ID, post.Round)
		if err != nil {
			return err
		}

		post.UpdatedAt = now
		if allApproved(steps) {
			post.Status = model.PostApproved
			if err := tx.Posts().Save(ctx, post, model.PostInReview); err != nil {
				return err
			}
			if _, err := e.tasks.CreatePublishTask(ctx, tx, post); tolerateNoAssignees(err) != nil {
				return err
			}
			e.notifier.Queue(tx, event.NewPostApprovedEvent(post.TenantID, post.ID, post.Round))
		} else {
			// The post row is written on every batch so that concurrent
			// batches on one post conflict.
			if err := tx.Posts().Save(ctx, post, model.PostInReview); err != nil {
				return err
			}
			if next := nextPending(steps); next != nil {
				has, err := e.tasks.HasPendingReview(ctx, tx, next.ID)
				if err != nil {
					return err
				}
				if !has {
					if _, err := e.tasks.CreateReviewTask(ctx, tx, post, next); tolerateNoAssignees(err) != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		logFailure(logger, err)
		return nil, err
	}
	logger.Info("steps approved", "actor", actor.UserID, "steps", len(approved), "status", post.Status.String())
	return post, nil
}

// RejectStep rejects one pending step, which ends the review round: the
// post becomes REJECTED, the step's task is completed and every other
// pending task of the post is canceled. A comment is mandatory.
func (e *Engine) RejectStep(ctx context.Context, actor Actor, postID, stepID, comment string) (*model.Post, error) {
	logger := e.commandLogger("reject", actor.TenantID, postID)

	if strings.TrimSpace(comment) == "" {
		return nil, errors.NewValidationError("a rejection comment is required").WithField("comment").WithValue(comment)
	}

	var post *model.Post
	err := e.run(ctx, "reject", func(tx store.Tx) error {
		var err error
		post, err = loadPost(ctx, tx, actor.TenantID, postID)
		if err != nil {
			return err
		}
		if err := requireStatus(post, model.PostInReview); err != nil {
			return err
		}

		steps, err := e.reviewableSteps(ctx, tx, post, actor, []string{stepID}, "reject step")
		if err != nil {
			return err
		}
		step := steps[0]

		if err := e.resolveStep(ctx, tx, step, actor, model.ActionReject, comment); err != nil {
			return err
		}

		post.Status = model.PostRejected
		post.UpdatedAt = e.clock()
		if err := tx.Posts().Save(ctx, post, model.PostInReview); err != nil {
			return err
		}

		if _, err := e.tasks.CompleteTasksForStep(ctx, tx, step.ID); err != nil {
			return err
		}
		canceled, err := e.tasks.CancelTasksByPost(ctx, tx, post.ID, step.ID)
		if err != nil {
			return err
		}

		logger.Debug("pending tasks canceled", "count", canceled)
		e.notifier.Queue(tx, event.NewStepRejectedEvent(post.TenantID, post.ID, step.ID, actor.UserID, comment))
		return nil
	})
	if err != nil {
		logFailure(logger, err)
		return nil, err
	}
	logger.Info("step rejected", "actor", actor.UserID, "step_id", stepID)
	return post, nil
}

// reviewableSteps loads the targeted steps and checks that each belongs to
// the post's current round, is still pending and requires the actor's
// role. The result is sorted by step order.
func (e *Engine) reviewableSteps(ctx context.Context, tx store.Tx, post *model.Post, actor Actor, stepIDs []string, operation string) ([]*model.ApprovalStep, error) {
	steps := make([]*model.ApprovalStep, 0, len(stepIDs))
	for _, id := range stepIDs {
		step, err := tx.Steps().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if step.PostID != post.ID || step.Round != post.Round {
			return nil, errors.NewNotFoundError("approval step", id)
		}
		if step.Status != model.StepPending {
			return nil, errors.NewInvalidStateError("approval step", id, step.Status.String(), model.StepPending.String())
		}
		if !step.RequiredRole.Equal(actor.Role) {
			return nil, errors.NewForbiddenError(operation, actor.UserID).
				WithResource("approval step", id).
				WithReason("requires role " + step.RequiredRole.String() + ", caller has " + roleName(actor))
		}
		steps = append(steps, step)
	}
	slices.SortStableFunc(steps, func(a, b *model.ApprovalStep) int { return a.Order - b.Order })
	return steps, nil
}

// resolveStep records the action and moves the step out of PENDING. The
// store's conditional update is what makes concurrent resolutions of the
// same step fail.
func (e *Engine) resolveStep(ctx context.Context, tx store.Tx, step *model.ApprovalStep, actor Actor, action model.ActionType, comment string) error {
	now := e.clock()
	if err := tx.Actions().Create(ctx, &model.ApprovalAction{
		ID:        model.NewID(),
		StepID:    step.ID,
		ActorID:   actor.UserID,
		Action:    action,
		Comment:   comment,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	status := model.StepApproved
	if action == model.ActionReject {
		status = model.StepRejected
	}
	if err := tx.Steps().Resolve(ctx, step.ID, status, now); err != nil {
		return err
	}
	step.Status = status
	step.ResolvedAt = &now
	return nil
}

func roleName(actor Actor) string {
	if actor.Role.IsZero() {
		return "none"
	}
	return actor.Role.String()
}

func firstDuplicate(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
	}
	return ""
}
