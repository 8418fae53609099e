package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/event"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/publisher"
	"github.com/Iron-Ham/postflow/internal/store"
)

// PublishInput describes a publish or schedule request.
type PublishInput struct {
	Platforms []string
	// ScheduledFor defers publication when it lies in the future.
	ScheduledFor *time.Time
	// Media replaces the post's media when non-nil.
	Media []model.MediaItem
}

// Publish publishes an APPROVED post, or schedules it when in.ScheduledFor
// is in the future. The actor must hold a publisher role.
//
// Immediate publication calls the gateway inside the transaction. The post
// becomes PUBLISHED only if the gateway succeeds; otherwise the
// transaction rolls back, the post stays APPROVED and an
// ExternalFailureError is returned. Nothing is retried.
func (e *Engine) Publish(ctx context.Context, actor Actor, postID string, in PublishInput) (*model.Post, error) {
	logger := e.commandLogger("publish", actor.TenantID, postID)

	if len(in.Platforms) == 0 {
		return nil, errors.NewValidationError("at least one platform is required").WithField("platforms")
	}

	var post *model.Post
	err := e.run(ctx, "publish", func(tx store.Tx) error {
		var err error
		post, err = loadPost(ctx, tx, actor.TenantID, postID)
		if err != nil {
			return err
		}
		if !e.publishers.Contains(actor.Role) {
			return errors.NewForbiddenError("publish post", actor.UserID).
				WithResource("post", post.ID).
				WithReason(fmt.Sprintf("requires one of roles %v, caller has %s", e.publishers.Strings(), roleName(actor)))
		}
		if err := requireStatus(post, model.PostApproved); err != nil {
			return err
		}

		post.Platforms = in.Platforms
		if in.Media != nil {
			post.Media = in.Media
		}

		now := e.clock()
		if in.ScheduledFor != nil && in.ScheduledFor.After(now) {
			return e.schedule(ctx, tx, post, actor, in.ScheduledFor.UTC().Truncate(time.Microsecond), now)
		}
		return e.publishNow(ctx, tx, post, actor.UserID, model.PostApproved)
	})
	if err != nil {
		logFailure(logger, err)
		return nil, err
	}
	logger.Info("publish command completed", "actor", actor.UserID, "status", post.Status.String())
	return post, nil
}

func (e *Engine) schedule(ctx context.Context, tx store.Tx, post *model.Post, actor Actor, at, now time.Time) error {
	post.Status = model.PostScheduled
	post.ScheduledFor = &at
	post.UpdatedAt = now
	if err := tx.Posts().Save(ctx, post, model.PostApproved); err != nil {
		return err
	}
	if _, err := e.tasks.CompletePublishTasks(ctx, tx, post.ID); err != nil {
		return err
	}
	e.notifier.Queue(tx, event.NewPostScheduledEvent(post.TenantID, post.ID, actor.UserID, at, post.Platforms))
	return nil
}

// publishNow calls the gateway and, on success, marks the post PUBLISHED.
// expected is the status the post must still be in.
func (e *Engine) publishNow(ctx context.Context, tx store.Tx, post *model.Post, userID string, expected model.PostStatus) error {
	res, err := e.gateway.Publish(ctx, publisher.Request{
		TenantID:  post.TenantID,
		PostID:    post.ID,
		UserID:    userID,
		Content:   post.Content,
		Platforms: post.Platforms,
		Media:     post.Media,
	})
	if err == nil && !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "publisher reported failure"
		}
		err = errors.New(msg)
	}
	if err != nil {
		return errors.NewExternalFailureError("publish", err).WithResource("post", post.ID)
	}

	now := e.clock()
	post.Status = model.PostPublished
	post.PublishID = res.PublishID
	post.PublishedAt = &now
	post.UpdatedAt = now
	if err := tx.Posts().Save(ctx, post, expected); err != nil {
		return err
	}
	if _, err := e.tasks.CompletePublishTasks(ctx, tx, post.ID); err != nil {
		return err
	}
	e.notifier.Queue(tx, event.NewPostPublishedEvent(post.TenantID, post.ID, userID, post.PublishID, post.Platforms))
	return nil
}

// ReleaseScheduled publishes a SCHEDULED post whose date has passed, on
// behalf of its author. A gateway failure leaves the post SCHEDULED.
func (e *Engine) ReleaseScheduled(ctx context.Context, tenantID, postID string) (*model.Post, error) {
	logger := e.commandLogger("release", tenantID, postID)

	var post *model.Post
	err := e.run(ctx, "release", func(tx store.Tx) error {
		var err error
		post, err = loadPost(ctx, tx, tenantID, postID)
		if err != nil {
			return err
		}
		if err := requireStatus(post, model.PostScheduled); err != nil {
			return err
		}
		now := e.clock()
		if post.ScheduledFor != nil && post.ScheduledFor.After(now) {
			return errors.NewInvalidStateError("post", post.ID, post.Status.String()).
				WithCause(fmt.Errorf("not due until %s", post.ScheduledFor.Format(time.RFC3339)))
		}
		return e.publishNow(ctx, tx, post, post.AuthorID, model.PostScheduled)
	})
	if err != nil {
		logFailure(logger, err)
		return nil, err
	}
	logger.Info("scheduled post released", "publish_id", post.PublishID)
	return post, nil
}

// ReleaseFailure is a scheduled post that could not be released.
type ReleaseFailure struct {
	TenantID string
	PostID   string
	Err      error
}

// ReleaseReport summarizes a ReleaseDue pass.
type ReleaseReport struct {
	Released []string
	Failed   []ReleaseFailure
}

// ReleaseDue releases up to limit due scheduled posts of all tenants, each
// in its own transaction. A failing post does not stop the pass.
func (e *Engine) ReleaseDue(ctx context.Context, limit int) (ReleaseReport, error) {
	if limit < 1 {
		limit = 1
	}

	var due []*model.Post
	err := e.uow.Do(ctx, func(tx store.Tx) error {
		var err error
		due, err = tx.Posts().ListDueScheduled(ctx, e.clock(), limit)
		return err
	})
	if err != nil {
		return ReleaseReport{}, errors.Wrap(err, "list due posts")
	}

	var report ReleaseReport
	for _, p := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := e.ReleaseScheduled(ctx, p.TenantID, p.ID); err != nil {
			report.Failed = append(report.Failed, ReleaseFailure{TenantID: p.TenantID, PostID: p.ID, Err: err})
			continue
		}
		report.Released = append(report.Released, p.ID)
	}

	if len(due) > 0 {
		e.logger.Info("release pass finished", "due", len(due), "released", len(report.Released), "failed", len(report.Failed))
	}
	return report, nil
}
