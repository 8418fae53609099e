package approval

import (
	"context"
	"strings"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/store"
)

// DraftInput describes a new post.
type DraftInput struct {
	OrganizationID string
	Title          string
	Content        string
	Platforms      []string
	Media          []model.MediaItem
}

// DraftUpdate changes an editable post. Nil fields are left unchanged.
type DraftUpdate struct {
	Title     *string
	Content   *string
	Platforms []string
	Media     []model.MediaItem
}

// PostView is a post with its current review round and full history.
type PostView struct {
	Post    *model.Post             `json:"post"`
	Steps   []*model.ApprovalStep   `json:"steps"`
	Actions []*model.ApprovalAction `json:"actions"`
	Tasks   []*model.Task           `json:"tasks"`
}

// CreateDraft stores a new DRAFT post written by actor.
func (e *Engine) CreateDraft(ctx context.Context, actor Actor, in DraftInput) (*model.Post, error) {
	switch {
	case actor.TenantID == "":
		return nil, errors.NewValidationError("tenant is required").WithField("tenant_id")
	case actor.UserID == "":
		return nil, errors.NewValidationError("author is required").WithField("user_id")
	case in.OrganizationID == "":
		return nil, errors.NewValidationError("organization is required").WithField("organization_id")
	case strings.TrimSpace(in.Content) == "":
		return nil, errors.NewValidationError("content is required").WithField("content")
	}

	now := e.clock()
	post := &model.Post{
		ID:             model.NewID(),
		TenantID:       actor.TenantID,
		OrganizationID: in.OrganizationID,
		AuthorID:       actor.UserID,
		Title:          in.Title,
		Content:        in.Content,
		Status:         model.PostDraft,
		Platforms:      in.Platforms,
		Media:          in.Media,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := e.run(ctx, "create_draft", func(tx store.Tx) error {
		return tx.Posts().Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	e.commandLogger("create_draft", post.TenantID, post.ID).Info("draft created")
	return post, nil
}

// UpdateDraft edits a DRAFT or REJECTED post. Only the author may edit.
func (e *Engine) UpdateDraft(ctx context.Context, actor Actor, postID string, upd DraftUpdate) (*model.Post, error) {
	logger := e.commandLogger("update_draft", actor.TenantID, postID)

	var post *model.Post
	err := e.run(ctx, "update_draft", func(tx store.Tx) error {
		var err error
		post, err = loadPost(ctx, tx, actor.TenantID, postID)
		if err != nil {
			return err
		}
		if err := requireAuthor(post, actor, "edit post"); err != nil {
			return err
		}
		if err := requireStatus(post, model.PostDraft, model.PostRejected); err != nil {
			return err
		}

		if upd.Title != nil {
			post.Title = *upd.Title
		}
		if upd.Content != nil {
			if strings.TrimSpace(*upd.Content) == "" {
				return errors.NewValidationError("content is required").WithField("content")
			}
			post.Content = *upd.Content
		}
		if upd.Platforms != nil {
			post.Platforms = upd.Platforms
		}
		if upd.Media != nil {
			post.Media = upd.Media
		}
		post.UpdatedAt = e.clock()
		return tx.Posts().Save(ctx, post, post.Status)
	})
	if err != nil {
		logFailure(logger, err)
		return nil, err
	}
	logger.Info("draft updated")
	return post, nil
}

// GetPost returns the post with the steps of its current round, every
// recorded action and its tasks.
func (e *Engine) GetPost(ctx context.Context, tenantID, postID string) (*PostView, error) {
	view := &PostView{}
	err := e.uow.Do(ctx, func(tx store.Tx) error {
		var err error
		if view.Post, err = loadPost(ctx, tx, tenantID, postID); err != nil {
			return err
		}
		if view.Steps, err = tx.Steps().ListByRound(ctx, postID, view.Post.Round); err != nil {
			return err
		}
		if view.Actions, err = tx.Actions().ListByPost(ctx, postID); err != nil {
			return err
		}
		view.Tasks, err = tx.Tasks().List(ctx, store.TaskFilter{TenantID: tenantID, PostID: postID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// History returns every approval action recorded on the post, across all
// review rounds, oldest first.
func (e *Engine) History(ctx context.Context, tenantID, postID string) ([]*model.ApprovalAction, error) {
	var actions []*model.ApprovalAction
	err := e.uow.Do(ctx, func(tx store.Tx) error {
		if _, err := loadPost(ctx, tx, tenantID, postID); err != nil {
			return err
		}
		var err error
		actions, err = tx.Actions().ListByPost(ctx, postID)
		return err
	})
	return actions, err
}
