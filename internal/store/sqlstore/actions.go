package sqlstore

import (
	"context"

	"github.com/Iron-Ham/postflow/internal/model"
)

type actionRepo struct {
	c conn
}

func (r *actionRepo) Create(ctx context.Context, a *model.ApprovalAction) error {
	_, err := r.c.exec(ctx, `INSERT INTO approval_action (id, step_id, actor_id, action, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.StepID, a.ActorID, string(a.Action), a.Comment, dbTime(a.CreatedAt))
	return mapError("insert approval action", err)
}

func (r *actionRepo) ListByPost(ctx context.Context, postID string) ([]*model.ApprovalAction, error) {
	rows, err := r.c.query(ctx, `SELECT a.id, a.step_id, a.actor_id, a.action, a.comment, a.created_at
		FROM approval_action a
		JOIN approval_step s ON s.id = a.step_id
		WHERE s.post_id = ?
		ORDER BY a.created_at, s.round, s.step_order, a.id`, postID)
	if err != nil {
		return nil, mapError("select approval actions", err)
	}
	defer rows.Close()

	var actions []*model.ApprovalAction
	for rows.Next() {
		var (
			a      model.ApprovalAction
			action string
		)
		if err := rows.Scan(&a.ID, &a.StepID, &a.ActorID, &action, &a.Comment, &a.CreatedAt); err != nil {
			return nil, mapError("scan approval action", err)
		}
		a.Action = model.ActionType(action)
		a.CreatedAt = a.CreatedAt.UTC()
		actions = append(actions, &a)
	}
	return actions, mapError("iterate approval actions", rows.Err())
}
