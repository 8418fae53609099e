package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/role"
)

const stepColumns = `id, post_id, round, step_order, name, required_role, status, created_at, resolved_at`

type stepRepo struct {
	c conn
}

func (r *stepRepo) Create(ctx context.Context, s *model.ApprovalStep) error {
	_, err := r.c.exec(ctx, `INSERT INTO approval_step (`+stepColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.PostID, s.Round, s.Order, s.Name, s.RequiredRole.String(), string(s.Status),
		dbTime(s.CreatedAt), nullTime(s.ResolvedAt))
	return mapError("insert approval step", err)
}

func (r *stepRepo) Get(ctx context.Context, id string) (*model.ApprovalStep, error) {
	s, err := scanStep(r.c.queryRow(ctx, `SELECT `+stepColumns+` FROM approval_step WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("step", id)
	}
	if err != nil {
		return nil, mapError("select approval step", err)
	}
	return s, nil
}

func (r *stepRepo) ListByRound(ctx context.Context, postID string, round int) ([]*model.ApprovalStep, error) {
	rows, err := r.c.query(ctx, `SELECT `+stepColumns+` FROM approval_step
		WHERE post_id = ? AND round = ?
		ORDER BY step_order`, postID, round)
	if err != nil {
		return nil, mapError("select approval steps", err)
	}
	defer rows.Close()

	var steps []*model.ApprovalStep
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, mapError("scan approval step", err)
		}
		steps = append(steps, s)
	}
	return steps, mapError("iterate approval steps", rows.Err())
}

func (r *stepRepo) Resolve(ctx context.Context, id string, status model.StepStatus, at time.Time) error {
	res, err := r.c.exec(ctx, `UPDATE approval_step SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?`,
		string(status), dbTime(at), id, string(model.StepPending))
	if err != nil {
		return mapError("update approval step", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError("update approval step", err)
	}
	if n == 0 {
		current, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		return errors.NewInvalidStateError("step", id, current.Status.String(), model.StepPending.String())
	}
	return nil
}

func scanStep(s scanner) (*model.ApprovalStep, error) {
	var (
		step         model.ApprovalStep
		requiredRole string
		status       string
		resolvedAt   sql.NullTime
	)
	if err := s.Scan(&step.ID, &step.PostID, &step.Round, &step.Order, &step.Name,
		&requiredRole, &status, &step.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	r, err := role.Parse(requiredRole)
	if err != nil {
		return nil, errors.Wrapf(err, "step %s", step.ID)
	}
	step.RequiredRole = r
	step.Status = model.StepStatus(status)
	step.CreatedAt = step.CreatedAt.UTC()
	step.ResolvedAt = timePtr(resolvedAt)
	return &step, nil
}
