// Package template resolves and manages workflow templates.
//
// On submission a post's review steps come from, in order of preference,
// the tenant's active template, the global default template, or a fixed
// fallback sequence. The chosen steps are copied into approval steps bound
// to the post, so later template changes never affect submitted posts.
package template

import (
	"context"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store"
)

// Source names where resolved steps came from.
type Source string

const (
	SourceTenant   Source = "tenant"
	SourceGlobal   Source = "global"
	SourceFallback Source = "fallback"
)

// DefaultFallback is the step sequence used when no template applies.
func DefaultFallback() []role.Role {
	return []role.Role{role.Member, role.Admin}
}

// Resolver picks the workflow steps for a submission.
type Resolver struct {
	fallback []model.WorkflowStep
}

// NewResolver creates a resolver whose fallback sequence has one step per
// role, ordered from 1. An empty list selects DefaultFallback.
func NewResolver(fallback []role.Role) *Resolver {
	if len(fallback) == 0 {
		fallback = DefaultFallback()
	}
	steps := make([]model.WorkflowStep, len(fallback))
	for i, r := range fallback {
		steps[i] = model.WorkflowStep{Name: r.String() + " review", Order: i + 1, RequiredRole: r}
	}
	return &Resolver{fallback: steps}
}

// Resolve returns the steps that apply to tenantID. Templates without steps
// are skipped.
func (r *Resolver) Resolve(ctx context.Context, tx store.Tx, tenantID string) ([]model.WorkflowStep, Source, error) {
	if tenantID != "" {
		steps, err := activeSteps(ctx, tx, tenantID)
		if err != nil {
			return nil, "", err
		}
		if len(steps) > 0 {
			return steps, SourceTenant, nil
		}
	}

	steps, err := activeSteps(ctx, tx, "")
	if err != nil {
		return nil, "", err
	}
	if len(steps) > 0 {
		return steps, SourceGlobal, nil
	}

	return append([]model.WorkflowStep(nil), r.fallback...), SourceFallback, nil
}

func activeSteps(ctx context.Context, tx store.Tx, tenantID string) ([]model.WorkflowStep, error) {
	tmpl, err := tx.Templates().Active(ctx, tenantID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tmpl.Steps, nil
}

// Snapshot copies steps into new PENDING approval steps for the post's
// current round.
func Snapshot(post *model.Post, steps []model.WorkflowStep, now time.Time) []*model.ApprovalStep {
	out := make([]*model.ApprovalStep, len(steps))
	for i, s := range steps {
		out[i] = &model.ApprovalStep{
			ID:           model.NewID(),
			PostID:       post.ID,
			Round:        post.Round,
			Order:        s.Order,
			Name:         s.Name,
			RequiredRole: s.RequiredRole,
			Status:       model.StepPending,
			CreatedAt:    now,
		}
	}
	return out
}
