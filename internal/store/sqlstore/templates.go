package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/role"
)

type templateRepo struct {
	c conn
}

func (r *templateRepo) Create(ctx context.Context, t *model.WorkflowTemplate) error {
	if _, err := r.c.exec(ctx, `INSERT INTO workflow_template (id, tenant_id, name, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, t.Name, t.Active, dbTime(t.CreatedAt)); err != nil {
		return mapError("insert workflow template", err)
	}
	for _, s := range t.Steps {
		if _, err := r.c.exec(ctx, `INSERT INTO workflow_template_step (template_id, step_order, name, required_role, estimate_seconds)
			VALUES (?, ?, ?, ?, ?)`,
			t.ID, s.Order, s.Name, s.RequiredRole.String(), int64(s.Estimate/time.Second)); err != nil {
			return mapError("insert workflow template step", err)
		}
	}
	return nil
}

func (r *templateRepo) Active(ctx context.Context, tenantID string) (*model.WorkflowTemplate, error) {
	var t model.WorkflowTemplate
	err := r.c.queryRow(ctx, `SELECT id, tenant_id, name, active, created_at FROM workflow_template
		WHERE tenant_id = ? AND active = ?
		ORDER BY created_at DESC, id
		LIMIT 1`, tenantID, true).Scan(&t.ID, &t.TenantID, &t.Name, &t.Active, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		name := tenantID
		if name == "" {
			name = "global"
		}
		return nil, errors.NewNotFoundError("active template", name)
	}
	if err != nil {
		return nil, mapError("select workflow template", err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	if err := r.loadSteps(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepo) Deactivate(ctx context.Context, tenantID string) error {
	_, err := r.c.exec(ctx, `UPDATE workflow_template SET active = ? WHERE tenant_id = ? AND active = ?`,
		false, tenantID, true)
	return mapError("deactivate workflow templates", err)
}

func (r *templateRepo) List(ctx context.Context) ([]*model.WorkflowTemplate, error) {
	rows, err := r.c.query(ctx, `SELECT id, tenant_id, name, active, created_at FROM workflow_template
		ORDER BY tenant_id, created_at, id`)
	if err != nil {
		return nil, mapError("select workflow templates", err)
	}
	defer rows.Close()

	var templates []*model.WorkflowTemplate
	for rows.Next() {
		var t model.WorkflowTemplate
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Active, &t.CreatedAt); err != nil {
			return nil, mapError("scan workflow template", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		templates = append(templates, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate workflow templates", err)
	}
	// Steps are loaded once the cursor is exhausted; lib/pq cannot run a
	// second query while one is still streaming on the same transaction.
	for _, t := range templates {
		if err := r.loadSteps(ctx, t); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (r *templateRepo) loadSteps(ctx context.Context, t *model.WorkflowTemplate) error {
	rows, err := r.c.query(ctx, `SELECT step_order, name, required_role, estimate_seconds
		FROM workflow_template_step WHERE template_id = ? ORDER BY step_order`, t.ID)
	if err != nil {
		return mapError("select workflow template steps", err)
	}
	defer rows.Close()

	t.Steps = nil
	for rows.Next() {
		var (
			s        model.WorkflowStep
			roleName string
			estimate int64
		)
		if err := rows.Scan(&s.Order, &s.Name, &roleName, &estimate); err != nil {
			return mapError("scan workflow template step", err)
		}
		rr, err := role.Parse(roleName)
		if err != nil {
			return errors.Wrapf(err, "template %s", t.ID)
		}
		s.RequiredRole = rr
		s.Estimate = time.Duration(estimate) * time.Second
		t.Steps = append(t.Steps, s)
	}
	return mapError("iterate workflow template steps", rows.Err())
}
