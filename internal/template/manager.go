package template

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store"
	"gopkg.in/yaml.v3"
)

// File is the YAML representation of a template.
//
//	name: standard review
//	tenant: acme        # omit for the global default
//	steps:
//	  - name: copy edit
//	    order: 1
//	    role: member
//	    estimate: 2h
//	  - name: sign-off
//	    order: 2
//	    role: org:admin
type File struct {
	Name   string     `yaml:"name"`
	Tenant string     `yaml:"tenant"`
	Steps  []FileStep `yaml:"steps"`
}

// FileStep is one step of a template file.
type FileStep struct {
	Name     string `yaml:"name"`
	Order    int    `yaml:"order"`
	Role     string `yaml:"role"`
	Estimate string `yaml:"estimate"`
}

// Manager validates and stores templates.
type Manager struct {
	uow   store.UnitOfWork
	known role.Set
	now   func() time.Time
}

// NewManager creates a Manager that accepts only the known roles.
func NewManager(uow store.UnitOfWork, known role.Set) *Manager {
	return &Manager{uow: uow, known: known, now: time.Now}
}

// Parse decodes a YAML template. Unknown fields are rejected.
func (m *Manager) Parse(data []byte) (*model.WorkflowTemplate, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.NewValidationError("template is not valid YAML").WithCause(err)
	}

	tmpl := &model.WorkflowTemplate{
		Name:     f.Name,
		TenantID: f.Tenant,
	}
	for i, s := range f.Steps {
		r, err := role.Parse(s.Role)
		if err != nil {
			return nil, errors.NewValidationError(err.Error()).WithField(fmt.Sprintf("steps[%d].role", i)).WithValue(s.Role)
		}
		var estimate time.Duration
		if s.Estimate != "" {
			estimate, err = time.ParseDuration(s.Estimate)
			if err != nil || estimate < 0 {
				return nil, errors.NewValidationError("estimate must be a non-negative duration such as 90m").
					WithField(fmt.Sprintf("steps[%d].estimate", i)).WithValue(s.Estimate)
			}
		}
		tmpl.Steps = append(tmpl.Steps, model.WorkflowStep{
			Name:         s.Name,
			Order:        s.Order,
			RequiredRole: r,
			Estimate:     estimate,
		})
	}

	if err := m.Validate(tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// LoadFile reads and parses a YAML template file.
func (m *Manager) LoadFile(path string) (*model.WorkflowTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return m.Parse(data)
}

// Validate checks that the template has a name and at least one step, that
// step orders are positive and strictly increasing, and that every role is
// known.
func (m *Manager) Validate(t *model.WorkflowTemplate) error {
	if t.Name == "" {
		return errors.NewValidationError("template name is required").WithField("name")
	}
	if len(t.Steps) == 0 {
		return errors.NewValidationError("template needs at least one step").WithField("steps")
	}
	prev := 0
	for i, s := range t.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if s.Order <= prev {
			return errors.NewValidationError("step orders must be positive and strictly increasing").
				WithField(field + ".order").WithValue(s.Order)
		}
		prev = s.Order
		if !m.known.Contains(s.RequiredRole) {
			return errors.NewValidationError(fmt.Sprintf("unknown role (known: %v)", m.known.Strings())).
				WithField(field + ".role").WithValue(s.RequiredRole.String())
		}
	}
	return nil
}

// Save validates t and stores it as the active template of its tenant,
// deactivating the previous one.
func (m *Manager) Save(ctx context.Context, t *model.WorkflowTemplate) error {
	if err := m.Validate(t); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = model.NewID()
	}
	t.Active = true
	t.CreatedAt = m.now().UTC()

	return m.uow.Do(ctx, func(tx store.Tx) error {
		if err := tx.Templates().Deactivate(ctx, t.TenantID); err != nil {
			return err
		}
		return tx.Templates().Create(ctx, t)
	})
}

// List returns every stored template, active or not.
func (m *Manager) List(ctx context.Context) ([]*model.WorkflowTemplate, error) {
	var out []*model.WorkflowTemplate
	err := m.uow.Do(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Templates().List(ctx)
		return err
	})
	return out, err
}
