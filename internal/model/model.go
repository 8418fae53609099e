// Package model defines the entities of the post approval workflow: posts,
// their approval steps and actions, tasks, and workflow templates.
//
// Entities are plain values. Status transitions are owned by the approval
// and taskqueue packages; nothing here talks to the store.
package model

import (
	"slices"
	"time"

	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/google/uuid"
)

// NewID returns a new random entity identifier.
func NewID() string {
	return uuid.NewString()
}

// MediaItem references an uploaded asset attached to a post.
type MediaItem struct {
	URL     string `json:"url" yaml:"url"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	AltText string `json:"alt_text,omitempty" yaml:"alt_text,omitempty"`
}

// Post is a piece of content authored for one or more platforms.
type Post struct {
	ID             string      `json:"id"`
	TenantID       string      `json:"tenant_id"`
	OrganizationID string      `json:"organization_id"`
	AuthorID       string      `json:"author_id"`
	Title          string      `json:"title,omitempty"`
	Content        string      `json:"content"`
	Status         PostStatus  `json:"status"`
	Platforms      []string    `json:"platforms,omitempty"`
	Media          []MediaItem `json:"media,omitempty"`
	ScheduledFor   *time.Time  `json:"scheduled_for,omitempty"`
	PublishID      string      `json:"publish_id,omitempty"`

	// Round counts submissions. Steps created by the latest submission carry
	// the same round; earlier rounds are history.
	Round int `json:"round"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ApprovalStep is one ordered, role-gated gate of a post's review round.
// Steps are snapshots of a template taken at submission time.
type ApprovalStep struct {
	ID           string     `json:"id"`
	PostID       string     `json:"post_id"`
	Round        int        `json:"round"`
	Order        int        `json:"order"`
	Name         string     `json:"name,omitempty"`
	RequiredRole role.Role  `json:"required_role"`
	Status       StepStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// ApprovalAction is an append-only record of a reviewer's decision on a step.
type ApprovalAction struct {
	ID        string     `json:"id"`
	StepID    string     `json:"step_id"`
	ActorID   string     `json:"actor_id"`
	Action    ActionType `json:"action"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Task is an actionable work item assigned to one or more organization members.
// Review tasks reference a step; publish tasks reference only the post.
type Task struct {
	ID             string     `json:"id"`
	PostID         string     `json:"post_id,omitempty"`
	StepID         string     `json:"step_id,omitempty"`
	Type           TaskType   `json:"type"`
	Status         TaskStatus `json:"status"`
	AssigneeIDs    []string   `json:"assignee_ids"`
	OrganizationID string     `json:"organization_id"`
	TenantID       string     `json:"tenant_id"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// HasAssignee reports whether userID is assigned to the task.
func (t *Task) HasAssignee(userID string) bool {
	return slices.Contains(t.AssigneeIDs, userID)
}

// WorkflowStep is a step definition inside a template.
type WorkflowStep struct {
	Name         string        `json:"name"`
	Order        int           `json:"order"`
	RequiredRole role.Role     `json:"required_role"`
	Estimate     time.Duration `json:"estimate,omitempty"`
}

// WorkflowTemplate is a reusable ordered step sequence. An empty TenantID
// marks the global default template.
type WorkflowTemplate struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id,omitempty"`
	Name      string         `json:"name"`
	Active    bool           `json:"active"`
	Steps     []WorkflowStep `json:"steps"`
	CreatedAt time.Time      `json:"created_at"`
}

// IsGlobal reports whether the template is the cross-tenant default.
func (t *WorkflowTemplate) IsGlobal() bool {
	return t.TenantID == ""
}
