package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "post.submitted", "step.approved")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypePostSubmitted = "post.submitted"
	TypeStepApproved  = "step.approved"
	TypeStepRejected  = "step.rejected"
	TypePostApproved  = "post.approved"
	TypePostScheduled = "post.scheduled"
	TypePostPublished = "post.published"
	TypeTaskCreated   = "task.created"
	TypeTaskSkipped   = "task.skipped"
)

// Types returns every domain event type.
func Types() []string {
	return []string{
		TypePostSubmitted, TypeStepApproved, TypeStepRejected, TypePostApproved,
		TypePostScheduled, TypePostPublished, TypeTaskCreated, TypeTaskSkipped,
	}
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Post Lifecycle Events
// -----------------------------------------------------------------------------

// PostSubmittedEvent is emitted when an author submits a post for review.
type PostSubmittedEvent struct {
	baseEvent
	TenantID string   `json:"tenant_id"`
	PostID   string   `json:"post_id"`
	AuthorID string   `json:"author_id"`
	Round    int      `json:"round"`
	StepIDs  []string `json:"step_ids"`
}

// NewPostSubmittedEvent creates a PostSubmittedEvent.
func NewPostSubmittedEvent(tenantID, postID, authorID string, round int, stepIDs []string) PostSubmittedEvent {
	return PostSubmittedEvent{
		baseEvent: newBaseEvent(TypePostSubmitted),
		TenantID:  tenantID,
		PostID:    postID,
		AuthorID:  authorID,
		Round:     round,
		StepIDs:   stepIDs,
	}
}

// PostApprovedEvent is emitted when the last pending step of a round is approved.
type PostApprovedEvent struct {
	baseEvent
	TenantID string `json:"tenant_id"`
	PostID   string `json:"post_id"`
	Round    int    `json:"round"`
}

// NewPostApprovedEvent creates a PostApprovedEvent.
func NewPostApprovedEvent(tenantID, postID string, round int) PostApprovedEvent {
	return PostApprovedEvent{
		baseEvent: newBaseEvent(TypePostApproved),
		TenantID:  tenantID,
		PostID:    postID,
		Round:     round,
	}
}

// PostScheduledEvent is emitted when an approved post is scheduled for later publication.
type PostScheduledEvent struct {
	baseEvent
	TenantID     string    `json:"tenant_id"`
	PostID       string    `json:"post_id"`
	ActorID      string    `json:"actor_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Platforms    []string  `json:"platforms"`
}

// NewPostScheduledEvent creates a PostScheduledEvent.
func NewPostScheduledEvent(tenantID, postID, actorID string, scheduledFor time.Time, platforms []string) PostScheduledEvent {
	return PostScheduledEvent{
		baseEvent:    newBaseEvent(TypePostScheduled),
		TenantID:     tenantID,
		PostID:       postID,
		ActorID:      actorID,
		ScheduledFor: scheduledFor,
		Platforms:    platforms,
	}
}

// PostPublishedEvent is emitted when the publisher gateway accepted a post.
type PostPublishedEvent struct {
	baseEvent
	TenantID  string   `json:"tenant_id"`
	PostID    string   `json:"post_id"`
	ActorID   string   `json:"actor_id"`
	PublishID string   `json:"publish_id"`
	Platforms []string `json:"platforms"`
}

// NewPostPublishedEvent creates a PostPublishedEvent.
func NewPostPublishedEvent(tenantID, postID, actorID, publishID string, platforms []string) PostPublishedEvent {
	return PostPublishedEvent{
		baseEvent: newBaseEvent(TypePostPublished),
		TenantID:  tenantID,
		PostID:    postID,
		ActorID:   actorID,
		PublishID: publishID,
		Platforms: platforms,
	}
}

// -----------------------------------------------------------------------------
// Step Events
// -----------------------------------------------------------------------------

// StepApprovedEvent is emitted once per approved step.
type StepApprovedEvent struct {
	baseEvent
	TenantID string `json:"tenant_id"`
	PostID   string `json:"post_id"`
	StepID   string `json:"step_id"`
	Order    int    `json:"order"`
	ActorID  string `json:"actor_id"`
	Comment  string `json:"comment,omitempty"`
}

// NewStepApprovedEvent creates a StepApprovedEvent.
func NewStepApprovedEvent(tenantID, postID, stepID string, order int, actorID, comment string) StepApprovedEvent {
	return StepApprovedEvent{
		baseEvent: newBaseEvent(TypeStepApproved),
		TenantID:  tenantID,
		PostID:    postID,
		StepID:    stepID,
		Order:     order,
		ActorID:   actorID,
		Comment:   comment,
	}
}

// StepRejectedEvent is emitted when a reviewer rejects a step.
type StepRejectedEvent struct {
	baseEvent
	TenantID string `json:"tenant_id"`
	PostID   string `json:"post_id"`
	StepID   string `json:"step_id"`
	ActorID  string `json:"actor_id"`
	Comment  string `json:"comment"`
}

// NewStepRejectedEvent creates a StepRejectedEvent.
func NewStepRejectedEvent(tenantID, postID, stepID, actorID, comment string) StepRejectedEvent {
	return StepRejectedEvent{
		baseEvent: newBaseEvent(TypeStepRejected),
		TenantID:  tenantID,
		PostID:    postID,
		StepID:    stepID,
		ActorID:   actorID,
		Comment:   comment,
	}
}

// -----------------------------------------------------------------------------
// Task Events
// -----------------------------------------------------------------------------

// TaskCreatedEvent is emitted when a review or publish task is assigned.
type TaskCreatedEvent struct {
	baseEvent
	TenantID    string   `json:"tenant_id"`
	TaskID      string   `json:"task_id"`
	PostID      string   `json:"post_id"`
	StepID      string   `json:"step_id,omitempty"`
	TaskType    string   `json:"task_type"`
	AssigneeIDs []string `json:"assignee_ids"`
}

// NewTaskCreatedEvent creates a TaskCreatedEvent.
func NewTaskCreatedEvent(tenantID, taskID, postID, stepID, taskType string, assigneeIDs []string) TaskCreatedEvent {
	return TaskCreatedEvent{
		baseEvent:   newBaseEvent(TypeTaskCreated),
		TenantID:    tenantID,
		TaskID:      taskID,
		PostID:      postID,
		StepID:      stepID,
		TaskType:    taskType,
		AssigneeIDs: assigneeIDs,
	}
}

// TaskSkippedEvent is emitted when no organization member could be assigned
// a task. The post stays in a valid state without an actionable task.
type TaskSkippedEvent struct {
	baseEvent
	TenantID string   `json:"tenant_id"`
	PostID   string   `json:"post_id"`
	StepID   string   `json:"step_id,omitempty"`
	TaskType string   `json:"task_type"`
	Roles    []string `json:"roles"`
}

// NewTaskSkippedEvent creates a TaskSkippedEvent.
func NewTaskSkippedEvent(tenantID, postID, stepID, taskType string, roles []string) TaskSkippedEvent {
	return TaskSkippedEvent{
		baseEvent: newBaseEvent(TypeTaskSkipped),
		TenantID:  tenantID,
		PostID:    postID,
		StepID:    stepID,
		TaskType:  taskType,
		Roles:     roles,
	}
}
