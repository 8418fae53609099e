package model

// PostStatus represents where a post is in its review and publication lifecycle.
type PostStatus string

const (
	// PostDraft is a post being written by its author.
	PostDraft PostStatus = "DRAFT"

	// PostInReview is a submitted post with pending approval steps.
	PostInReview PostStatus = "IN_REVIEW"

	// PostApproved indicates every step of the current round is approved.
	PostApproved PostStatus = "APPROVED"

	// PostScheduled is an approved post waiting for its publication date.
	PostScheduled PostStatus = "SCHEDULED"

	// PostPublished indicates the publisher gateway accepted the post.
	PostPublished PostStatus = "PUBLISHED"

	// PostRejected indicates a reviewer rejected a step. The author may resubmit.
	PostRejected PostStatus = "REJECTED"
)

// String returns the string representation of the post status.
func (s PostStatus) String() string {
	return string(s)
}

// IsValid reports whether s is a known post status.
func (s PostStatus) IsValid() bool {
	switch s {
	case PostDraft, PostInReview, PostApproved, PostScheduled, PostPublished, PostRejected:
		return true
	}
	return false
}

// IsEditable returns true if the author may edit or (re)submit the post.
func (s PostStatus) IsEditable() bool {
	return s == PostDraft || s == PostRejected
}

// StepStatus represents the state of an approval step. A step leaves PENDING exactly once.
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
)

// String returns the string representation of the step status.
func (s StepStatus) String() string {
	return string(s)
}

// ActionType is the decision recorded by an approval action.
type ActionType string

const (
	ActionApprove ActionType = "APPROVE"
	ActionReject  ActionType = "REJECT"
)

// String returns the string representation of the action type.
func (a ActionType) String() string {
	return string(a)
}

// TaskType distinguishes review work from publication work.
type TaskType string

const (
	TaskReview  TaskType = "REVIEW"
	TaskPublish TaskType = "PUBLISH"
)

// String returns the string representation of the task type.
func (t TaskType) String() string {
	return string(t)
}

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskPending indicates the task is waiting on its assignees.
	TaskPending TaskStatus = "PENDING"

	// TaskCompleted indicates the work the task represents was done.
	TaskCompleted TaskStatus = "COMPLETED"

	// TaskCanceled indicates the task became moot, for example after a rejection.
	TaskCanceled TaskStatus = "CANCELED"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskCanceled
}
