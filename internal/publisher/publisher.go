// Package publisher talks to the service that publishes posts to social
// platforms.
//
// The workflow engine calls a [Gateway] synchronously while its publish
// transaction is open; the outcome decides between commit and rollback. A
// returned error and a result with Success=false mean the same thing.
// Gateways never retry.
//
// The HTTP gateway distinguishes a refusal of one publication
// ([RefusedError], or a 4xx [StatusError]) from an unavailable service. Only
// the latter counts toward its circuit breaker.
package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/Iron-Ham/postflow/internal/model"
)

// Request is a single publication.
type Request struct {
	TenantID  string            `json:"tenant_id"`
	PostID    string            `json:"post_id"`
	UserID    string            `json:"user_id"`
	Content   string            `json:"content"`
	Platforms []string          `json:"platforms"`
	Media     []model.MediaItem `json:"media,omitempty"`
}

// PlatformResult is the outcome on one platform.
type PlatformResult struct {
	Platform   string `json:"platform"`
	Success    bool   `json:"success"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result is the outcome of a publication.
type Result struct {
	Success         bool             `json:"success"`
	PublishID       string           `json:"publish_id,omitempty"`
	PlatformResults []PlatformResult `json:"platform_results,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// Gateway publishes posts.
type Gateway interface {
	Publish(ctx context.Context, req Request) (Result, error)
}

// RefusedError reports that the publishing service answered but declined
// the publication, for example because a platform rejected the content.
type RefusedError struct {
	Result Result
}

func (e *RefusedError) Error() string {
	if e.Result.Error == "" {
		return "publisher reported failure"
	}
	return e.Result.Error
}

// StatusError is a non-2xx response from the publishing service.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("publisher returned %s: %s", e.Status, e.Body)
}

// IsServiceFailure reports whether err means the publishing service itself
// is unavailable: a transport error, a 5xx response or an unreadable reply.
// Refusals of a single publication are not service failures.
func IsServiceFailure(err error) bool {
	if err == nil {
		return false
	}
	var refused *RefusedError
	if errors.As(err, &refused) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= 500
	}
	return true
}
