package publisher

import (
	"context"

	"github.com/Iron-Ham/postflow/internal/logging"
	"github.com/google/uuid"
)

// DryRun accepts every request without contacting any platform. It is the
// default gateway so a fresh installation can run the whole workflow.
type DryRun struct {
	logger *logging.Logger
}

// NewDryRun creates a DryRun gateway.
func NewDryRun(logger *logging.Logger) *DryRun {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &DryRun{logger: logger}
}

// Publish implements Gateway.
func (d *DryRun) Publish(_ context.Context, req Request) (Result, error) {
	result := Result{
		Success:   true,
		PublishID: "dry-run-" + uuid.NewString(),
	}
	for _, p := range req.Platforms {
		result.PlatformResults = append(result.PlatformResults, PlatformResult{Platform: p, Success: true})
	}
	d.logger.Info("dry-run publish",
		"post_id", req.PostID,
		"platforms", req.Platforms,
		"publish_id", result.PublishID)
	return result, nil
}
