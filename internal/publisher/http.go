package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Iron-Ham/postflow/internal/logging"
	"github.com/sony/gobreaker"
)

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// HTTPConfig configures an HTTPGateway.
type HTTPConfig struct {
	Endpoint        string
	APIToken        string
	Timeout         time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// HTTPGateway posts publication requests as JSON to a publishing service.
// Consecutive service failures open a circuit breaker so a dead service
// fails fast instead of holding publish transactions open for the full
// timeout. Refused publications do not trip it.
type HTTPGateway struct {
	endpoint string
	token    string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *logging.Logger
}

// Compile-time interface check.
var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway creates an HTTPGateway. A nil client uses a client with cfg.Timeout.
func NewHTTPGateway(cfg HTTPConfig, client *http.Client, logger *logging.Logger) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	failures := uint32(cfg.BreakerFailures)
	if failures == 0 {
		failures = 5
	}

	g := &HTTPGateway{
		endpoint: cfg.Endpoint,
		token:    cfg.APIToken,
		client:   client,
		logger:   logger,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "publisher",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return !IsServiceFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("publisher circuit breaker changed state",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return g
}

// State returns the circuit breaker state.
func (g *HTTPGateway) State() gobreaker.State {
	return g.breaker.State()
}

// Publish implements Gateway.
func (g *HTTPGateway) Publish(ctx context.Context, req Request) (Result, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.do(ctx, req)
	})
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

func (g *HTTPGateway) do(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode publish request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build publish request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if g.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.token)
	}

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("call publisher: %w", err)
	}
	defer resp.Body.Close()

	g.logger.Debug("publisher responded",
		"post_id", req.PostID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Result{}, &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(bytes.TrimSpace(snippet))}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decode publish response: %w", err)
	}
	if !result.Success {
		return result, &RefusedError{Result: result}
	}
	return result, nil
}
