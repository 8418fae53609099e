package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func newGateway(t *testing.T, handler http.HandlerFunc, failures int) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPGateway(HTTPConfig{
		Endpoint:        srv.URL,
		APIToken:        "secret",
		Timeout:         5 * time.Second,
		BreakerFailures: failures,
		BreakerTimeout:  time.Minute,
	}, nil, nil)
}

func TestHTTPGateway_Success(t *testing.T) {
	var got Request
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Result{
			Success:   true,
			PublishID: "pub-1",
			PlatformResults: []PlatformResult{
				{Platform: "x", Success: true, ExternalID: "123"},
			},
		})
	}, 5)

	res, err := g.Publish(context.Background(), Request{
		PostID:    "p1",
		UserID:    "u1",
		Content:   "hello",
		Platforms: []string{"x"},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if res.PublishID != "pub-1" {
		t.Errorf("PublishID = %q, want pub-1", res.PublishID)
	}
	if len(res.PlatformResults) != 1 || res.PlatformResults[0].ExternalID != "123" {
		t.Errorf("PlatformResults = %+v", res.PlatformResults)
	}
	if got.PostID != "p1" || got.Content != "hello" {
		t.Errorf("request = %+v", got)
	}
}

func TestHTTPGateway_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
			wantErr: "429",
		},
		{
			name: "reported failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(Result{Success: false, Error: "token expired"})
			},
			wantErr: "token expired",
		},
		{
			name: "reported failure without message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(Result{Success: false})
			},
			wantErr: "publisher reported failure",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{"))
			},
			wantErr: "decode publish response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGateway(t, tt.handler, 5)
			_, err := g.Publish(context.Background(), Request{PostID: "p1", Platforms: []string{"x"}})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestHTTPGateway_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, 2)

	for i := 0; i < 2; i++ {
		if _, err := g.Publish(context.Background(), Request{PostID: "p1"}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if g.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", g.State())
	}

	_, err := g.Publish(context.Background(), Request{PostID: "p1"})
	if err != gobreaker.ErrOpenState {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server saw %d calls, want 2 (open breaker must not call out)", n)
	}
}

func TestHTTPGateway_RefusalsKeepBreakerClosed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "reported failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(Result{Success: false, Error: "content rejected"})
			},
		},
		{
			name: "client error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad media", http.StatusUnprocessableEntity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}, 2)

			for i := 0; i < 4; i++ {
				_, err := g.Publish(context.Background(), Request{PostID: "p1"})
				if err == nil {
					t.Fatalf("call %d: expected error", i)
				}
				if IsServiceFailure(err) {
					t.Errorf("call %d: IsServiceFailure(%v) = true", i, err)
				}
			}
			if g.State() != gobreaker.StateClosed {
				t.Errorf("State() = %v, want closed", g.State())
			}
			if n := calls.Load(); n != 4 {
				t.Errorf("server saw %d calls, want 4", n)
			}
		})
	}
}

func TestIsServiceFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", &RefusedError{Result: Result{Error: "no"}}, false},
		{"wrapped refusal", fmt.Errorf("publish: %w", &RefusedError{}), false},
		{"client error", &StatusError{Code: 400, Status: "400 Bad Request"}, false},
		{"server error", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"transport", errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsServiceFailure(tt.err); got != tt.want {
				t.Errorf("IsServiceFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDryRun(t *testing.T) {
	d := NewDryRun(nil)
	res, err := d.Publish(context.Background(), Request{PostID: "p1", Platforms: []string{"x", "linkedin"}})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !res.Success || !strings.HasPrefix(res.PublishID, "dry-run-") {
		t.Errorf("result = %+v", res)
	}
	if len(res.PlatformResults) != 2 {
		t.Errorf("PlatformResults = %+v", res.PlatformResults)
	}
}
