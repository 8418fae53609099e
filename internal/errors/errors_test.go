package errors

import (
	"errors"
	"fmt"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("post", "p1")

	if got := err.Error(); got != "post 'p1' not found" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("should match ErrNotFound")
	}
	if errors.Is(err, ErrInvalidState) {
		t.Error("should not match ErrInvalidState")
	}
	if err.Kind() != KindNotFound {
		t.Errorf("Kind() = %v", err.Kind())
	}

	cause := fmt.Errorf("sql: no rows")
	err = err.WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("should match its cause")
	}
}

func TestForbiddenError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ForbiddenError
		want string
	}{
		{
			name: "operation only",
			err:  NewForbiddenError("submit post", ""),
			want: "forbidden: submit post",
		},
		{
			name: "with actor, resource and reason",
			err: NewForbiddenError("approve step", "u1").
				WithResource("step", "s1").
				WithReason("requires role admin"),
			want: "forbidden [actor=u1, step=s1]: approve step: requires role admin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, ErrForbidden) {
				t.Error("should match ErrForbidden")
			}
		})
	}
}

func TestInvalidStateError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *InvalidStateError
		want string
	}{
		{
			name: "no expectation",
			err:  NewInvalidStateError("step", "s1", "APPROVED"),
			want: "step 's1' is APPROVED",
		},
		{
			name: "single expectation",
			err:  NewInvalidStateError("post", "p1", "DRAFT", "IN_REVIEW"),
			want: "post 'p1' is DRAFT, expected IN_REVIEW",
		},
		{
			name: "several expectations",
			err:  NewInvalidStateError("post", "p1", "PUBLISHED", "DRAFT", "REJECTED"),
			want: "post 'p1' is PUBLISHED, expected one of [DRAFT REJECTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("comment is required").WithField("comment").WithValue("")
	want := "validation error [field=comment, value=]: comment is required"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("should match ErrInvalidInput")
	}
}

func TestExternalFailureError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewExternalFailureError("publish", cause).WithResource("post", "p1")

	want := "external failure [post=p1]: publish: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("should match cause")
	}
	if !errors.Is(err, ErrExternalFailure) {
		t.Error("should match ErrExternalFailure")
	}
	if err.IsRetryable() {
		t.Error("external failures are not retried at this layer")
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("approve steps", errors.New("could not serialize access"))
	if !err.IsRetryable() {
		t.Error("conflicts should be retryable")
	}
	if !errors.Is(err, ErrConflict) {
		t.Error("should match ErrConflict")
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"not found", NewNotFoundError("task", "t1"), KindNotFound},
		{"wrapped forbidden", Wrap(NewForbiddenError("publish", "u1"), "publish post"), KindForbidden},
		{"invalid state", NewInvalidStateError("post", "p1", "DRAFT"), KindInvalidState},
		{"validation", NewValidationError("bad"), KindValidation},
		{"external", NewExternalFailureError("publish", nil), KindExternalFailure},
		{"conflict", Wrapf(NewConflictError("tx", nil), "post %s", "p1"), KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
	if IsRetryable(errors.New("x")) {
		t.Error("plain errors are not retryable")
	}
	if !IsRetryable(Wrap(NewConflictError("tx", nil), "ctx")) {
		t.Error("wrapped conflict should be retryable")
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(errors.New("x")) {
		t.Error("plain errors are internal")
	}
	if !IsUserFacing(NewValidationError("x")) {
		t.Error("validation errors are user facing")
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v", got)
	}
	if got := GetSeverity(errors.New("x")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v", got)
	}
	if got := GetSeverity(NewNotFoundError("post", "p")); got != SeverityWarning {
		t.Errorf("GetSeverity(not found) = %v", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	base := NewNotFoundError("post", "p1")
	wrapped := Wrapf(base, "load %s", "p1")
	var nf *NotFoundError
	if !As(wrapped, &nf) || nf.ResourceID != "p1" {
		t.Error("Wrapf should preserve the typed error")
	}
}
