package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

// hasField reports whether errs contains an error for field.
func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string // empty means valid
	}{
		{"postgres url", func(c *Config) { c.Database.URL = "postgres://u:p@localhost/postflow" }, ""},
		{"empty database url", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"unsupported driver", func(c *Config) { c.Database.URL = "mysql://u:p@localhost/postflow" }, "database.url"},
		{"negative max conns", func(c *Config) { c.Database.MaxOpenConns = -1 }, "database.max_open_conns"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, ""},
		{"malformed known role", func(c *Config) { c.Roles.Known = []string{"member", "1admin"} }, "roles.known"},
		{"no known roles", func(c *Config) { c.Roles.Known = nil }, "roles.known"},
		{"prefixed roles", func(c *Config) { c.Roles.Publishers = []string{"org:Admin"} }, ""},
		{"unknown publisher role", func(c *Config) { c.Roles.Publishers = []string{"editor"} }, "roles.publishers"},
		{"no publisher roles", func(c *Config) { c.Roles.Publishers = nil }, "roles.publishers"},
		{"unknown fallback role", func(c *Config) { c.Roles.Fallback = []string{"member", "owner"} }, "roles.fallback"},
		{"empty fallback", func(c *Config) { c.Roles.Fallback = []string{} }, "roles.fallback"},
		{"zero assignees", func(c *Config) { c.Tasks.AssigneesPerTask = 0 }, "tasks.assignees_per_task"},
		{"bad publisher mode", func(c *Config) { c.Publisher.Mode = "smtp" }, "publisher.mode"},
		{"http without endpoint", func(c *Config) { c.Publisher.Mode = PublisherModeHTTP }, "publisher.endpoint"},
		{"http with relative endpoint", func(c *Config) {
			c.Publisher.Mode = PublisherModeHTTP
			c.Publisher.Endpoint = "/publish"
		}, "publisher.endpoint"},
		{"http with endpoint", func(c *Config) {
			c.Publisher.Mode = PublisherModeHTTP
			c.Publisher.Endpoint = "https://publisher.internal/v1/publish"
		}, ""},
		{"zero timeout", func(c *Config) { c.Publisher.Timeout = 0 }, "publisher.timeout"},
		{"zero breaker failures", func(c *Config) { c.Publisher.BreakerFailures = 0 }, "publisher.breaker_failures"},
		{"short breaker timeout", func(c *Config) { c.Publisher.BreakerTimeout = time.Millisecond }, "publisher.breaker_timeout"},
		{"audit without file", func(c *Config) { c.Audit.File = "" }, "audit.file"},
		{"audit disabled without file", func(c *Config) {
			c.Audit.Enabled = false
			c.Audit.File = ""
		}, ""},
		{"short worker interval", func(c *Config) { c.Worker.Interval = 10 * time.Millisecond }, "worker.interval"},
		{"zero batch", func(c *Config) { c.Worker.BatchSize = 0 }, "worker.batch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.field == "" {
				if len(errs) != 0 {
					t.Errorf("expected valid config, got %v", errs)
				}
				return
			}
			if !hasField(errs, tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}
