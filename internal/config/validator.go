package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/xo/dburl"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "tasks.assignees_per_task")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateDatabase()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateRoles()...)
	errors = append(errors, c.validateTasks()...)
	errors = append(errors, c.validatePublisher()...)
	errors = append(errors, c.validateAudit()...)
	errors = append(errors, c.validateWorker()...)

	return errors
}

// validateDatabase validates the DatabaseConfig
func (c *Config) validateDatabase() []ValidationError {
	var errors []ValidationError

	if c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Value:   c.Database.URL,
			Message: "is required",
		})
	} else if u, err := dburl.Parse(c.Database.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Value:   c.Database.URL,
			Message: fmt.Sprintf("cannot be parsed: %v", err),
		})
	} else if u.Driver != "sqlite3" && u.Driver != "postgres" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Value:   c.Database.URL,
			Message: fmt.Sprintf("unsupported driver %q (supported: sqlite3, postgres)", u.Driver),
		})
	}

	if c.Database.MaxOpenConns < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_open_conns",
			Value:   c.Database.MaxOpenConns,
			Message: "must be non-negative (0 = unlimited)",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if strings.ContainsRune(c.Logging.File, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.file",
			Value:   c.Logging.File,
			Message: "path contains invalid null character",
		})
	}

	return errors
}

// validateRoles validates the RolesConfig. Publisher and fallback roles must
// be members of the known set.
func (c *Config) validateRoles() []ValidationError {
	var errors []ValidationError

	known, err := role.ParseSet(c.Roles.Known)
	if err != nil {
		errors = append(errors, ValidationError{
			Field:   "roles.known",
			Value:   c.Roles.Known,
			Message: err.Error(),
		})
		return errors
	}
	if len(known) == 0 {
		errors = append(errors, ValidationError{
			Field:   "roles.known",
			Value:   c.Roles.Known,
			Message: "must name at least one role",
		})
	}

	check := func(field string, names []string) {
		for _, name := range names {
			r, err := role.Parse(name)
			if err != nil {
				errors = append(errors, ValidationError{Field: field, Value: name, Message: err.Error()})
				continue
			}
			if !known.Contains(r) {
				errors = append(errors, ValidationError{
					Field:   field,
					Value:   name,
					Message: fmt.Sprintf("is not a known role (known: %s)", strings.Join(known.Strings(), ", ")),
				})
			}
		}
	}

	if len(c.Roles.Publishers) == 0 {
		errors = append(errors, ValidationError{
			Field:   "roles.publishers",
			Value:   c.Roles.Publishers,
			Message: "must name at least one role",
		})
	}
	check("roles.publishers", c.Roles.Publishers)

	if len(c.Roles.Fallback) == 0 {
		errors = append(errors, ValidationError{
			Field:   "roles.fallback",
			Value:   c.Roles.Fallback,
			Message: "must name at least one step role",
		})
	}
	check("roles.fallback", c.Roles.Fallback)

	return errors
}

// validateTasks validates the TasksConfig
func (c *Config) validateTasks() []ValidationError {
	var errors []ValidationError

	if c.Tasks.AssigneesPerTask < 1 {
		errors = append(errors, ValidationError{
			Field:   "tasks.assignees_per_task",
			Value:   c.Tasks.AssigneesPerTask,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validatePublisher validates the PublisherConfig
func (c *Config) validatePublisher() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidPublisherModes(), c.Publisher.Mode) {
		errors = append(errors, ValidationError{
			Field:   "publisher.mode",
			Value:   c.Publisher.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidPublisherModes(), ", ")),
		})
	}

	if c.Publisher.Mode == PublisherModeHTTP {
		if c.Publisher.Endpoint == "" {
			errors = append(errors, ValidationError{
				Field:   "publisher.endpoint",
				Value:   c.Publisher.Endpoint,
				Message: "is required in http mode",
			})
		} else if u, err := url.Parse(c.Publisher.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "publisher.endpoint",
				Value:   c.Publisher.Endpoint,
				Message: "must be an absolute http(s) URL",
			})
		}
	}

	if c.Publisher.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "publisher.timeout",
			Value:   c.Publisher.Timeout,
			Message: "must be positive",
		})
	}

	if c.Publisher.BreakerFailures < 1 {
		errors = append(errors, ValidationError{
			Field:   "publisher.breaker_failures",
			Value:   c.Publisher.BreakerFailures,
			Message: "must be at least 1",
		})
	}

	if c.Publisher.BreakerTimeout < time.Second {
		errors = append(errors, ValidationError{
			Field:   "publisher.breaker_timeout",
			Value:   c.Publisher.BreakerTimeout,
			Message: "must be at least 1s",
		})
	}

	return errors
}

// validateAudit validates the AuditConfig
func (c *Config) validateAudit() []ValidationError {
	var errors []ValidationError

	if c.Audit.Enabled && c.Audit.File == "" {
		errors = append(errors, ValidationError{
			Field:   "audit.file",
			Value:   c.Audit.File,
			Message: "is required when audit is enabled",
		})
	}

	return errors
}

// validateWorker validates the WorkerConfig
func (c *Config) validateWorker() []ValidationError {
	var errors []ValidationError

	if c.Worker.Interval < time.Second {
		errors = append(errors, ValidationError{
			Field:   "worker.interval",
			Value:   c.Worker.Interval,
			Message: "must be at least 1s",
		})
	}

	if c.Worker.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "worker.batch_size",
			Value:   c.Worker.BatchSize,
			Message: "must be at least 1",
		})
	}

	return errors
}
