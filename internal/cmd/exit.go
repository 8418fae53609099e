package cmd

import (
	"github.com/Iron-Ham/postflow/internal/config"
	"github.com/Iron-Ham/postflow/internal/errors"
)

// Process exit codes.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitValidation      = 2
	ExitNotFound        = 3
	ExitForbidden       = 4
	ExitInvalidState    = 5
	ExitExternalFailure = 6
	ExitConflict        = 7
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErrs config.ValidationErrors
	if errors.As(err, &cfgErrs) {
		return ExitValidation
	}
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return ExitValidation
	case errors.KindNotFound:
		return ExitNotFound
	case errors.KindForbidden:
		return ExitForbidden
	case errors.KindInvalidState:
		return ExitInvalidState
	case errors.KindExternalFailure:
		return ExitExternalFailure
	case errors.KindConflict:
		return ExitConflict
	default:
		return ExitFailure
	}
}
