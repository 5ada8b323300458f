package cmd

import (
	"context"
	"errors"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitInputError = 2
)

// ExitCode maps an Execute error to the process exit code. Rejected input
// documents exit with ExitInputError; an interrupted run exits cleanly.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ExitOK
	case errors.Is(err, schemas.ErrInvalidDocument), errors.Is(err, schemas.ErrDocumentTooLarge):
		return ExitInputError
	default:
		return ExitFailure
	}
}
