package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// Backfill error definitions.
var (
	// ErrInvalidTargetFormat indicates a target that is not written as "table.column".
	ErrInvalidTargetFormat = errors.Wrap(errors.ErrInvalidInput, "target must be in table.column form")

	// ErrNoTargets indicates a multi-target run was requested with an empty target list.
	ErrNoTargets = errors.Wrap(errors.ErrInvalidInput, "no backfill targets configured")

	// ErrInvalidInterval indicates a worker interval that is zero or negative.
	ErrInvalidInterval = errors.Wrap(errors.ErrInvalidInput, "worker interval must be positive")

	// ErrRunNotFound indicates the requested run does not exist.
	ErrRunNotFound = errors.Wrap(errors.ErrNotFound, "backfill run not found")
)
