// Package usecase implements bulk encryption and audit of existing rows.
//
// Backfill complements the per-record encrypt-on-save path: rows written before field
// encryption was enabled, or by code paths that bypass it, still hold plaintext until
// a backfill rewrites them. Audits verify that every envelope decrypts under the
// configured key without swallowing failures.
package usecase

import (
	"context"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
)

// RowRepository reads and rewrites the values of a target column.
type RowRepository interface {
	ListBatch(ctx context.Context, target backfillDomain.Target, afterID string, limit int) ([]backfillDomain.Row, error)
	UpdateValue(ctx context.Context, target backfillDomain.Target, id, oldValue, newValue string) (bool, error)
}

// RunRepository persists backfill runs.
type RunRepository interface {
	Create(ctx context.Context, run *backfillDomain.Run) error
	Update(ctx context.Context, run *backfillDomain.Run) error
	List(ctx context.Context, limit int) ([]*backfillDomain.Run, error)
}

// BackfillUseCase defines the backfill and audit operations.
type BackfillUseCase interface {
	// Encrypt encrypts every plaintext value of target. With dryRun set nothing is
	// written, but the run still reports how many rows would change.
	Encrypt(ctx context.Context, target backfillDomain.Target, dryRun bool) (*backfillDomain.Run, error)
	// Audit strictly decrypts every envelope of target and counts failures.
	Audit(ctx context.Context, target backfillDomain.Target) (*backfillDomain.Run, error)
	// EncryptAll runs Encrypt over targets concurrently.
	EncryptAll(ctx context.Context, targets []backfillDomain.Target, dryRun bool) ([]*backfillDomain.Run, error)
	// AuditAll runs Audit over targets concurrently.
	AuditAll(ctx context.Context, targets []backfillDomain.Target) ([]*backfillDomain.Run, error)
	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*backfillDomain.Run, error)
}
