package usecase

import (
	"context"
	"time"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
	"github.com/allisson/fieldcrypt/internal/metrics"
)

const metricsDomain = "backfill"

// backfillUseCaseWithMetrics decorates BackfillUseCase with metrics instrumentation.
type backfillUseCaseWithMetrics struct {
	next    BackfillUseCase
	metrics metrics.BusinessMetrics
}

// NewBackfillUseCaseWithMetrics wraps a BackfillUseCase with metrics recording.
func NewBackfillUseCaseWithMetrics(useCase BackfillUseCase, m metrics.BusinessMetrics) BackfillUseCase {
	return &backfillUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Encrypt records metrics for single-target encryption runs.
func (b *backfillUseCaseWithMetrics) Encrypt(
	ctx context.Context,
	target backfillDomain.Target,
	dryRun bool,
) (*backfillDomain.Run, error) {
	start := time.Now()
	run, err := b.next.Encrypt(ctx, target, dryRun)
	b.record(ctx, "encrypt", start, err, run)
	return run, err
}

// Audit records metrics for single-target audit runs.
func (b *backfillUseCaseWithMetrics) Audit(
	ctx context.Context,
	target backfillDomain.Target,
) (*backfillDomain.Run, error) {
	start := time.Now()
	run, err := b.next.Audit(ctx, target)
	b.record(ctx, "audit", start, err, run)
	return run, err
}

// EncryptAll records metrics for multi-target encryption runs.
func (b *backfillUseCaseWithMetrics) EncryptAll(
	ctx context.Context,
	targets []backfillDomain.Target,
	dryRun bool,
) ([]*backfillDomain.Run, error) {
	start := time.Now()
	runs, err := b.next.EncryptAll(ctx, targets, dryRun)
	b.record(ctx, "encrypt_all", start, err, runs...)
	return runs, err
}

// AuditAll records metrics for multi-target audit runs.
func (b *backfillUseCaseWithMetrics) AuditAll(
	ctx context.Context,
	targets []backfillDomain.Target,
) ([]*backfillDomain.Run, error) {
	start := time.Now()
	runs, err := b.next.AuditAll(ctx, targets)
	b.record(ctx, "audit_all", start, err, runs...)
	return runs, err
}

// ListRuns records metrics for run listing.
func (b *backfillUseCaseWithMetrics) ListRuns(ctx context.Context, limit int) ([]*backfillDomain.Run, error) {
	start := time.Now()
	runs, err := b.next.ListRuns(ctx, limit)
	b.record(ctx, "list_runs", start, err)
	return runs, err
}

func (b *backfillUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
	runs ...*backfillDomain.Run,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	b.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	b.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)

	for _, run := range runs {
		if run == nil {
			continue
		}
		mode := string(run.Mode)
		b.metrics.RecordRows(ctx, mode, "scanned", run.Scanned)
		b.metrics.RecordRows(ctx, mode, "encrypted", run.Encrypted)
		b.metrics.RecordRows(ctx, mode, "skipped", run.Skipped)
		b.metrics.RecordRows(ctx, mode, "legacy", run.Legacy)
		b.metrics.RecordRows(ctx, mode, "failed", run.Failed)
	}
}
