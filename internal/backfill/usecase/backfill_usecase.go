package usecase

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	"github.com/allisson/fieldcrypt/internal/database"
)

// Config holds backfill tuning.
type Config struct {
	// BatchSize is the number of rows read and written per transaction.
	BatchSize int
	// RowsPerSec throttles processing; zero disables throttling.
	RowsPerSec float64
	// Concurrency is the number of targets processed at the same time by the *All methods.
	Concurrency int
}

type backfillUseCase struct {
	config    Config
	txManager database.TxManager
	rowRepo   RowRepository
	runRepo   RunRepository
	cipher    cryptoService.FieldCipher
	logger    *slog.Logger
}

// NewBackfillUseCase creates a BackfillUseCase.
func NewBackfillUseCase(
	config Config,
	txManager database.TxManager,
	rowRepo RowRepository,
	runRepo RunRepository,
	cipher cryptoService.FieldCipher,
	logger *slog.Logger,
) BackfillUseCase {
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &backfillUseCase{
		config:    config,
		txManager: txManager,
		rowRepo:   rowRepo,
		runRepo:   runRepo,
		cipher:    cipher,
		logger:    logger,
	}
}

// Encrypt pages through target in ID order and encrypts plaintext values.
//
// Reads happen outside transactions; the writes of one batch share a transaction.
// A row is only rewritten if it still holds the value that was read, so concurrent
// application writes are never clobbered. The run is persisted before the first batch
// and updated when the run ends, successfully or not.
func (b *backfillUseCase) Encrypt(
	ctx context.Context,
	target backfillDomain.Target,
	dryRun bool,
) (*backfillDomain.Run, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	run := backfillDomain.NewRun(backfillDomain.ModeEncrypt, target, dryRun)
	return b.execute(ctx, run, func(ctx context.Context, rows []backfillDomain.Row) (backfillDomain.Counters, error) {
		if dryRun {
			return b.encryptBatch(ctx, target, rows, true)
		}

		var counters backfillDomain.Counters
		err := b.txManager.WithTx(ctx, func(ctx context.Context) error {
			var err error
			counters, err = b.encryptBatch(ctx, target, rows, false)
			return err
		})
		return counters, err
	})
}

// Audit pages through target and strictly decrypts every envelope-shaped value.
// Decryption failures are counted; configuration errors abort the run.
func (b *backfillUseCase) Audit(ctx context.Context, target backfillDomain.Target) (*backfillDomain.Run, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	run := backfillDomain.NewRun(backfillDomain.ModeAudit, target, false)
	return b.execute(ctx, run, func(ctx context.Context, rows []backfillDomain.Row) (backfillDomain.Counters, error) {
		var counters backfillDomain.Counters
		for _, row := range rows {
			counters.Scanned++

			switch {
			case row.Null || row.Value == "":
				counters.Skipped++
			case !b.cipher.LooksLikeEnvelope(row.Value):
				counters.Legacy++
			default:
				_, err := b.cipher.Decrypt(row.Value)
				if err == nil {
					counters.Encrypted++
					continue
				}
				if !errors.Is(err, cryptoDomain.ErrDecryptionFailed) {
					return counters, err
				}
				counters.Failed++
				b.logger.WarnContext(ctx, "undecryptable value found",
					slog.String("target", target.String()),
					slog.String("row_id", row.ID),
				)
			}
		}
		return counters, nil
	})
}

// EncryptAll encrypts every target, at most Concurrency at a time. The first failing
// target cancels the others; runs are returned in target order.
func (b *backfillUseCase) EncryptAll(
	ctx context.Context,
	targets []backfillDomain.Target,
	dryRun bool,
) ([]*backfillDomain.Run, error) {
	return b.forEach(ctx, targets, func(ctx context.Context, target backfillDomain.Target) (*backfillDomain.Run, error) {
		return b.Encrypt(ctx, target, dryRun)
	})
}

// AuditAll audits every target, at most Concurrency at a time.
func (b *backfillUseCase) AuditAll(
	ctx context.Context,
	targets []backfillDomain.Target,
) ([]*backfillDomain.Run, error) {
	return b.forEach(ctx, targets, b.Audit)
}

// ListRuns returns the most recent runs.
func (b *backfillUseCase) ListRuns(ctx context.Context, limit int) ([]*backfillDomain.Run, error) {
	return b.runRepo.List(ctx, limit)
}

type batchFunc func(ctx context.Context, rows []backfillDomain.Row) (backfillDomain.Counters, error)

func (b *backfillUseCase) execute(
	ctx context.Context,
	run *backfillDomain.Run,
	process batchFunc,
) (*backfillDomain.Run, error) {
	if err := b.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	target := run.Target()
	logger := b.logger.With(
		slog.String("run_id", run.ID.String()),
		slog.String("mode", string(run.Mode)),
		slog.String("target", target.String()),
		slog.Bool("dry_run", run.DryRun),
	)
	logger.InfoContext(ctx, "backfill run started")

	runErr := b.walk(ctx, run, target, process, logger)
	run.Finish(runErr)

	// The run record must be stored even when ctx was cancelled.
	if err := b.runRepo.Update(context.WithoutCancel(ctx), run); err != nil {
		runErr = errors.Join(runErr, err)
	}

	attrs := []any{
		slog.Int64("scanned", run.Scanned),
		slog.Int64("encrypted", run.Encrypted),
		slog.Int64("skipped", run.Skipped),
		slog.Int64("legacy", run.Legacy),
		slog.Int64("failed", run.Failed),
	}
	if runErr != nil {
		logger.ErrorContext(ctx, "backfill run failed", append(attrs, slog.Any("error", runErr))...)
		return run, runErr
	}
	logger.InfoContext(ctx, "backfill run finished", attrs...)
	return run, nil
}

func (b *backfillUseCase) walk(
	ctx context.Context,
	run *backfillDomain.Run,
	target backfillDomain.Target,
	process batchFunc,
	logger *slog.Logger,
) error {
	var limiter *rate.Limiter
	if b.config.RowsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(b.config.RowsPerSec), b.config.BatchSize)
	}

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := b.rowRepo.ListBatch(ctx, target, afterID, b.config.BatchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		if limiter != nil {
			if err := limiter.WaitN(ctx, len(rows)); err != nil {
				return err
			}
		}

		counters, err := process(ctx, rows)
		if err != nil {
			return err
		}
		run.Add(counters)
		logger.DebugContext(ctx, "backfill batch processed",
			slog.Int("rows", len(rows)),
			slog.String("last_id", rows[len(rows)-1].ID),
		)

		if len(rows) < b.config.BatchSize {
			return nil
		}
		afterID = rows[len(rows)-1].ID
	}
}

func (b *backfillUseCase) encryptBatch(
	ctx context.Context,
	target backfillDomain.Target,
	rows []backfillDomain.Row,
	dryRun bool,
) (backfillDomain.Counters, error) {
	var counters backfillDomain.Counters
	for _, row := range rows {
		counters.Scanned++

		if row.Null || row.Value == "" || b.cipher.LooksLikeEnvelope(row.Value) {
			counters.Skipped++
			continue
		}

		sealed, err := b.cipher.Encrypt(row.Value)
		if err != nil {
			return counters, err
		}
		if dryRun {
			counters.Encrypted++
			continue
		}

		updated, err := b.rowRepo.UpdateValue(ctx, target, row.ID, row.Value, sealed)
		if err != nil {
			return counters, err
		}
		if updated {
			counters.Encrypted++
		} else {
			counters.Skipped++
		}
	}
	return counters, nil
}

func (b *backfillUseCase) forEach(
	ctx context.Context,
	targets []backfillDomain.Target,
	fn func(ctx context.Context, target backfillDomain.Target) (*backfillDomain.Run, error),
) ([]*backfillDomain.Run, error) {
	if len(targets) == 0 {
		return nil, backfillDomain.ErrNoTargets
	}

	runs := make([]*backfillDomain.Run, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Concurrency)

	for i, target := range targets {
		g.Go(func() error {
			run, err := fn(ctx, target)
			runs[i] = run
			return err
		})
	}

	err := g.Wait()
	return runs, err
}
