package usecase

import (
	"context"
	"log/slog"
	"time"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
)

// Worker periodically re-runs EncryptAll over a fixed set of targets, catching rows
// written by code paths that bypass the field cipher.
type Worker struct {
	useCase  BackfillUseCase
	targets  []backfillDomain.Target
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker. A non-positive interval returns ErrInvalidInterval.
func NewWorker(
	useCase BackfillUseCase,
	targets []backfillDomain.Target,
	interval time.Duration,
	logger *slog.Logger,
) (*Worker, error) {
	if interval <= 0 {
		return nil, backfillDomain.ErrInvalidInterval
	}
	return &Worker{
		useCase:  useCase,
		targets:  targets,
		interval: interval,
		logger:   logger,
	}, nil
}

// Start runs one pass immediately and then one per interval until ctx is cancelled.
// Failed passes are logged and retried on the next tick.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("starting backfill worker",
		slog.Duration("interval", w.interval),
		slog.Int("targets", len(w.targets)),
	)

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping backfill worker")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass and reports whether it succeeded.
func (w *Worker) RunOnce(ctx context.Context) bool {
	runs, err := w.useCase.EncryptAll(ctx, w.targets, false)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("backfill pass failed", slog.Any("error", err))
		}
		return false
	}

	var encrypted int64
	for _, run := range runs {
		encrypted += run.Encrypted
	}
	w.logger.Info("backfill pass finished", slog.Int64("encrypted", encrypted))
	return true
}
