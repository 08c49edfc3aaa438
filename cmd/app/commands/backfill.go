package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
	backfillUseCase "github.com/allisson/fieldcrypt/internal/backfill/usecase"
)

// ErrAuditFailed is returned when an audit finds values that do not decrypt.
var ErrAuditFailed = errors.New("audit found undecryptable values")

// RunBackfill encrypts every plaintext value of the given "table.column" targets.
func RunBackfill(
	ctx context.Context,
	useCase backfillUseCase.BackfillUseCase,
	logger *slog.Logger,
	writer io.Writer,
	targets []string,
	idColumn string,
	dryRun bool,
	format string,
) error {
	parsed, err := backfillDomain.ParseTargets(targets, idColumn)
	if err != nil {
		return err
	}

	logger.Info("starting backfill", slog.Int("targets", len(parsed)), slog.Bool("dry_run", dryRun))

	runs, err := useCase.EncryptAll(ctx, parsed, dryRun)
	if outErr := outputRuns(writer, completed(runs), format); outErr != nil {
		return outErr
	}
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	return nil
}

// RunAudit strictly decrypts every envelope of the given targets and returns
// ErrAuditFailed when any value does not decrypt.
func RunAudit(
	ctx context.Context,
	useCase backfillUseCase.BackfillUseCase,
	logger *slog.Logger,
	writer io.Writer,
	targets []string,
	idColumn string,
	format string,
) error {
	parsed, err := backfillDomain.ParseTargets(targets, idColumn)
	if err != nil {
		return err
	}

	logger.Info("starting audit", slog.Int("targets", len(parsed)))

	runs, err := useCase.AuditAll(ctx, parsed)
	runs = completed(runs)
	if outErr := outputRuns(writer, runs, format); outErr != nil {
		return outErr
	}
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	for _, run := range runs {
		if !run.Healthy() {
			return ErrAuditFailed
		}
	}
	return nil
}

// RunListRuns prints the most recent backfill and audit runs.
func RunListRuns(
	ctx context.Context,
	useCase backfillUseCase.BackfillUseCase,
	writer io.Writer,
	limit int,
	format string,
) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be a positive number, got: %d", limit)
	}

	runs, err := useCase.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return outputRuns(writer, runs, format)
}

// completed drops the nil entries left by targets that never started.
func completed(runs []*backfillDomain.Run) []*backfillDomain.Run {
	out := make([]*backfillDomain.Run, 0, len(runs))
	for _, run := range runs {
		if run != nil {
			out = append(out, run)
		}
	}
	return out
}

// runOutput is the JSON form of a run.
type runOutput struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	Target     string     `json:"target"`
	DryRun     bool       `json:"dry_run"`
	Scanned    int64      `json:"scanned"`
	Encrypted  int64      `json:"encrypted"`
	Skipped    int64      `json:"skipped"`
	Legacy     int64      `json:"legacy"`
	Failed     int64      `json:"failed"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func outputRuns(writer io.Writer, runs []*backfillDomain.Run, format string) error {
	if format == "json" {
		out := make([]runOutput, 0, len(runs))
		for _, run := range runs {
			out = append(out, runOutput{
				ID:         run.ID.String(),
				Mode:       string(run.Mode),
				Target:     run.Target().String(),
				DryRun:     run.DryRun,
				Scanned:    run.Scanned,
				Encrypted:  run.Encrypted,
				Skipped:    run.Skipped,
				Legacy:     run.Legacy,
				Failed:     run.Failed,
				Error:      run.Error,
				StartedAt:  run.StartedAt,
				FinishedAt: run.FinishedAt,
			})
		}
		return writeJSON(writer, out)
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "MODE\tTARGET\tDRY RUN\tSCANNED\tENCRYPTED\tSKIPPED\tLEGACY\tFAILED\tERROR")
	for _, run := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\t%d\t%d\t%d\t%s\n",
			run.Mode,
			run.Target(),
			run.DryRun,
			run.Scanned,
			run.Encrypted,
			run.Skipped,
			run.Legacy,
			run.Failed,
			run.Error,
		)
	}
	return tw.Flush()
}
