package repository

import (
	"context"
	"database/sql"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
)

// PostgreSQLRunRepository persists backfill runs in PostgreSQL.
type PostgreSQLRunRepository struct {
	db *sql.DB
}

// Create inserts a new run.
func (p *PostgreSQLRunRepository) Create(ctx context.Context, run *backfillDomain.Run) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO fieldcrypt_runs (id, mode, table_name, id_column, column_name, dry_run,
			  scanned, encrypted, skipped, legacy, failed, error, started_at, finished_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := querier.ExecContext(
		ctx,
		query,
		run.ID,
		string(run.Mode),
		run.Table,
		run.IDColumn,
		run.Column,
		run.DryRun,
		run.Scanned,
		run.Encrypted,
		run.Skipped,
		run.Legacy,
		run.Failed,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create backfill run")
	}
	return nil
}

// Update stores the counters, error and finish time of a run.
func (p *PostgreSQLRunRepository) Update(ctx context.Context, run *backfillDomain.Run) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE fieldcrypt_runs
			  SET scanned = $1, encrypted = $2, skipped = $3, legacy = $4, failed = $5,
			  error = $6, finished_at = $7
			  WHERE id = $8`

	result, err := querier.ExecContext(
		ctx,
		query,
		run.Scanned,
		run.Encrypted,
		run.Skipped,
		run.Legacy,
		run.Failed,
		run.Error,
		run.FinishedAt,
		run.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update backfill run")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if n == 0 {
		return backfillDomain.ErrRunNotFound
	}
	return nil
}

// List returns the most recent runs, newest first.
func (p *PostgreSQLRunRepository) List(ctx context.Context, limit int) ([]*backfillDomain.Run, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, mode, table_name, id_column, column_name, dry_run, scanned, encrypted,
			  skipped, legacy, failed, error, started_at, finished_at
			  FROM fieldcrypt_runs
			  ORDER BY started_at DESC, id DESC
			  LIMIT $1`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list backfill runs")
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []*backfillDomain.Run
	for rows.Next() {
		var (
			run  backfillDomain.Run
			mode string
		)
		err := rows.Scan(
			&run.ID,
			&mode,
			&run.Table,
			&run.IDColumn,
			&run.Column,
			&run.DryRun,
			&run.Scanned,
			&run.Encrypted,
			&run.Skipped,
			&run.Legacy,
			&run.Failed,
			&run.Error,
			&run.StartedAt,
			&run.FinishedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan backfill run")
		}
		run.Mode = backfillDomain.Mode(mode)
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate backfill runs")
	}

	return runs, nil
}

// NewPostgreSQLRunRepository creates a new PostgreSQL run repository.
func NewPostgreSQLRunRepository(db *sql.DB) *PostgreSQLRunRepository {
	return &PostgreSQLRunRepository{db: db}
}
