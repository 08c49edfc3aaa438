package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
)

// MySQLRunRepository persists backfill runs in MySQL. Run IDs are stored as BINARY(16).
type MySQLRunRepository struct {
	db *sql.DB
}

// Create inserts a new run.
func (m *MySQLRunRepository) Create(ctx context.Context, run *backfillDomain.Run) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO fieldcrypt_runs (id, mode, table_name, id_column, column_name, dry_run,
			  scanned, encrypted, skipped, legacy, failed, error, started_at, finished_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := run.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal run id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLRunRepository) Update(ctx context.Context, run *backfillDomain.Run) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE fieldcrypt_runs
			  SET scanned = ?, encrypted = ?, skipped = ?, legacy = ?, failed = ?,
			  error = ?, finished_at = ?
			  WHERE id = ?`

	id, err := run.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal run id")
	}

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
		id,
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
func (m *MySQLRunRepository) List(ctx context.Context, limit int) ([]*backfillDomain.Run, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, mode, table_name, id_column, column_name, dry_run, scanned, encrypted,
			  skipped, legacy, failed, error, started_at, finished_at
			  FROM fieldcrypt_runs
			  ORDER BY started_at DESC, id DESC
			  LIMIT ?`

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
			id   []byte
			mode string
		)
		err := rows.Scan(
			&id,
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
		if run.ID, err = uuid.FromBytes(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal run id")
		}
		run.Mode = backfillDomain.Mode(mode)
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate backfill runs")
	}

	return runs, nil
}

// NewMySQLRunRepository creates a new MySQL run repository.
func NewMySQLRunRepository(db *sql.DB) *MySQLRunRepository {
	return &MySQLRunRepository{db: db}
}
