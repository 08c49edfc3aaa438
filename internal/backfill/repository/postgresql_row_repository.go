// Package repository implements row access for backfill targets and persistence of
// backfill runs for PostgreSQL and MySQL.
//
// Target tables and columns are identifiers, not values, so they are interpolated into
// SQL after validation and quoting. Everything else goes through placeholders.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
)

// PostgreSQLRowRepository reads and rewrites target rows in PostgreSQL.
type PostgreSQLRowRepository struct {
	db *sql.DB
}

// ListBatch returns up to limit rows with an ID greater than afterID, in ID order.
// An empty afterID starts from the beginning of the table.
func (p *PostgreSQLRowRepository) ListBatch(
	ctx context.Context,
	target backfillDomain.Target,
	afterID string,
	limit int,
) ([]backfillDomain.Row, error) {
	querier := database.GetTx(ctx, p.db)

	id := pq.QuoteIdentifier(target.IDColumn)
	column := pq.QuoteIdentifier(target.Column)
	table := pq.QuoteIdentifier(target.Table)

	var (
		rows *sql.Rows
		err  error
	)
	if afterID == "" {
		query := fmt.Sprintf(`SELECT %s, %s FROM %s ORDER BY %s LIMIT $1`, id, column, table, id)
		rows, err = querier.QueryContext(ctx, query, limit)
	} else {
		query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s > $1 ORDER BY %s LIMIT $2`, id, column, table, id, id)
		rows, err = querier.QueryContext(ctx, query, afterID, limit)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to list rows of %s", target)
	}

	return scanRows(rows, target)
}

// UpdateValue replaces the column value of row id, provided it still holds oldValue.
// It reports false when the row changed or disappeared since it was read.
func (p *PostgreSQLRowRepository) UpdateValue(
	ctx context.Context,
	target backfillDomain.Target,
	id, oldValue, newValue string,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := fmt.Sprintf(
		`UPDATE %s SET %s = $1 WHERE %s = $2 AND %s = $3`,
		pq.QuoteIdentifier(target.Table),
		pq.QuoteIdentifier(target.Column),
		pq.QuoteIdentifier(target.IDColumn),
		pq.QuoteIdentifier(target.Column),
	)

	result, err := querier.ExecContext(ctx, query, newValue, id, oldValue)
	if err != nil {
		return false, apperrors.Wrapf(err, "failed to update row of %s", target)
	}
	return rowsAffected(result, target)
}

// NewPostgreSQLRowRepository creates a new PostgreSQL row repository.
func NewPostgreSQLRowRepository(db *sql.DB) *PostgreSQLRowRepository {
	return &PostgreSQLRowRepository{db: db}
}

func scanRows(rows *sql.Rows, target backfillDomain.Target) ([]backfillDomain.Row, error) {
	defer func() {
		_ = rows.Close()
	}()

	var batch []backfillDomain.Row
	for rows.Next() {
		var (
			row   backfillDomain.Row
			value sql.NullString
		)
		if err := rows.Scan(&row.ID, &value); err != nil {
			return nil, apperrors.Wrapf(err, "failed to scan row of %s", target)
		}
		row.Value = value.String
		row.Null = !value.Valid
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(err, "failed to iterate rows of %s", target)
	}
	return batch, nil
}

func rowsAffected(result sql.Result, target backfillDomain.Target) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrapf(err, "failed to read affected rows of %s", target)
	}
	return n == 1, nil
}
