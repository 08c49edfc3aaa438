package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	backfillDomain "github.com/allisson/fieldcrypt/internal/backfill/domain"
	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
)

// MySQLRowRepository reads and rewrites target rows in MySQL.
type MySQLRowRepository struct {
	db *sql.DB
}

// ListBatch returns up to limit rows with an ID greater than afterID, in ID order.
// An empty afterID starts from the beginning of the table.
func (m *MySQLRowRepository) ListBatch(
	ctx context.Context,
	target backfillDomain.Target,
	afterID string,
	limit int,
) ([]backfillDomain.Row, error) {
	querier := database.GetTx(ctx, m.db)

	id := quoteMySQLIdentifier(target.IDColumn)
	column := quoteMySQLIdentifier(target.Column)
	table := quoteMySQLIdentifier(target.Table)

	var (
		rows *sql.Rows
		err  error
	)
	if afterID == "" {
		query := fmt.Sprintf(`SELECT %s, %s FROM %s ORDER BY %s LIMIT ?`, id, column, table, id)
		rows, err = querier.QueryContext(ctx, query, limit)
	} else {
		query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s > ? ORDER BY %s LIMIT ?`, id, column, table, id, id)
		rows, err = querier.QueryContext(ctx, query, afterID, limit)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to list rows of %s", target)
	}

	return scanRows(rows, target)
}

// UpdateValue replaces the column value of row id, provided it still holds oldValue.
// It reports false when the row changed or disappeared since it was read.
func (m *MySQLRowRepository) UpdateValue(
	ctx context.Context,
	target backfillDomain.Target,
	id, oldValue, newValue string,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := fmt.Sprintf(
		"UPDATE %s SET %s = ? WHERE %s = ? AND %s = ?",
		quoteMySQLIdentifier(target.Table),
		quoteMySQLIdentifier(target.Column),
		quoteMySQLIdentifier(target.IDColumn),
		quoteMySQLIdentifier(target.Column),
	)

	result, err := querier.ExecContext(ctx, query, newValue, id, oldValue)
	if err != nil {
		return false, apperrors.Wrapf(err, "failed to update row of %s", target)
	}
	return rowsAffected(result, target)
}

// NewMySQLRowRepository creates a new MySQL row repository.
func NewMySQLRowRepository(db *sql.DB) *MySQLRowRepository {
	return &MySQLRowRepository{db: db}
}

// quoteMySQLIdentifier wraps name in backticks, doubling embedded backticks.
func quoteMySQLIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
