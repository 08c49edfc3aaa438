// Package domain defines backfill targets and the runs that migrate or audit them.
//
// A backfill walks one text column of one table in primary key order, encrypting
// legacy plaintext in place (encrypt mode) or verifying that every envelope still
// decrypts under the configured key (audit mode).
package domain

import (
	"strings"

	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/fieldcrypt/internal/validation"
)

// DefaultIDColumn is the primary key column used when none is configured.
const DefaultIDColumn = "id"

// Target identifies an encrypted column.
type Target struct {
	// Table is the table holding the column.
	Table string
	// IDColumn is a unique, orderable column used for keyset pagination.
	IDColumn string
	// Column is the text column holding PII values.
	Column string
}

// ParseTarget parses "table.column". An empty idColumn defaults to DefaultIDColumn.
func ParseTarget(value, idColumn string) (Target, error) {
	table, column, found := strings.Cut(strings.TrimSpace(value), ".")
	if !found {
		return Target{}, ErrInvalidTargetFormat
	}
	if idColumn == "" {
		idColumn = DefaultIDColumn
	}

	target := Target{Table: table, IDColumn: idColumn, Column: column}
	if err := target.Validate(); err != nil {
		return Target{}, err
	}
	return target, nil
}

// ParseTargets parses every entry of values with the same idColumn.
func ParseTargets(values []string, idColumn string) ([]Target, error) {
	targets := make([]Target, 0, len(values))
	for _, v := range values {
		target, err := ParseTarget(v, idColumn)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// Validate checks that every name is a plain SQL identifier and that the ID column
// differs from the encrypted column.
func (t Target) Validate() error {
	err := validation.ValidateStruct(&t,
		validation.Field(&t.Table, validation.Required, appValidation.SQLIdentifier),
		validation.Field(&t.IDColumn, validation.Required, appValidation.SQLIdentifier),
		validation.Field(&t.Column, validation.Required, appValidation.SQLIdentifier,
			validation.NotIn(t.IDColumn).Error("must differ from the id column")),
	)
	return appValidation.WrapValidationError(err)
}

// String returns the "table.column" form.
func (t Target) String() string {
	return t.Table + "." + t.Column
}
