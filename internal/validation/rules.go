// Package validation provides custom validation rules for configuration and backfill targets.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
)

var (
	// sqlIdentifierRegex accepts unquoted identifiers portable across PostgreSQL and MySQL.
	sqlIdentifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

	// kmsSchemes lists the URI schemes with a registered gocloud keeper driver.
	kmsSchemes = []string{"base64key", "awskms", "gcpkms", "azurekeyvault", "hashivault"}
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// SQLIdentifier validates a table or column name that will be interpolated into SQL.
// Quoting still happens in the repositories; this rule keeps names boring.
var SQLIdentifier = validation.NewStringRuleWithError(
	func(s string) bool {
		return sqlIdentifierRegex.MatchString(s)
	},
	validation.NewError("validation_sql_identifier", "must be a valid SQL identifier"),
)

// KMSKeyURI validates that a key URI uses a supported keeper scheme.
var KMSKeyURI = validation.NewStringRuleWithError(
	func(s string) bool {
		scheme, _, found := strings.Cut(s, "://")
		if !found {
			return false
		}
		for _, known := range kmsSchemes {
			if scheme == known {
				return true
			}
		}
		return false
	},
	validation.NewError("validation_kms_key_uri", "must be a supported KMS key URI"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
