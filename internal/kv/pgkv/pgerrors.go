package pgkv

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// errCodeUniqueViolation is the PostgreSQL error code for a unique
// constraint violation (Class 23 - Integrity Constraint Violation).
const errCodeUniqueViolation = "23505"

// isUniqueViolation checks if err is a PostgreSQL unique constraint
// violation. writeTx.Insert uses this to distinguish the ON CONFLICT
// path's own races (concurrent inserts under the serializable
// isolation level) from any other constraint failure.
func isUniqueViolation(err error) bool {
	return isPgError(err, errCodeUniqueViolation)
}

// isPgError checks if the error is a PostgreSQL error with the given code.
func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// getPgErrorConstraint returns the constraint name from a PostgreSQL error.
func getPgErrorConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
