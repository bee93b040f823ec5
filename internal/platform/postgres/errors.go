package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const uniqueViolationCode = "23505" // unique constraint violation

// isUniqueViolation checks if the given error is a PostgreSQL unique
// constraint violation, such as inserting a task with an existing ID.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return true
	}
	return false
}
