package threads

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStaleVersion is returned when a versioned update matched no row.
var ErrStaleVersion = errors.New("threads repo: stale thread version")

// IsUniqueViolation reports a unique-key race on Postgres (23505) or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
