package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/fixora/spaceships/internal/domain"
)

// Dialect selects the SQL flavour and driver of a store
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect validates a configured driver name
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(name))) {
	case DialectPostgres:
		return DialectPostgres, nil
	case DialectSQLite:
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// DriverName returns the database/sql driver registered for the dialect
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind rewrites ? placeholders into $n for PostgreSQL. Queries are written
// with ? and must not contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PostgreSQL error codes
const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
)

var sqliteNotNullColumn = regexp.MustCompile(`NOT NULL constraint failed: \w+\.(\w+)`)

// translateError maps constraint violations to domain errors. Any other error
// is returned unchanged.
func (d Dialect) translateError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return domain.NewConflictError(err)
		case pgNotNullViolation:
			return domain.NewIntegrityViolation(pqErr.Column, err)
		}
		return err
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return domain.NewConflictError(err)
		case sqlite3lib.SQLITE_CONSTRAINT_NOTNULL:
			return domain.NewIntegrityViolation(sqliteNotNullField(err.Error()), err)
		}
	}

	message := err.Error()
	switch {
	case strings.Contains(strings.ToLower(message), "unique constraint failed"):
		return domain.NewConflictError(err)
	case strings.Contains(message, "NOT NULL constraint failed"):
		return domain.NewIntegrityViolation(sqliteNotNullField(message), err)
	}
	return err
}

func sqliteNotNullField(message string) string {
	match := sqliteNotNullColumn.FindStringSubmatch(message)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}
