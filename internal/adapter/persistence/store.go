package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/fixora/spaceships/internal/adapter/persistence/migrations"
)

const migrationTable = "schema_migrations"

// Options describe how to open a store
type Options struct {
	Dialect      Dialect
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

// Store owns the database handle shared by the repositories
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database and configures the connection pool
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(opts.Dialect.DriverName(), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.Dialect == DialectSQLite {
		// one writer at a time; also keeps :memory: databases on one connection
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns / 2)
	}
	if opts.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.MaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewStore(db, opts.Dialect), nil
}

// NewStore wraps an already opened handle
func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// SQLiteDSN builds a modernc.org/sqlite DSN for a database file
func SQLiteDSN(file string) string {
	return "file:" + file + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// DB returns the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL flavour of the store
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Spaceships returns the spaceship repository on this store
func (s *Store) Spaceships() *SpaceshipRepository {
	return NewSpaceshipRepository(s.db, s.dialect)
}

// AuditLog returns the audit log repository on this store
func (s *Store) AuditLog() *AuditLogRepository {
	return NewAuditLogRepository(s.db, s.dialect)
}

// Migrate applies the embedded migrations of the store's dialect, each at
// most once. It returns the names of the migrations it applied.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	root := string(s.dialect)

	entries, err := fs.ReadDir(migrations.FS, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			applied_at BIGINT NOT NULL
		)`, migrationTable)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("failed to ensure migration table: %w", err)
	}

	var applied []string
	for _, file := range files {
		name := path.Join(root, file)

		done, err := s.isApplied(ctx, name)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if done {
			continue
		}

		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		upSQL := extractUpMigration(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		if err := s.applyMigration(ctx, name, upSQL); err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}

	return applied, nil
}

func (s *Store) applyMigration(ctx context.Context, name, upSQL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, upSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to exec migration %s: %w", name, err)
	}

	record := s.dialect.Rebind(fmt.Sprintf(
		"INSERT INTO %s (name, applied_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING", migrationTable))
	if _, err := tx.ExecContext(ctx, record, name, time.Now().UTC().UnixMilli()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", name, err)
	}
	return nil
}

func (s *Store) isApplied(ctx context.Context, name string) (bool, error) {
	var found int
	query := s.dialect.Rebind("SELECT 1 FROM " + migrationTable + " WHERE name = ?")
	err := s.db.QueryRowContext(ctx, query, name).Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Rollback reverts the most recently applied migrations, newest first, using
// their -- +migrate Down sections. It returns the names it reverted.
func (s *Store) Rollback(ctx context.Context, steps int) ([]string, error) {
	if steps <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT name FROM %s ORDER BY name DESC", migrationTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}

	var names []string
	for rows.Next() && len(names) < steps {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan migration name: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()

	var reverted []string
	for _, name := range names {
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return reverted, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		downSQL := extractDownMigration(string(content))
		if strings.TrimSpace(downSQL) == "" {
			return reverted, fmt.Errorf("migration %s has no down section", name)
		}

		if err := s.revertMigration(ctx, name, downSQL); err != nil {
			return reverted, err
		}
		reverted = append(reverted, name)
	}

	return reverted, nil
}

func (s *Store) revertMigration(ctx context.Context, name, downSQL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rollback %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, downSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to exec rollback %s: %w", name, err)
	}

	unmark := s.dialect.Rebind("DELETE FROM " + migrationTable + " WHERE name = ?")
	if _, err := tx.ExecContext(ctx, unmark, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to unmark migration %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback %s: %w", name, err)
	}
	return nil
}

// extractDownMigration returns the SQL in the -- +migrate Down section
func extractDownMigration(content string) string {
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return ""
	}
	return content[downIdx+len("-- +migrate Down"):]
}

// extractUpMigration returns the SQL in the -- +migrate Up section
func extractUpMigration(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}
