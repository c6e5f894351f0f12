package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fixora/spaceships/internal/domain"
	"github.com/fixora/spaceships/internal/ports"
)

// AuditLogRepository implements AuditLogRepository using SQL
type AuditLogRepository struct {
	db      *sql.DB
	dialect Dialect
}

var _ ports.AuditLogRepository = (*AuditLogRepository)(nil)

// NewAuditLogRepository creates a new SQL audit log repository
func NewAuditLogRepository(db *sql.DB, dialect Dialect) *AuditLogRepository {
	return &AuditLogRepository{db: db, dialect: dialect}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Append stores an entry and sets its ID
func (r *AuditLogRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	query := r.dialect.Rebind(`
		INSERT INTO message_log (message, recorded_at)
		VALUES (?, ?)
		RETURNING id
	`)

	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	if err := r.db.QueryRowContext(ctx, query, entry.Message, toMillis(entry.RecordedAt)).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to append audit log entry: %w", err)
	}
	return nil
}

// List returns up to limit most recent entries, oldest first
func (r *AuditLogRepository) List(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	query := r.dialect.Rebind(`
		SELECT id, message, recorded_at FROM (
			SELECT id, message, recorded_at
			FROM message_log
			ORDER BY id DESC
			LIMIT ?
		) recent
		ORDER BY id ASC
	`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditLogEntry{}
	for rows.Next() {
		var entry domain.AuditLogEntry
		var recordedAt int64
		if err := rows.Scan(&entry.ID, &entry.Message, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		entry.RecordedAt = fromMillis(recordedAt)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}
