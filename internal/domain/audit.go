package domain

import (
	"time"
)

// AuditLogEntry is an append-only record of a catalog mutation
type AuditLogEntry struct {
	ID         int64     `json:"id"`
	Message    string    `json:"message"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewAuditLogEntry creates an entry stamped with the current time
func NewAuditLogEntry(message string) *AuditLogEntry {
	return &AuditLogEntry{
		Message:    message,
		RecordedAt: time.Now().UTC(),
	}
}
