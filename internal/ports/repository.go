package ports

import (
	"context"

	"github.com/fixora/spaceships/internal/domain"
)

// SpaceshipRepository defines the interface for spaceship persistence
type SpaceshipRepository interface {
	// FindByID retrieves a spaceship by its ID, domain.ErrNotFound when absent
	FindByID(ctx context.Context, id int64) (*domain.Spaceship, error)

	// List retrieves one page of spaceships; unsorted requests are ordered by id
	List(ctx context.Context, req domain.PageRequest) (*domain.SpaceshipPage, error)

	// FindByNameContaining returns every spaceship whose name contains the
	// fragment, ignoring case
	FindByNameContaining(ctx context.Context, fragment string) ([]domain.Spaceship, error)

	// ExistsByName reports whether a spaceship with exactly this name exists
	ExistsByName(ctx context.Context, name string) (bool, error)

	// Save inserts a new spaceship (ID 0) or fully replaces an existing one.
	// The returned spaceship carries the store-assigned ID.
	Save(ctx context.Context, ship *domain.Spaceship) (*domain.Spaceship, error)

	// DeleteByID removes a spaceship, domain.ErrNotFound when absent
	DeleteByID(ctx context.Context, id int64) error
}

// AuditLogRepository defines the interface for the append-only audit trail
type AuditLogRepository interface {
	// Append stores an entry and sets its ID
	Append(ctx context.Context, entry *domain.AuditLogEntry) error

	// List returns the most recent entries in insertion order, at most limit
	List(ctx context.Context, limit int) ([]domain.AuditLogEntry, error)
}
