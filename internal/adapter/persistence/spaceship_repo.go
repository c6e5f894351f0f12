package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fixora/spaceships/internal/domain"
	"github.com/fixora/spaceships/internal/ports"
)

// sortColumns maps sortable fields to their columns
var sortColumns = map[string]string{
	"id":     "id",
	"name":   "name",
	"type":   "type",
	"source": "source",
}

// SpaceshipRepository implements SpaceshipRepository using SQL
type SpaceshipRepository struct {
	db      *sql.DB
	dialect Dialect
}

var _ ports.SpaceshipRepository = (*SpaceshipRepository)(nil)

// NewSpaceshipRepository creates a new SQL spaceship repository
func NewSpaceshipRepository(db *sql.DB, dialect Dialect) *SpaceshipRepository {
	return &SpaceshipRepository{db: db, dialect: dialect}
}

// FindByID retrieves a spaceship by its ID
func (r *SpaceshipRepository) FindByID(ctx context.Context, id int64) (*domain.Spaceship, error) {
	query := r.dialect.Rebind(`
		SELECT id, name, type, source
		FROM spaceships
		WHERE id = ?
	`)

	var ship domain.Spaceship
	err := r.db.QueryRowContext(ctx, query, id).Scan(&ship.ID, &ship.Name, &ship.Type, &ship.Source)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to find spaceship: %w", err)
	}

	return &ship, nil
}

// List retrieves one page of spaceships
func (r *SpaceshipRepository) List(ctx context.Context, req domain.PageRequest) (*domain.SpaceshipPage, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spaceships`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count spaceships: %w", err)
	}

	query := r.dialect.Rebind(fmt.Sprintf(`
		SELECT id, name, type, source
		FROM spaceships
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, orderBy(req.Sort)))

	rows, err := r.db.QueryContext(ctx, query, req.Size, req.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list spaceships: %w", err)
	}
	defer rows.Close()

	content, err := scanSpaceships(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaceships: %w", err)
	}

	return domain.NewSpaceshipPage(content, req, total), nil
}

// FindByNameContaining returns spaceships whose name contains fragment, ignoring case
func (r *SpaceshipRepository) FindByNameContaining(ctx context.Context, fragment string) ([]domain.Spaceship, error) {
	query := r.dialect.Rebind(`
		SELECT id, name, type, source
		FROM spaceships
		WHERE LOWER(name) LIKE ? ESCAPE '\'
		ORDER BY id ASC
	`)

	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"

	rows, err := r.db.QueryContext(ctx, query, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search spaceships: %w", err)
	}
	defer rows.Close()

	ships, err := scanSpaceships(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to search spaceships: %w", err)
	}
	return ships, nil
}

// ExistsByName reports whether a spaceship with exactly this name exists
func (r *SpaceshipRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := r.dialect.Rebind(`SELECT EXISTS (SELECT 1 FROM spaceships WHERE name = ?)`)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check spaceship name: %w", err)
	}
	return exists, nil
}

// Save inserts a new spaceship or fully replaces an existing one
func (r *SpaceshipRepository) Save(ctx context.Context, ship *domain.Spaceship) (*domain.Spaceship, error) {
	if ship.IsNew() {
		return r.insert(ctx, ship)
	}
	return r.update(ctx, ship)
}

func (r *SpaceshipRepository) insert(ctx context.Context, ship *domain.Spaceship) (*domain.Spaceship, error) {
	query := r.dialect.Rebind(`
		INSERT INTO spaceships (name, type, source)
		VALUES (?, ?, ?)
		RETURNING id
	`)

	saved := *ship
	err := r.db.QueryRowContext(ctx, query,
		nullableString(ship.Name),
		nullableString(ship.Type),
		nullableString(ship.Source),
	).Scan(&saved.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create spaceship: %w", r.dialect.translateError(err))
	}

	return &saved, nil
}

func (r *SpaceshipRepository) update(ctx context.Context, ship *domain.Spaceship) (*domain.Spaceship, error) {
	query := r.dialect.Rebind(`
		UPDATE spaceships
		SET name = ?, type = ?, source = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		nullableString(ship.Name),
		nullableString(ship.Type),
		nullableString(ship.Source),
		ship.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update spaceship: %w", r.dialect.translateError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, domain.NewNotFoundError(ship.ID)
	}

	saved := *ship
	return &saved, nil
}

// DeleteByID removes a spaceship
func (r *SpaceshipRepository) DeleteByID(ctx context.Context, id int64) error {
	query := r.dialect.Rebind(`DELETE FROM spaceships WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete spaceship: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.NewNotFoundError(id)
	}

	return nil
}

func scanSpaceships(rows *sql.Rows) ([]domain.Spaceship, error) {
	ships := []domain.Spaceship{}
	for rows.Next() {
		var ship domain.Spaceship
		if err := rows.Scan(&ship.ID, &ship.Name, &ship.Type, &ship.Source); err != nil {
			return nil, err
		}
		ships = append(ships, ship)
	}
	return ships, rows.Err()
}

// orderBy renders the ORDER BY list. Unknown fields are skipped and id is
// always the last key so pages are stable.
func orderBy(orders []domain.SortOrder) string {
	var parts []string
	hasID := false
	for _, order := range orders {
		column, ok := sortColumns[order.Field]
		if !ok {
			continue
		}
		direction := "ASC"
		if order.Direction == domain.DirectionDesc {
			direction = "DESC"
		}
		parts = append(parts, column+" "+direction)
		if column == "id" {
			hasID = true
			break
		}
	}
	if !hasID {
		parts = append(parts, "id ASC")
	}
	return strings.Join(parts, ", ")
}

// escapeLike escapes LIKE wildcards so the fragment matches literally
func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// nullableString sends blank values as NULL so the NOT NULL constraints apply
func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: strings.TrimSpace(value) != ""}
}
