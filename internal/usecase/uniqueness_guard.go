package usecase

import (
	"context"
	"fmt"

	"github.com/fixora/spaceships/internal/domain"
	"github.com/fixora/spaceships/internal/ports"
)

// UniquenessGuard rejects writes that would give two spaceships the same
// name. The check and the following write are not atomic; the store's unique
// constraint catches the writes that race past it.
type UniquenessGuard struct {
	repo ports.SpaceshipRepository
}

// NewUniquenessGuard creates a guard reading from repo
func NewUniquenessGuard(repo ports.SpaceshipRepository) *UniquenessGuard {
	return &UniquenessGuard{repo: repo}
}

// Check returns a conflict when another spaceship already has ship's exact
// name. An update that keeps its own name passes.
func (g *UniquenessGuard) Check(ctx context.Context, ship *domain.Spaceship) error {
	exists, err := g.repo.ExistsByName(ctx, ship.Name)
	if err != nil {
		return fmt.Errorf("failed to check spaceship name: %w", err)
	}
	if !exists {
		return nil
	}

	candidates, err := g.repo.FindByNameContaining(ctx, ship.Name)
	if err != nil {
		return fmt.Errorf("failed to check spaceship name: %w", err)
	}

	for _, candidate := range candidates {
		if candidate.Name != ship.Name {
			continue
		}
		if ship.IsNew() || candidate.ID != ship.ID {
			return domain.NewConflictError(nil)
		}
	}
	return nil
}
