package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixora/spaceships/internal/domain"
)

func TestUniquenessGuard_Check(t *testing.T) {
	tests := []struct {
		name      string
		ship      *domain.Spaceship
		exists    bool
		matches   []domain.Spaceship
		expectErr bool
	}{
		{
			name:   "free name",
			ship:   domain.NewSpaceship("Enterprise", "Starship", "Star Trek"),
			exists: false,
		},
		{
			name:      "new record with taken name",
			ship:      domain.NewSpaceship("Enterprise", "Starship", "Star Trek"),
			exists:    true,
			matches:   []domain.Spaceship{{ID: 1, Name: "Enterprise"}, {ID: 2, Name: "Enterprise-D"}},
			expectErr: true,
		},
		{
			name:    "update keeping its own name",
			ship:    &domain.Spaceship{ID: 1, Name: "Enterprise", Type: "Starship", Source: "Star Trek"},
			exists:  true,
			matches: []domain.Spaceship{{ID: 1, Name: "Enterprise"}, {ID: 2, Name: "Enterprise-D"}},
		},
		{
			name:      "update taking another record's name",
			ship:      &domain.Spaceship{ID: 2, Name: "Enterprise", Type: "Starship", Source: "Star Trek"},
			exists:    true,
			matches:   []domain.Spaceship{{ID: 1, Name: "Enterprise"}, {ID: 2, Name: "Enterprise-D"}},
			expectErr: true,
		},
		{
			name:    "only substring matches",
			ship:    domain.NewSpaceship("Enterprise", "Starship", "Star Trek"),
			exists:  true,
			matches: []domain.Spaceship{{ID: 2, Name: "Enterprise-D"}, {ID: 3, Name: "enterprise"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockSpaceshipRepository{}
			repo.On("ExistsByName", mock.Anything, tt.ship.Name).Return(tt.exists, nil)
			if tt.exists {
				repo.On("FindByNameContaining", mock.Anything, tt.ship.Name).Return(tt.matches, nil)
			}

			err := NewUniquenessGuard(repo).Check(context.Background(), tt.ship)

			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrConflict))
				assert.Equal(t, domain.DuplicateNameMessage, err.(*domain.DomainError).Message)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestUniquenessGuard_RepositoryErrorIsReturned(t *testing.T) {
	repo := &MockSpaceshipRepository{}
	repo.On("ExistsByName", mock.Anything, "Enterprise").Return(false, errors.New("connection reset"))

	err := NewUniquenessGuard(repo).Check(context.Background(), domain.NewSpaceship("Enterprise", "Starship", "Star Trek"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConflict))
}

func TestUniquenessGuard_SequentialWritesNeverMissADuplicate(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("Ship-%d", i%5)
		_, err := uc.Save(ctx, domain.NewSpaceship(name, "Type", "Source"))
		if i < 5 {
			require.NoError(t, err, name)
		} else {
			require.Error(t, err, name)
			assert.True(t, errors.Is(err, domain.ErrConflict), name)
		}
	}

	page, err := uc.FindAll(ctx, domain.PageRequest{Page: 0, Size: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.TotalElements)
}

func TestUniquenessGuard_NamesAreCaseSensitive(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	_, err := uc.Save(ctx, domain.NewSpaceship("enterprise", "Starship", "Star Trek"))
	require.NoError(t, err)

	_, err = uc.Save(ctx, domain.NewSpaceship("Enterprise", "Starship", "Star Trek"))
	assert.NoError(t, err)
}
