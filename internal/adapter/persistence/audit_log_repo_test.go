package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/spaceships/internal/domain"
)

func TestAuditLogRepository_AppendAndList(t *testing.T) {
	repo := newTestStore(t).AuditLog()
	ctx := context.Background()

	recordedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, message := range []string{"Created spaceship: A", "Created spaceship: B", "Deleted spaceship with ID: 1"} {
		entry := &domain.AuditLogEntry{Message: message, RecordedAt: recordedAt}
		require.NoError(t, repo.Append(ctx, entry))
		assert.NotZero(t, entry.ID)
	}

	entries, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Created spaceship: A", entries[0].Message)
	assert.Equal(t, "Deleted spaceship with ID: 1", entries[2].Message)
	assert.True(t, entries[0].RecordedAt.Equal(recordedAt))

	recent, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Created spaceship: B", recent[0].Message)
	assert.Equal(t, "Deleted spaceship with ID: 1", recent[1].Message)
}

func TestAuditLogRepository_DuplicatesAreKept(t *testing.T) {
	repo := newTestStore(t).AuditLog()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, domain.NewAuditLogEntry("Created spaceship: A")))
	require.NoError(t, repo.Append(ctx, domain.NewAuditLogEntry("Created spaceship: A")))

	entries, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
