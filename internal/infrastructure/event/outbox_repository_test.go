package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/catalogsync/internal/domain/shared"
	"github.com/erp/catalogsync/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(t *testing.T, key string) *shared.OutboxEntry {
	t.Helper()
	env := testutil.MustEnvelope(t, "user.synchro", shared.Timestamped{ID: key, Timestamp: 7})
	entry, err := shared.NewOutboxEntry(key, env, errors.New("broker down"))
	require.NoError(t, err)
	return entry
}

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	repo := NewGormOutboxRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	first := newEntry(t, "u-1")
	second := newEntry(t, "u-2")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, second, first))
	require.NoError(t, repo.Save(ctx))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "oldest first")
	assert.Equal(t, "u-1", pending[0].MessageKey)

	env, err := pending[0].Envelope()
	require.NoError(t, err)
	assert.Equal(t, "user.synchro", env.Event)

	limited, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	repo := NewGormOutboxRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	pending := newEntry(t, "u-1")
	sent := newEntry(t, "u-2")
	sent.MarkSent()
	require.NoError(t, repo.Save(ctx, pending, sent))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID, sent.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, pending.ID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{pending.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "a processing entry cannot be claimed twice")

	none, err := repo.MarkProcessing(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	repo := NewGormOutboxRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	due := newEntry(t, "u-1")
	due.MarkFailed("broker down")
	past := time.Now().Add(-time.Hour)
	due.NextRetryAt = &past

	later := newEntry(t, "u-2")
	later.MarkFailed("broker down")
	future := time.Now().Add(time.Hour)
	later.NextRetryAt = &future

	require.NoError(t, repo.Save(ctx, due, later))

	retryable, err := repo.FindRetryable(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, due.ID, retryable[0].ID)
	assert.Equal(t, 1, retryable[0].RetryCount)
}

func TestGormOutboxRepository_UpdateAndFindByID(t *testing.T) {
	repo := NewGormOutboxRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	entry := newEntry(t, "u-1")
	require.NoError(t, repo.Save(ctx, entry))

	entry.MarkSent()
	require.NoError(t, repo.Update(ctx, entry))

	found, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusSent, found.Status)
	assert.NotNil(t, found.ProcessedAt)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOutboxRepository_FindDeadAndCount(t *testing.T) {
	repo := NewGormOutboxRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dead := newEntry(t, "dead")
		dead.MaxRetries = 1
		dead.MarkFailed("broker down")
		require.True(t, dead.IsDead())
		require.NoError(t, repo.Save(ctx, dead))
	}
	require.NoError(t, repo.Save(ctx, newEntry(t, "alive")))

	page, total, err := repo.FindDead(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	page, _, err = repo.FindDead(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[shared.OutboxStatusDead])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])
}

func TestGormOutboxRepository_DeleteOlderThan(t *testing.T) {
	repo := NewGormOutboxRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	old := newEntry(t, "old")
	old.MarkSent()
	longAgo := time.Now().Add(-30 * 24 * time.Hour)
	old.ProcessedAt = &longAgo

	recent := newEntry(t, "recent")
	recent.MarkSent()

	require.NoError(t, repo.Save(ctx, old, recent, newEntry(t, "pending")))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])
}
