package vouch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/points-bot/internal/common"
	"serotonyl.ru/points-bot/internal/db/kvstore"
)

func newTestRegistry(t *testing.T) *Service {
	t.Helper()
	return NewService(NewRepository(kvstore.NewMemory()))
}

func TestLookup_AbsentFingerprint(t *testing.T) {
	t.Parallel()
	s := newTestRegistry(t)

	_, found, err := s.Lookup(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecord_CreatesThenIncrements(t *testing.T) {
	t.Parallel()
	s := newTestRegistry(t)
	ctx := context.Background()
	seen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rec, created, err := s.Record(ctx, "fp1", "alice", "msg1", "https://cdn/a.png", seen)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, rec.RepostCount)
	assert.Equal(t, "alice", rec.OriginalUserID)

	// Повторное появление: счётчик растёт, первооткрыватель не меняется
	rec, created, err = s.Record(ctx, "fp1", "bob", "msg2", "https://cdn/b.png", seen.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, rec.RepostCount)
	assert.Equal(t, "alice", rec.OriginalUserID)
	assert.Equal(t, "msg1", rec.OriginalMessageID)
	assert.True(t, rec.FirstSeen.Equal(seen))
}

func TestRollback_DeletesJustCreatedRecord(t *testing.T) {
	t.Parallel()
	s := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := s.Record(ctx, "fp1", "alice", "msg1", "", time.Now())
	require.NoError(t, err)

	require.NoError(t, s.Rollback(ctx, "fp1"))

	// После отката изображение снова считается новым
	_, found, err := s.Lookup(ctx, "fp1")
	require.NoError(t, err)
	assert.False(t, found)

	_, created, err := s.Record(ctx, "fp1", "alice", "msg3", "", time.Now())
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRollback_AbsentRecord(t *testing.T) {
	t.Parallel()
	s := newTestRegistry(t)

	err := s.Rollback(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestReset_EmptiesRegistry(t *testing.T) {
	t.Parallel()
	s := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := s.Record(ctx, "fp1", "alice", "msg1", "", time.Now())
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	_, found, err := s.Lookup(ctx, "fp1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetStats(t *testing.T) {
	t.Parallel()
	s := newTestRegistry(t)
	ctx := context.Background()
	now := time.Now()

	_, _, err := s.Record(ctx, "fp1", "alice", "m1", "", now)
	require.NoError(t, err)
	_, _, err = s.Record(ctx, "fp2", "bob", "m2", "", now)
	require.NoError(t, err)
	// fp2 повторяют дважды
	_, _, err = s.Record(ctx, "fp2", "carol", "m3", "", now)
	require.NoError(t, err)
	_, _, err = s.Record(ctx, "fp2", "dave", "m4", "", now)
	require.NoError(t, err)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.UniqueImages)
	assert.Equal(t, 2, stats.TotalReposts)
	require.Len(t, stats.TopReposted, 1)
	assert.Equal(t, "fp2", stats.TopReposted[0].Fingerprint)
	assert.Equal(t, 3, stats.TopReposted[0].RepostCount)
	assert.Equal(t, "bob", stats.TopReposted[0].OriginalUserID)
}

func TestReplaceAll_OverwritesRegistry(t *testing.T) {
	t.Parallel()
	s := newTestRegistry(t)
	ctx := context.Background()

	_, _, err := s.Record(ctx, "old", "alice", "m1", "", time.Now())
	require.NoError(t, err)

	rebuilt := map[string]Record{
		"new": {OriginalUserID: "bob", OriginalMessageID: "m9", RepostCount: 1},
	}
	require.NoError(t, s.ReplaceAll(ctx, rebuilt))

	_, found, err := s.Lookup(ctx, "old")
	require.NoError(t, err)
	assert.False(t, found)

	rec, found, err := s.Lookup(ctx, "new")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bob", rec.OriginalUserID)
}
