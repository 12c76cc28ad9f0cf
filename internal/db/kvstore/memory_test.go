package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AbsentKey(t *testing.T) {
	t.Parallel()
	s := NewMemory()

	var dest map[string]int64
	found, err := s.Get(context.Background(), "points", &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_RoundTrip(t *testing.T) {
	t.Parallel()
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "points", map[string]int64{"u1": 5}))

	got := make(map[string]int64)
	found, err := s.Get(ctx, "points", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(5), got["u1"])
}

func TestMemory_SetReplacesWholeDocument(t *testing.T) {
	t.Parallel()
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "points", map[string]int64{"u1": 5, "u2": 7}))
	require.NoError(t, s.Set(ctx, "points", map[string]int64{"u3": 1}))

	got := make(map[string]int64)
	_, err := s.Get(ctx, "points", &got)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"u3": 1}, got)
}

func TestMemory_StoredCopyIsIsolated(t *testing.T) {
	t.Parallel()
	s := NewMemory()
	ctx := context.Background()

	original := map[string]int64{"u1": 5}
	require.NoError(t, s.Set(ctx, "points", original))

	// Мутация исходной map не должна менять сохранённый документ
	original["u1"] = 999

	got := make(map[string]int64)
	_, err := s.Get(ctx, "points", &got)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got["u1"])
}
