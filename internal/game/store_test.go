package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := richTestMatch(t)

	require.NoError(t, store.Save(ctx, m))

	got, err := store.Load(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Checksum(), got.Checksum())
}

func TestMemoryStore_LoadMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Load(context.Background(), "no-such-match")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMemoryStore_NoAliasing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := richTestMatch(t)
	require.NoError(t, store.Save(ctx, m))
	saved := m.Checksum()

	// Mutating either the original or a loaded copy must not change what
	// the store returns next.
	m.Teams["Red"].Health = 1

	first, err := store.Load(ctx, m.ID)
	require.NoError(t, err)
	first.Teams["Blue"].Position = Position{X: 0, Y: 0}

	second, err := store.Load(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, second.Checksum())
}

func TestMemoryStore_Overwrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := richTestMatch(t)
	require.NoError(t, store.Save(ctx, m))

	m.CurrentTurn = "Red"
	m.Teams["Blue"].Health = 2
	require.NoError(t, store.Save(ctx, m))

	got, err := store.Load(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red", got.CurrentTurn)
	assert.Equal(t, 2, got.Teams["Blue"].Health)
}
