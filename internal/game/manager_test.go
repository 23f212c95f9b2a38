package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarfleet/sonar-server-go/internal/board"
	"github.com/sonarfleet/sonar-server-go/internal/game/rules"
)

func newTestManager(t *testing.T) (*Manager, Store) {
	t.Helper()
	b, err := board.Parse(allWater(15, 15))
	require.NoError(t, err)
	store := NewMemoryStore()
	return NewManager(store, b, rand.New(rand.NewSource(42)), nil), store
}

func TestStartMatch(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	state, err := mgr.StartMatch(ctx, "m1", []string{"Red", "Blue"})
	require.NoError(t, err)

	// Scenario: both submarines on distinct water cells, full health, all
	// gauges at zero, empty paths, first team to act.
	require.Len(t, state.Teams, 2)
	red, blue := state.Teams["Red"], state.Teams["Blue"]
	require.NotNil(t, red)
	require.NotNil(t, blue)
	assert.NotEqual(t, red.Position, blue.Position)
	assert.True(t, state.Board.IsWater(red.Position.X, red.Position.Y))
	assert.True(t, state.Board.IsWater(blue.Position.X, blue.Position.Y))

	for _, sub := range state.Teams {
		assert.Equal(t, MaxHealth, sub.Health)
		assert.Empty(t, sub.Path)
		assert.Empty(t, sub.Mines)
		assert.False(t, sub.Surfaced)
		for _, sys := range rules.Systems() {
			assert.Equal(t, 0, sub.Gauges[sys])
			assert.False(t, sub.Systems[sys])
		}
	}

	assert.Equal(t, "Red", state.CurrentTurn)
	assert.Equal(t, []string{"Red", "Blue"}, state.TeamOrder)
	assert.False(t, state.Finished)

	// The match is persisted immediately.
	loaded, err := mgr.GetState(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, state.Checksum(), loaded.Checksum())
}

func TestStartMatch_GeneratesID(t *testing.T) {
	mgr, _ := newTestManager(t)

	state, err := mgr.StartMatch(context.Background(), "", []string{"Red", "Blue"})
	require.NoError(t, err)
	assert.NotEmpty(t, state.ID)
}

func TestStartMatch_BadTeams(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		teams []string
	}{
		{"too few", []string{"Red"}},
		{"too many", []string{"Red", "Blue", "Green"}},
		{"empty name", []string{"Red", "  "}},
		{"duplicate", []string{"Red", "Red"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mgr.StartMatch(ctx, "bad", tc.teams)
			require.Error(t, err)
			assert.Equal(t, rules.CodeRule, rules.CodeOf(err))
		})
	}
}

func TestStartMatch_NotEnoughWater(t *testing.T) {
	b, err := board.Parse(".X\nXX")
	require.NoError(t, err)
	mgr := NewManager(NewMemoryStore(), b, rand.New(rand.NewSource(1)), nil)

	_, startErr := mgr.StartMatch(context.Background(), "cramped", []string{"Red", "Blue"})
	require.Error(t, startErr)
	assert.Equal(t, rules.CodeRule, rules.CodeOf(startErr))
}

func TestStartMatch_SupersedesExisting(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.StartMatch(ctx, "m1", []string{"Red", "Blue"})
	require.NoError(t, err)
	_, err = mgr.ChargeSystem(ctx, "m1", "Red", "torpedo")
	require.NoError(t, err)

	fresh, err := mgr.StartMatch(ctx, "m1", []string{"Red", "Blue"})
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Teams["Red"].Gauges[rules.SystemTorpedo])
	assert.Equal(t, "Red", fresh.CurrentTurn)
}

func TestManager_TurnAlternation(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.StartMatch(ctx, "m1", []string{"Red", "Blue"})
	require.NoError(t, err)

	state, err := mgr.ChargeSystem(ctx, "m1", "Red", "torpedo")
	require.NoError(t, err)
	assert.Equal(t, "Blue", state.CurrentTurn)

	state, err = mgr.ChargeSystem(ctx, "m1", "Blue", "mine")
	require.NoError(t, err)
	assert.Equal(t, "Red", state.CurrentTurn)

	// Acting out of turn is rejected without ending anyone's turn.
	_, err = mgr.ChargeSystem(ctx, "m1", "Blue", "mine")
	require.Error(t, err)
	assert.Equal(t, rules.CodeTurn, rules.CodeOf(err))

	state, err = mgr.GetState(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Red", state.CurrentTurn)
}

func TestManager_RejectedOperationLeavesStoreUnchanged(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	started, err := mgr.StartMatch(ctx, "m1", []string{"Red", "Blue"})
	require.NoError(t, err)
	before := started.Checksum()

	_, err = mgr.Move(ctx, "m1", "Blue", "N")
	require.Error(t, err)
	_, err = mgr.LaunchTorpedo(ctx, "m1", "Red", 0, 0)
	require.Error(t, err)

	after, err := mgr.GetState(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, before, after.Checksum())
}

func TestManager_GetStateIsSideEffectFree(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.StartMatch(ctx, "m1", []string{"Red", "Blue"})
	require.NoError(t, err)

	first, err := mgr.GetState(ctx, "m1")
	require.NoError(t, err)
	second, err := mgr.GetState(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, first.Checksum(), second.Checksum())
}

func TestManager_MatchNotFound(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.GetState(ctx, "ghost")
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = mgr.Move(ctx, "ghost", "Red", "N")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestManager_SurvivesRestart(t *testing.T) {
	b, err := board.Parse(allWater(15, 15))
	require.NoError(t, err)
	store := NewMemoryStore()
	ctx := context.Background()

	mgr := NewManager(store, b, rand.New(rand.NewSource(7)), nil)
	_, err = mgr.StartMatch(ctx, "m1", []string{"Red", "Blue"})
	require.NoError(t, err)
	state, err := mgr.ChargeSystem(ctx, "m1", "Red", "silence")
	require.NoError(t, err)
	checksum := state.Checksum()

	// A new manager on the same store picks the match up where it stood.
	revived := NewManager(store, b, rand.New(rand.NewSource(8)), nil)
	loaded, err := revived.GetState(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, checksum, loaded.Checksum())

	next, err := revived.ChargeSystem(ctx, "m1", "Blue", "drone")
	require.NoError(t, err)
	assert.Equal(t, "Red", next.CurrentTurn)
}

func TestManager_BoardRendering(t *testing.T) {
	b, err := board.Parse("..X\n...")
	require.NoError(t, err)
	mgr := NewManager(NewMemoryStore(), b, rand.New(rand.NewSource(3)), nil)
	ctx := context.Background()

	_, err = mgr.StartMatch(ctx, "m1", []string{"Red", "Blue"})
	require.NoError(t, err)

	grid, err := mgr.BoardRendering(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "..X\n...", grid)
}

func TestManager_ConcurrentOperations(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.StartMatch(ctx, "m1", []string{"Red", "Blue"})
	require.NoError(t, err)

	// Hammer the match from both teams at once. Most calls lose the turn
	// race; the point is that the stored state stays internally valid.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				mgr.ChargeSystem(ctx, "m1", "Red", "silence")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				mgr.ChargeSystem(ctx, "m1", "Blue", "silence")
			}
		}()
	}
	wg.Wait()

	state, err := mgr.GetState(ctx, "m1")
	require.NoError(t, err)
	require.NoError(t, state.validate())
}

func TestManager_ConcurrentStartMatches(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := mgr.StartMatch(ctx, id, []string{"Red", "Blue"})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		state, err := mgr.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, state.ID)
	}
}
