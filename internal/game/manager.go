package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sonarfleet/sonar-server-go/internal/board"
	"github.com/sonarfleet/sonar-server-go/internal/game/rules"
)

// placementAttempts bounds the random search for two distinct start cells.
const placementAttempts = 1000

// Manager owns every match: it keys matches by id, serializes mutating
// operations per match id across the full load-validate-mutate-save cycle,
// and lets operations on different matches proceed in parallel.
type Manager struct {
	logger *zap.Logger
	store  Store
	engine *Engine

	boardTemplate *board.Board

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a match manager. boardTemplate is snapshotted into every
// new match. A nil rng falls back to a time-seeded source.
func NewManager(store Store, boardTemplate *board.Board, rng *rand.Rand, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{
		logger:        logger,
		store:         store,
		engine:        NewEngine(logger),
		boardTemplate: boardTemplate,
		rng:           rng,
		locks:         make(map[string]*sync.Mutex),
	}
}

// matchLock returns the mutex guarding one match id.
func (mgr *Manager) matchLock(id string) *sync.Mutex {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	l, ok := mgr.locks[id]
	if !ok {
		l = &sync.Mutex{}
		mgr.locks[id] = l
	}
	return l
}

// StartMatch creates and persists a fresh match: a board snapshot with both
// submarines placed on distinct random water cells, first team to act.
// A previous match stored under the same id is superseded. An empty id gets
// a generated one.
func (mgr *Manager) StartMatch(ctx context.Context, id string, teams []string) (*MatchState, error) {
	if len(teams) != 2 {
		return nil, rules.RuleErrorf("a match requires exactly two teams, got %d", len(teams))
	}
	teamA := strings.TrimSpace(teams[0])
	teamB := strings.TrimSpace(teams[1])
	if teamA == "" || teamB == "" {
		return nil, rules.RuleErrorf("team names must not be empty")
	}
	if teamA == teamB {
		return nil, rules.RuleErrorf("team names must be distinct")
	}

	if id == "" {
		id = uuid.NewString()
	}

	snapshot := mgr.boardTemplate.Clone()
	posA, posB, err := mgr.placeSubmarines(snapshot)
	if err != nil {
		return nil, err
	}

	state := &MatchState{
		ID:    id,
		Board: snapshot,
		Teams: map[string]*Submarine{
			teamA: newSubmarine(teamA, posA),
			teamB: newSubmarine(teamB, posB),
		},
		TeamOrder:   []string{teamA, teamB},
		CurrentTurn: teamA,
	}

	l := mgr.matchLock(id)
	l.Lock()
	defer l.Unlock()

	if err := mgr.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("persist match %s: %w", id, err)
	}

	mgr.logger.Info("match started",
		zap.String("match_id", id),
		zap.String("team_a", teamA),
		zap.String("team_b", teamB),
		zap.String("first_turn", teamA),
	)
	return state, nil
}

// placeSubmarines picks two distinct random water cells.
func (mgr *Manager) placeSubmarines(b *board.Board) (Position, Position, error) {
	mgr.rngMu.Lock()
	defer mgr.rngMu.Unlock()

	ax, ay, ok := b.RandomWaterCell(mgr.rng)
	if !ok {
		return Position{}, Position{}, rules.RuleErrorf("board has no water cells to place submarines")
	}
	posA := Position{X: ax, Y: ay}

	for i := 0; i < placementAttempts; i++ {
		bx, by, ok := b.RandomWaterCell(mgr.rng)
		if !ok {
			break
		}
		posB := Position{X: bx, Y: by}
		if posB != posA {
			return posA, posB, nil
		}
	}
	return Position{}, Position{}, rules.RuleErrorf("board does not have two distinct water cells")
}

// mutate runs one engine operation under the match lock: load, validate and
// apply, then persist. A rejected operation returns before any save, so the
// stored record is untouched.
func (mgr *Manager) mutate(ctx context.Context, id, op string, apply func(*MatchState) error) (*MatchState, error) {
	l := mgr.matchLock(id)
	l.Lock()
	defer l.Unlock()

	state, err := mgr.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(state); err != nil {
		mgr.logger.Debug("operation rejected",
			zap.String("match_id", id),
			zap.String("op", op),
			zap.Error(err),
		)
		return nil, err
	}

	if err := mgr.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("persist match %s after %s: %w", id, op, err)
	}

	mgr.logger.Debug("operation applied",
		zap.String("match_id", id),
		zap.String("op", op),
		zap.String("turn", state.CurrentTurn),
		zap.String("checksum", state.Checksum()),
	)
	return state, nil
}

// Move advances a submarine one cell in the given direction.
func (mgr *Manager) Move(ctx context.Context, id, team, direction string) (*MatchState, error) {
	return mgr.mutate(ctx, id, "move", func(m *MatchState) error {
		return mgr.engine.Move(m, team, direction)
	})
}

// ChargeSystem adds one charge to the chosen system and ends the turn.
func (mgr *Manager) ChargeSystem(ctx context.Context, id, team, system string) (*MatchState, error) {
	return mgr.mutate(ctx, id, "charge-system", func(m *MatchState) error {
		return mgr.engine.ChargeSystem(m, team, system)
	})
}

// Surface clears the submarine's path and ends the turn.
func (mgr *Manager) Surface(ctx context.Context, id, team string) (*MatchState, error) {
	return mgr.mutate(ctx, id, "surface", func(m *MatchState) error {
		return mgr.engine.Surface(m, team)
	})
}

// DropMine places a mine on an adjacent water cell and ends the turn.
func (mgr *Manager) DropMine(ctx context.Context, id, team string, x, y int) (*MatchState, error) {
	return mgr.mutate(ctx, id, "drop-mine", func(m *MatchState) error {
		return mgr.engine.DropMine(m, team, x, y)
	})
}

// TriggerMine detonates one of the team's mines and ends the turn.
func (mgr *Manager) TriggerMine(ctx context.Context, id, team string, x, y int) (*MatchState, error) {
	return mgr.mutate(ctx, id, "trigger-mine", func(m *MatchState) error {
		return mgr.engine.TriggerMine(m, team, x, y)
	})
}

// LaunchTorpedo fires a torpedo and ends the turn.
func (mgr *Manager) LaunchTorpedo(ctx context.Context, id, team string, x, y int) (*MatchState, error) {
	return mgr.mutate(ctx, id, "launch-torpedo", func(m *MatchState) error {
		return mgr.engine.LaunchTorpedo(m, team, x, y)
	})
}

// GetState returns a snapshot of the match. Side-effect-free, no turn check;
// available to either team or observers at any time.
func (mgr *Manager) GetState(ctx context.Context, id string) (*MatchState, error) {
	return mgr.store.Load(ctx, id)
}

// BoardRendering returns the textual board grid for the match.
func (mgr *Manager) BoardRendering(ctx context.Context, id string) (string, error) {
	state, err := mgr.store.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return state.Board.Render(), nil
}
