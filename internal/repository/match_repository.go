package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sonarfleet/sonar-server-go/internal/game"
)

const matchesSchema = `
CREATE TABLE IF NOT EXISTS matches (
	id         TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertMatch = `
INSERT INTO matches (id, state, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`

const selectMatch = `SELECT state FROM matches WHERE id = $1`

// MatchRepository implements game.Store on a postgres matches table. The
// whole match record lives in one JSONB column, so a save replaces the record
// atomically and a restart reconstructs every field exactly.
type MatchRepository struct {
	db *DB
}

// NewMatchRepository creates a match repository.
func NewMatchRepository(db *DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// EnsureSchema creates the matches table if it does not exist.
func (r *MatchRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, matchesSchema); err != nil {
		return fmt.Errorf("ensure matches schema: %w", err)
	}
	return nil
}

// Save upserts the match record under its id.
func (r *MatchRepository) Save(ctx context.Context, state *game.MatchState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", state.ID, err)
	}
	if _, err := r.db.Pool.Exec(ctx, upsertMatch, state.ID, data); err != nil {
		return fmt.Errorf("save match %s: %w", state.ID, err)
	}
	return nil
}

// Load reconstructs the match stored under id.
func (r *MatchRepository) Load(ctx context.Context, id string) (*game.MatchState, error) {
	var data []byte
	err := r.db.Pool.QueryRow(ctx, selectMatch, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, game.ErrMatchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", id, err)
	}

	state := &game.MatchState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", id, err)
	}
	return state, nil
}
