package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrMatchNotFound is returned by Store.Load when no record exists for the id.
var ErrMatchNotFound = errors.New("match not found")

// Store is the durable gateway mapping match id -> match record. The manager
// holds a per-match lock across Load/Save, so implementations only need each
// individual call to be safe, not the whole read-validate-write cycle.
type Store interface {
	// Save persists the state under its match id, replacing any previous record.
	Save(ctx context.Context, state *MatchState) error
	// Load reconstructs the state stored under id, or ErrMatchNotFound.
	Load(ctx context.Context, id string) (*MatchState, error)
}

// MemoryStore keeps match records in process memory. Records are held as
// encoded bytes, so a loaded state never aliases a stored one and an aborted
// mutation cannot leak into the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Save encodes and stores the match record.
func (s *MemoryStore) Save(ctx context.Context, state *MatchState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", state.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[state.ID] = data
	return nil
}

// Load decodes a fresh copy of the stored match record.
func (s *MemoryStore) Load(ctx context.Context, id string) (*MatchState, error) {
	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, ErrMatchNotFound)
	}

	state := &MatchState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", id, err)
	}
	return state, nil
}
