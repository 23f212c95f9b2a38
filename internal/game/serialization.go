package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sonarfleet/sonar-server-go/internal/board"
	"github.com/sonarfleet/sonar-server-go/internal/game/rules"
)

// matchRecord is the durable wire form of a MatchState. Every field of the
// live state, including path order and mine order, round-trips through it.
type matchRecord struct {
	ID          string                `json:"id"`
	Board       boardRecord           `json:"board"`
	Teams       map[string]*Submarine `json:"teams"`
	TeamOrder   []string              `json:"team_order"`
	CurrentTurn string                `json:"current_turn"`
	Finished    bool                  `json:"finished"`
	Winner      string                `json:"winner,omitempty"`
}

type boardRecord struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Grid   string `json:"grid"`
}

// MarshalJSON encodes the match state into its durable record form.
func (m *MatchState) MarshalJSON() ([]byte, error) {
	rec := matchRecord{
		ID: m.ID,
		Board: boardRecord{
			Width:  m.Board.Width(),
			Height: m.Board.Height(),
			Grid:   m.Board.Render(),
		},
		Teams:       m.Teams,
		TeamOrder:   m.TeamOrder,
		CurrentTurn: m.CurrentTurn,
		Finished:    m.Finished,
		Winner:      m.Winner,
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reconstructs a match state from its durable record form and
// re-checks the structural invariants before handing it to the engine.
func (m *MatchState) UnmarshalJSON(data []byte) error {
	var rec matchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode match record: %w", err)
	}

	b, err := board.Parse(rec.Board.Grid)
	if err != nil {
		return fmt.Errorf("decode match %s board: %w", rec.ID, err)
	}
	if b.Width() != rec.Board.Width || b.Height() != rec.Board.Height {
		return fmt.Errorf("match %s board grid is %dx%d, record says %dx%d",
			rec.ID, b.Width(), b.Height(), rec.Board.Width, rec.Board.Height)
	}

	m.ID = rec.ID
	m.Board = b
	m.Teams = rec.Teams
	m.TeamOrder = rec.TeamOrder
	m.CurrentTurn = rec.CurrentTurn
	m.Finished = rec.Finished
	m.Winner = rec.Winner

	return m.validate()
}

// Checksum computes a deterministic SHA-256 over the match state. Identical
// states always hash identically regardless of map iteration order, which
// guards against divergence between a live state and its stored record.
func (m *MatchState) Checksum() string {
	hash := sha256.Sum256([]byte(m.deterministicRepresentation()))
	return hex.EncodeToString(hash[:])
}

// deterministicRepresentation builds a canonical string form of the state:
// maps are walked in sorted key order, ordered fields keep their order.
func (m *MatchState) deterministicRepresentation() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "MATCH:%s|%s|%t|%s\n", m.ID, m.CurrentTurn, m.Finished, m.Winner)
	fmt.Fprintf(&buf, "BOARD:%dx%d|%s\n", m.Board.Width(), m.Board.Height(), m.Board.Render())

	teams := make([]string, len(m.TeamOrder))
	copy(teams, m.TeamOrder)
	sort.Strings(teams)

	for _, team := range teams {
		sub := m.Teams[team]
		fmt.Fprintf(&buf, "TEAM:%s|%d,%d|%d|%t\n", team, sub.Position.X, sub.Position.Y, sub.Health, sub.Surfaced)
		for _, p := range sub.Path {
			fmt.Fprintf(&buf, "  PATH:%d,%d\n", p.X, p.Y)
		}
		for _, p := range sub.Mines {
			fmt.Fprintf(&buf, "  MINE:%d,%d\n", p.X, p.Y)
		}
		for _, sys := range rules.Systems() {
			fmt.Fprintf(&buf, "  SYSTEM:%s|%d|%t\n", sys, sub.Gauges[sys], sub.Systems[sys])
		}
	}

	return buf.String()
}
