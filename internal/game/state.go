package game

import (
	"github.com/sonarfleet/sonar-server-go/internal/board"
	"github.com/sonarfleet/sonar-server-go/internal/game/rules"
)

// MaxHealth is the hull strength every submarine starts with.
const MaxHealth = 4

// Position is an integer grid coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Manhattan returns the Manhattan distance between two positions.
func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Submarine is one team's mutable state within a match.
type Submarine struct {
	Team     string               `json:"team"`
	Position Position             `json:"position"`
	Health   int                  `json:"health"`
	Path     []Position           `json:"path"`
	Systems  map[rules.System]bool `json:"systems"`
	Gauges   map[rules.System]int  `json:"gauges"`
	Mines    []Position           `json:"mines"`
	Surfaced bool                 `json:"surfaced"`
}

// newSubmarine places a fresh submarine: full health, empty path, every
// system uncharged, no mines.
func newSubmarine(team string, pos Position) *Submarine {
	systems := make(map[rules.System]bool, len(rules.Systems()))
	gauges := make(map[rules.System]int, len(rules.Systems()))
	for _, sys := range rules.Systems() {
		systems[sys] = false
		gauges[sys] = 0
	}
	return &Submarine{
		Team:     team,
		Position: pos,
		Health:   MaxHealth,
		Path:     make([]Position, 0),
		Systems:  systems,
		Gauges:   gauges,
		Mines:    make([]Position, 0),
	}
}

// OnPath reports whether the submarine has visited pos since it last surfaced.
func (s *Submarine) OnPath(pos Position) bool {
	for _, p := range s.Path {
		if p == pos {
			return true
		}
	}
	return false
}

// HasMineAt reports whether the submarine has a mine placed at pos.
func (s *Submarine) HasMineAt(pos Position) bool {
	for _, p := range s.Mines {
		if p == pos {
			return true
		}
	}
	return false
}

func (s *Submarine) removeMine(pos Position) {
	for i, p := range s.Mines {
		if p == pos {
			s.Mines = append(s.Mines[:i], s.Mines[i+1:]...)
			return
		}
	}
}

// chargeGauge adds one charge to an unready system, pinning the gauge at the
// threshold and flipping the ready flag when the cap is reached.
func (s *Submarine) chargeGauge(sys rules.System) {
	if s.Systems[sys] {
		return
	}
	s.Gauges[sys]++
	if s.Gauges[sys] >= sys.Threshold() {
		s.Gauges[sys] = sys.Threshold()
		s.Systems[sys] = true
	}
}

// discharge resets a system after use.
func (s *Submarine) discharge(sys rules.System) {
	s.Systems[sys] = false
	s.Gauges[sys] = 0
}

func (s *Submarine) clone() *Submarine {
	c := &Submarine{
		Team:     s.Team,
		Position: s.Position,
		Health:   s.Health,
		Path:     make([]Position, len(s.Path)),
		Systems:  make(map[rules.System]bool, len(s.Systems)),
		Gauges:   make(map[rules.System]int, len(s.Gauges)),
		Mines:    make([]Position, len(s.Mines)),
		Surfaced: s.Surfaced,
	}
	copy(c.Path, s.Path)
	copy(c.Mines, s.Mines)
	for sys, ready := range s.Systems {
		c.Systems[sys] = ready
	}
	for sys, gauge := range s.Gauges {
		c.Gauges[sys] = gauge
	}
	return c
}

// MatchState is the authoritative representation of one match: the board
// snapshot, both submarines, and turn/terminal bookkeeping.
type MatchState struct {
	ID          string
	Board       *board.Board
	Teams       map[string]*Submarine
	TeamOrder   []string
	CurrentTurn string
	Finished    bool
	Winner      string
}

// Submarine returns the submarine controlled by team.
func (m *MatchState) Submarine(team string) (*Submarine, bool) {
	sub, ok := m.Teams[team]
	return sub, ok
}

// Opponent returns the submarine not controlled by team.
func (m *MatchState) Opponent(team string) *Submarine {
	for _, other := range m.TeamOrder {
		if other != team {
			return m.Teams[other]
		}
	}
	return nil
}

// switchTurn hands the turn to the other team.
func (m *MatchState) switchTurn() {
	for _, other := range m.TeamOrder {
		if other != m.CurrentTurn {
			m.CurrentTurn = other
			return
		}
	}
}

// Clone returns a deep copy of the match state.
func (m *MatchState) Clone() *MatchState {
	c := &MatchState{
		ID:          m.ID,
		Board:       m.Board.Clone(),
		Teams:       make(map[string]*Submarine, len(m.Teams)),
		TeamOrder:   make([]string, len(m.TeamOrder)),
		CurrentTurn: m.CurrentTurn,
		Finished:    m.Finished,
		Winner:      m.Winner,
	}
	copy(c.TeamOrder, m.TeamOrder)
	for team, sub := range m.Teams {
		c.Teams[team] = sub.clone()
	}
	return c
}

// validate enforces the structural invariants a stored record must satisfy
// before the engine will operate on it.
func (m *MatchState) validate() error {
	if len(m.TeamOrder) != 2 || len(m.Teams) != 2 {
		return rules.RuleErrorf("match %s must have exactly two teams", m.ID)
	}
	for _, team := range m.TeamOrder {
		sub, ok := m.Teams[team]
		if !ok {
			return rules.RuleErrorf("match %s is missing submarine for team %q", m.ID, team)
		}
		if sub.Health < 0 || sub.Health > MaxHealth {
			return rules.RuleErrorf("team %q health %d out of range", team, sub.Health)
		}
		for _, sys := range rules.Systems() {
			gauge := sub.Gauges[sys]
			if gauge < 0 || gauge > sys.Threshold() {
				return rules.RuleErrorf("team %q gauge %s=%d out of range", team, sys, gauge)
			}
			if sub.Systems[sys] != (gauge == sys.Threshold()) {
				return rules.RuleErrorf("team %q system %s ready flag disagrees with gauge", team, sys)
			}
		}
	}
	if _, ok := m.Teams[m.CurrentTurn]; !ok {
		return rules.RuleErrorf("match %s turn owner %q is not a team", m.ID, m.CurrentTurn)
	}
	return nil
}
