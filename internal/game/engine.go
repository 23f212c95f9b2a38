package game

import (
	"go.uber.org/zap"

	"github.com/sonarfleet/sonar-server-go/internal/game/rules"
)

// torpedoRange is how far a torpedo travels in a straight line.
const torpedoRange = 4

// Engine validates and applies the game's operations against a loaded
// MatchState. Every operation checks all of its preconditions before the
// first write, so a failed call never leaves a partial mutation behind.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a rule engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// guard runs the checks shared by every mutating operation: the match must
// still be open, the team must exist, and the team must hold the turn.
func (e *Engine) guard(m *MatchState, team string) (*Submarine, error) {
	if m.Finished {
		return nil, rules.RuleErrorf("match is over: %s won", m.Winner)
	}
	sub, ok := m.Teams[team]
	if !ok {
		return nil, rules.InputErrorf("unknown team %q", team)
	}
	if m.CurrentTurn != team {
		return nil, rules.TurnErrorf("it is not %s's turn", team)
	}
	return sub, nil
}

// Move advances the submarine one cell. The destination must be in-bounds
// water the submarine has not visited since it last surfaced. Moving charges
// every not-yet-ready gauge by one and does not end the turn; the turn ends
// with the crew's follow-up action (charge, surface, or a weapon).
func (e *Engine) Move(m *MatchState, team, direction string) error {
	sub, err := e.guard(m, team)
	if err != nil {
		return err
	}

	dir, err := rules.ParseDirection(direction)
	if err != nil {
		return err
	}

	dx, dy := dir.Delta()
	dest := Position{X: sub.Position.X + dx, Y: sub.Position.Y + dy}

	if !m.Board.IsWater(dest.X, dest.Y) {
		return rules.InvalidMoveErrorf("cannot move %s to (%d,%d): off board or island", dir, dest.X, dest.Y)
	}
	if sub.OnPath(dest) {
		return rules.InvalidMoveErrorf("cannot cross own path at (%d,%d)", dest.X, dest.Y)
	}

	sub.Position = dest
	sub.Path = append(sub.Path, dest)
	sub.Surfaced = false
	for _, sys := range rules.Systems() {
		sub.chargeGauge(sys)
	}

	e.logger.Debug("submarine moved",
		zap.String("match_id", m.ID),
		zap.String("team", team),
		zap.String("direction", dir.String()),
		zap.Int("x", dest.X),
		zap.Int("y", dest.Y),
	)
	return nil
}

// ChargeSystem adds one charge to the chosen system. Ends the turn.
func (e *Engine) ChargeSystem(m *MatchState, team, system string) error {
	sub, err := e.guard(m, team)
	if err != nil {
		return err
	}

	sys, err := rules.ParseSystem(system)
	if err != nil {
		return err
	}
	if sub.Systems[sys] {
		return rules.RuleErrorf("system %s is already ready", sys)
	}

	sub.chargeGauge(sys)
	m.switchTurn()

	e.logger.Debug("system charged",
		zap.String("match_id", m.ID),
		zap.String("team", team),
		zap.String("system", sys.String()),
		zap.Int("gauge", sub.Gauges[sys]),
		zap.Bool("ready", sub.Systems[sys]),
	)
	return nil
}

// Surface clears the submarine's path, permitting revisits of previously
// visited cells. Systems, mines, and health are untouched. Ends the turn.
func (e *Engine) Surface(m *MatchState, team string) error {
	sub, err := e.guard(m, team)
	if err != nil {
		return err
	}

	sub.Path = make([]Position, 0)
	sub.Surfaced = true
	m.switchTurn()

	e.logger.Debug("submarine surfaced",
		zap.String("match_id", m.ID),
		zap.String("team", team),
	)
	return nil
}

// DropMine places a mine on an orthogonally adjacent water cell that is not
// on the submarine's path. The mine system discharges. Ends the turn.
func (e *Engine) DropMine(m *MatchState, team string, x, y int) error {
	sub, err := e.guard(m, team)
	if err != nil {
		return err
	}

	if !sub.Systems[rules.SystemMine] {
		return rules.RuleErrorf("mine system is not ready")
	}

	target := Position{X: x, Y: y}
	if Manhattan(sub.Position, target) != 1 {
		return rules.InvalidMoveErrorf("mines can only be dropped on adjacent cells")
	}
	if !m.Board.IsWater(x, y) {
		return rules.InvalidMoveErrorf("cannot drop a mine at (%d,%d): off board or island", x, y)
	}
	if sub.OnPath(target) {
		return rules.InvalidMoveErrorf("cannot drop a mine on own path at (%d,%d)", x, y)
	}
	if sub.HasMineAt(target) {
		return rules.InvalidMoveErrorf("a mine is already placed at (%d,%d)", x, y)
	}

	sub.Mines = append(sub.Mines, target)
	sub.discharge(rules.SystemMine)
	m.switchTurn()

	e.logger.Debug("mine dropped",
		zap.String("match_id", m.ID),
		zap.String("team", team),
		zap.Int("x", x),
		zap.Int("y", y),
	)
	return nil
}

// TriggerMine detonates one of the team's own mines. The mine is removed
// whether or not it hits anything. Ends the turn.
func (e *Engine) TriggerMine(m *MatchState, team string, x, y int) error {
	sub, err := e.guard(m, team)
	if err != nil {
		return err
	}

	target := Position{X: x, Y: y}
	if !sub.HasMineAt(target) {
		return rules.InvalidMoveErrorf("no mine at (%d,%d)", x, y)
	}

	sub.removeMine(target)
	dealt := e.applyDamage(m, team, target)
	m.switchTurn()

	e.logger.Debug("mine triggered",
		zap.String("match_id", m.ID),
		zap.String("team", team),
		zap.Int("x", x),
		zap.Int("y", y),
		zap.Int("damage", dealt),
	)
	return nil
}

// LaunchTorpedo fires at a cell on the submarine's row or column within
// range. There is no line-of-sight check: islands do not block torpedoes.
// The torpedo discharges whether or not it hits. Ends the turn.
func (e *Engine) LaunchTorpedo(m *MatchState, team string, x, y int) error {
	sub, err := e.guard(m, team)
	if err != nil {
		return err
	}

	if !sub.Systems[rules.SystemTorpedo] {
		return rules.RuleErrorf("torpedo system is not ready")
	}

	target := Position{X: x, Y: y}
	if !inTorpedoRange(sub.Position, target) {
		return rules.InvalidMoveErrorf("torpedo can only reach up to %d cells in a straight line", torpedoRange)
	}

	sub.discharge(rules.SystemTorpedo)
	dealt := e.applyDamage(m, team, target)
	m.switchTurn()

	e.logger.Debug("torpedo launched",
		zap.String("match_id", m.ID),
		zap.String("team", team),
		zap.Int("x", x),
		zap.Int("y", y),
		zap.Int("damage", dealt),
	)
	return nil
}

// applyDamage applies the shared damage function to the attacker's opponent
// and closes the match when the opponent's hull gives out.
func (e *Engine) applyDamage(m *MatchState, attacker string, impact Position) int {
	other := m.Opponent(attacker)
	dmg := Damage(impact, other.Position)
	if dmg == 0 {
		return 0
	}

	other.Health -= dmg
	if other.Health <= 0 {
		other.Health = 0
		m.Finished = true
		m.Winner = attacker
		e.logger.Info("submarine sunk",
			zap.String("match_id", m.ID),
			zap.String("winner", attacker),
			zap.String("sunk", other.Team),
		)
	}
	return dmg
}

// Damage is the single damage function shared by mines and torpedoes:
// 2 on a direct hit, 1 on a splash (Manhattan distance 1), 0 otherwise.
func Damage(impact, other Position) int {
	switch Manhattan(impact, other) {
	case 0:
		return 2
	case 1:
		return 1
	default:
		return 0
	}
}

func inTorpedoRange(from, target Position) bool {
	if from.X != target.X && from.Y != target.Y {
		return false
	}
	return Manhattan(from, target) <= torpedoRange
}
