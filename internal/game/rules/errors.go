package rules

import (
	"errors"
	"fmt"
)

// Code tags a rule violation so callers can react without parsing messages.
type Code string

const (
	// CodeTurn: a team acted outside its turn.
	CodeTurn Code = "TURN"
	// CodeInput: a malformed argument (unknown direction, unknown system).
	CodeInput Code = "INPUT"
	// CodeInvalidMove: illegal geometry (off-board, island, self-crossing,
	// non-adjacent mine, out-of-range torpedo).
	CodeInvalidMove Code = "INVALID_MOVE"
	// CodeRule: a non-geometric precondition violation (bad team count,
	// unready system, acting after the match closed).
	CodeRule Code = "RULE"
	// CodeFormat: a malformed board source.
	CodeFormat Code = "FORMAT"
)

// Error is a tagged, recoverable rule violation. Operations that fail with an
// Error have not mutated any state.
type Error struct {
	Code   Code
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// TurnErrorf reports an action attempted outside the acting team's turn.
func TurnErrorf(format string, args ...any) *Error {
	return newError(CodeTurn, format, args...)
}

// InputErrorf reports a malformed argument.
func InputErrorf(format string, args ...any) *Error {
	return newError(CodeInput, format, args...)
}

// InvalidMoveErrorf reports illegal geometry.
func InvalidMoveErrorf(format string, args ...any) *Error {
	return newError(CodeInvalidMove, format, args...)
}

// RuleErrorf reports a non-geometric precondition violation.
func RuleErrorf(format string, args ...any) *Error {
	return newError(CodeRule, format, args...)
}

// FormatErrorf reports a malformed board source.
func FormatErrorf(format string, args ...any) *Error {
	return newError(CodeFormat, format, args...)
}

// CodeOf extracts the tag from err, or "" when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
