package rules

import "strings"

// Direction is one of the four orthogonal headings. The grid origin is the
// top-left corner, so north decreases y.
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
	East  Direction = "E"
	West  Direction = "W"
)

var directionDeltas = map[Direction][2]int{
	North: {0, -1},
	South: {0, 1},
	East:  {1, 0},
	West:  {-1, 0},
}

// ParseDirection maps a wire identifier to a Direction.
func ParseDirection(name string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := directionDeltas[d]; !ok {
		return "", InputErrorf("invalid direction %q: use N, S, E, or W", name)
	}
	return d, nil
}

// Delta returns the (dx, dy) offset of one step in this direction.
func (d Direction) Delta() (int, int) {
	delta := directionDeltas[d]
	return delta[0], delta[1]
}

func (d Direction) String() string {
	return string(d)
}
