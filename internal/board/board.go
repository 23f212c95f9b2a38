// Package board holds the static water/island classification of a match grid.
// A Board is immutable once loaded; every match works against its own snapshot.
package board

import (
	"math/rand"
	"os"
	"strings"

	"github.com/sonarfleet/sonar-server-go/internal/game/rules"
)

// Cell classifies one grid square.
type Cell uint8

const (
	CellWater Cell = iota
	CellIsland
)

const (
	runeWater  = '.'
	runeIsland = 'X'
)

// Board is a rectangular water/island grid. Coordinates are (x, y) with the
// origin at the top-left corner.
type Board struct {
	width  int
	height int
	cells  [][]Cell
}

// Parse builds a Board from a textual grid description: one row per line,
// 'X' for island, '.' for water. All rows must have the same length.
func Parse(src string) (*Board, error) {
	lines := strings.Split(strings.TrimRight(src, "\n"), "\n")
	if len(lines) == 1 && strings.TrimSpace(lines[0]) == "" {
		return nil, rules.FormatErrorf("board source is empty")
	}

	width := len(strings.TrimSpace(lines[0]))
	if width == 0 {
		return nil, rules.FormatErrorf("board row 0 is empty")
	}

	cells := make([][]Cell, len(lines))
	for y, line := range lines {
		row := strings.TrimSpace(line)
		if len(row) != width {
			return nil, rules.FormatErrorf("board row %d has length %d, want %d", y, len(row), width)
		}
		cells[y] = make([]Cell, width)
		for x, r := range row {
			switch r {
			case runeWater:
				cells[y][x] = CellWater
			case runeIsland:
				cells[y][x] = CellIsland
			default:
				return nil, rules.FormatErrorf("board row %d has unknown cell %q at column %d", y, string(r), x)
			}
		}
	}

	return &Board{width: width, height: len(lines), cells: cells}, nil
}

// LoadFile reads and parses a board file.
func LoadFile(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rules.FormatErrorf("read board file %s: %v", path, err)
	}
	return Parse(string(data))
}

// Width returns the number of columns.
func (b *Board) Width() int { return b.width }

// Height returns the number of rows.
func (b *Board) Height() int { return b.height }

// IsWater reports whether (x, y) is a passable water cell. Out-of-range
// coordinates are not water: the boundary is impassable, not an error.
func (b *Board) IsWater(x, y int) bool {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return false
	}
	return b.cells[y][x] == CellWater
}

// Render returns the textual grid, the same format Parse accepts.
func (b *Board) Render() string {
	var sb strings.Builder
	sb.Grow((b.width + 1) * b.height)
	for y, row := range b.cells {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range row {
			if c == CellIsland {
				sb.WriteByte(runeIsland)
			} else {
				sb.WriteByte(runeWater)
			}
		}
	}
	return sb.String()
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	cells := make([][]Cell, b.height)
	for y := range b.cells {
		cells[y] = make([]Cell, b.width)
		copy(cells[y], b.cells[y])
	}
	return &Board{width: b.width, height: b.height, cells: cells}
}

// RandomWaterCell picks a uniformly random water cell. It returns false when
// the board has no water at all.
func (b *Board) RandomWaterCell(rng *rand.Rand) (int, int, bool) {
	water := make([][2]int, 0, b.width*b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if b.cells[y][x] == CellWater {
				water = append(water, [2]int{x, y})
			}
		}
	}
	if len(water) == 0 {
		return 0, 0, false
	}
	pick := water[rng.Intn(len(water))]
	return pick[0], pick[1], true
}
