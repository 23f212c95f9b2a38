package board

import (
	"math/rand"

	"github.com/sonarfleet/sonar-server-go/internal/game/rules"
)

// GenerateOptions controls random board generation.
type GenerateOptions struct {
	Width         int
	Height        int
	Islands       int
	MinIslandSize int
	MaxIslandSize int
}

// Generate builds a random board by seeding islands and growing each one
// through frontier expansion until it reaches a random target size. Attempts
// are bounded so a crowded grid cannot loop forever.
func Generate(rng *rand.Rand, opts GenerateOptions) (*Board, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, rules.FormatErrorf("board dimensions %dx%d are invalid", opts.Width, opts.Height)
	}
	if opts.Islands < 0 {
		return nil, rules.FormatErrorf("island count %d is invalid", opts.Islands)
	}
	minSize := opts.MinIslandSize
	if minSize < 1 {
		minSize = 1
	}
	maxSize := opts.MaxIslandSize
	if maxSize < minSize {
		maxSize = minSize
	}

	cells := make([][]Cell, opts.Height)
	for y := range cells {
		cells[y] = make([]Cell, opts.Width)
	}
	b := &Board{width: opts.Width, height: opts.Height, cells: cells}

	islandCount := 0
	attempts := 0
	maxAttempts := opts.Islands * 20

	for islandCount < opts.Islands && attempts < maxAttempts {
		attempts++

		startX := rng.Intn(opts.Width)
		startY := rng.Intn(opts.Height)
		if cells[startY][startX] == CellIsland {
			continue
		}

		targetSize := minSize + rng.Intn(maxSize-minSize+1)

		cells[startY][startX] = CellIsland
		grown := 1

		var frontier [][2]int
		for _, n := range neighbors(startX, startY) {
			if b.IsWater(n[0], n[1]) {
				frontier = append(frontier, n)
			}
		}

		for grown < targetSize && len(frontier) > 0 {
			idx := rng.Intn(len(frontier))
			next := frontier[idx]
			frontier = append(frontier[:idx], frontier[idx+1:]...)

			if cells[next[1]][next[0]] == CellIsland {
				continue
			}
			cells[next[1]][next[0]] = CellIsland
			grown++

			for _, n := range neighbors(next[0], next[1]) {
				if b.IsWater(n[0], n[1]) && !containsCell(frontier, n) {
					frontier = append(frontier, n)
				}
			}
		}

		islandCount++
	}

	return b, nil
}

func neighbors(x, y int) [][2]int {
	return [][2]int{{x + 1, y}, {x - 1, y}, {x, y - 1}, {x, y + 1}}
}

func containsCell(cells [][2]int, c [2]int) bool {
	for _, have := range cells {
		if have == c {
			return true
		}
	}
	return false
}
