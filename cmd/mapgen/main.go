// mapgen generates random board files for the sonar server.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/sonarfleet/sonar-server-go/internal/board"
)

func main() {
	var (
		width   = flag.Int("width", 15, "board width")
		height  = flag.Int("height", 15, "board height")
		islands = flag.Int("islands", 6, "number of islands")
		minSize = flag.Int("min-size", 1, "minimum island size")
		maxSize = flag.Int("max-size", 8, "maximum island size")
		seed    = flag.Int64("seed", 0, "random seed (0 = time-based)")
		out     = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	b, err := board.Generate(rng, board.GenerateOptions{
		Width:         *width,
		Height:        *height,
		Islands:       *islands,
		MinIslandSize: *minSize,
		MaxIslandSize: *maxSize,
	})
	if err != nil {
		log.Fatalf("Failed to generate board: %v", err)
	}

	if *out == "" {
		fmt.Println(b.Render())
		return
	}

	if err := os.WriteFile(*out, []byte(b.Render()+"\n"), 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}
	fmt.Printf("Wrote %dx%d board to %s (seed %d)\n", *width, *height, *out, *seed)
}
