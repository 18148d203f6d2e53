package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/evosim-core/primordium"
)

func main() {
	var (
		help       = flag.Bool("help", false, "Show help message")
		width      = flag.Float64("width", 200.0, "World width")
		height     = flag.Float64("height", 200.0, "World height")
		cellSize   = flag.Float64("cell-size", 5.0, "Spatial grid cell size")
		population = flag.Int("population", 200, "Initial population size")
		seed       = flag.Uint64("seed", 0, "World seed (0 draws from the current time)")
		ticks      = flag.Uint64("ticks", 1000, "Number of ticks to run before exiting")
		loadState  = flag.String("load", "", "Load simulation state from a save file")
		saveState  = flag.String("save", "", "Save simulation state to a file and exit")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		fmt.Println("primordium - deterministic artificial-life simulation engine")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Printf("  %s [options]\n", os.Args[0])
		fmt.Println()
		flag.PrintDefaults()
		return
	}
	if *version {
		fmt.Println("primordium v1.0 (core simulation engine)")
		return
	}

	resolvedSeed := *seed
	if resolvedSeed == 0 {
		resolvedSeed = uint64(time.Now().UnixNano())
	}

	var world *primordium.World
	if *loadState != "" {
		data, err := os.ReadFile(*loadState)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading save file: %v\n", err)
			os.Exit(1)
		}
		world, err = primordium.Load(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading state: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg := primordium.DefaultConfig()
		cfg.World.Width = *width
		cfg.World.Height = *height
		cfg.World.CellSize = *cellSize
		cfg.World.Seed = resolvedSeed
		world = primordium.NewWorld(cfg, *population)
	}

	for i := uint64(0); i < *ticks; i++ {
		world.Step()
	}

	if *saveState != "" {
		data, err := primordium.Save(world)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error saving state: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*saveState, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing save file: %v\n", err)
			os.Exit(1)
		}
		return
	}

	snap := primordium.BuildWorldSnapshot(world)
	fmt.Printf("tick=%d population=%d hash=%s\n", snap.Tick, len(snap.Agents), snap.DeterministicHash)
}
