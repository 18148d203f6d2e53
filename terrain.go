package primordium

import (
	"golang.org/x/sync/errgroup"

	"github.com/aquilax/go-perlin"
)

// CellType enumerates terrain cell kinds (spec §3).
type CellType int

const (
	Plains CellType = iota
	Mountain
	River
	Oasis
	Barren
	Wall
	Forest
	Desert
	Nest
	Outpost
)

// OutpostSpec names an outpost's service specialization (spec §4.7).
type OutpostSpec int

const (
	OutpostStandard OutpostSpec = iota
	OutpostSilo
	OutpostNursery
)

// Cell is one terrain grid cell.
type Cell struct {
	Type             CellType
	OriginalType     CellType
	Elevation        float64
	Fertility        float64 // [0,1]
	Stability        float64
	BiomassAccum     float64
	PlantBiomass     float64
	Owner            LineageID
	HasOwner         bool
	EnergyStore      float64
	OutpostSpec      OutpostSpec
	OutpostLevel     int
	LocalMoisture    float64 // [0,1]
	LocalCooling     float64 // [0,1]
	dustBowlTimer    int
}

// Terrain is the static-ish substrate with slow dynamics: moisture/cooling
// diffusion, fertility recovery, biomass accumulation, probabilistic type
// transitions (spec §4.3). Grounded on the teacher's biome_boundaries.go
// (type-transition rules) and cellular.go (diffusion-style loop).
type Terrain struct {
	Width, Height int
	Cells         []Cell

	OutpostIndices map[int]bool
	dirty          bool

	hydrated []bool
}

// NewTerrain allocates a width x height terrain and seeds elevation (not
// moisture) deterministically from worldSeed using Perlin noise (pack:
// leemwalker-thousand-worlds geography/noise.go), then assigns an initial
// cell type from elevation thresholds.
func NewTerrain(width, height int, worldSeed int64) *Terrain {
	t := &Terrain{
		Width: width, Height: height,
		Cells:          make([]Cell, width*height),
		OutpostIndices: make(map[int]bool),
		hydrated:       make([]bool, width*height),
	}
	gen := perlin.NewPerlin(2, 2, 3, worldSeed)
	for cy := 0; cy < height; cy++ {
		for cx := 0; cx < width; cx++ {
			idx := cy*width + cx
			n := gen.Noise2D(float64(cx)*0.08, float64(cy)*0.08)
			elevation := (n + 1) / 2
			c := Cell{
				Elevation: elevation,
				Fertility: 0.4,
				Stability: 1,
			}
			switch {
			case elevation > 0.8:
				c.Type = Mountain
			case elevation > 0.7:
				c.Type = Forest
			case elevation < 0.2:
				c.Type = River
			case elevation < 0.28:
				c.Type = Desert
			default:
				c.Type = Plains
			}
			c.OriginalType = c.Type
			t.Cells[idx] = c
		}
	}
	t.dirty = true
	return t
}

func (t *Terrain) index(cx, cy int) int { return cy*t.Width + cx }

func (t *Terrain) inBounds(cx, cy int) bool {
	return cx >= 0 && cy >= 0 && cx < t.Width && cy < t.Height
}

func (t *Terrain) At(cx, cy int) *Cell { return &t.Cells[t.index(cx, cy)] }

// rebuildOutpostIndices restores the outpostIndices <-> cell-type invariant
// (spec invariant 5).
func (t *Terrain) rebuildOutpostIndices() {
	t.OutpostIndices = make(map[int]bool)
	for i, c := range t.Cells {
		if c.Type == Outpost {
			t.OutpostIndices[i] = true
		}
	}
	t.dirty = false
}

// SetCellType changes a cell's type and maintains the outpostIndices
// invariant directly, without a full rebuild.
func (t *Terrain) SetCellType(idx int, newType CellType) {
	was := t.Cells[idx].Type == Outpost
	t.Cells[idx].Type = newType
	isNow := newType == Outpost
	if was && !isNow {
		delete(t.OutpostIndices, idx)
	} else if !was && isNow {
		if t.OutpostIndices == nil {
			t.OutpostIndices = make(map[int]bool)
		}
		t.OutpostIndices[idx] = true
	}
}

func (t *Terrain) Fertilize(idx int, amount float64) {
	t.Cells[idx].Fertility = Clamp(t.Cells[idx].Fertility+amount, 0, 1)
}

func (t *Terrain) Deplete(idx int, amount float64) {
	t.Cells[idx].Fertility = Clamp(t.Cells[idx].Fertility-amount, 0, 1)
}

func (t *Terrain) AddBiomass(idx int, amount float64) {
	t.Cells[idx].PlantBiomass += amount
	if t.Cells[idx].PlantBiomass < 0 {
		t.Cells[idx].PlantBiomass = 0
	}
}

type transitionProposal struct {
	idx  int
	to   CellType
}

// Update runs one tick of the fixed-order terrain algorithm (spec §4.3),
// returning (total_plant_biomass, total_sequestration) for environment
// accounting.
func (t *Terrain) Update(worldSeed uint64, tick uint64, globalRecoveryRate float64) (float64, float64) {
	if t.dirty {
		t.rebuildOutpostIndices()
	}

	for i := range t.Cells {
		if t.Cells[i].dustBowlTimer > 0 {
			t.Cells[i].dustBowlTimer--
		}
	}

	for i := range t.Cells {
		c := &t.Cells[i]
		switch c.Type {
		case River:
			c.LocalMoisture = 1.0
		case Forest:
			c.LocalMoisture = Clamp(c.LocalMoisture+0.1, 0, 1)
		case Oasis:
			c.LocalMoisture = 1.0
		case Desert:
			c.LocalMoisture = Clamp(c.LocalMoisture*0.95, 0, 1)
		default:
			c.LocalMoisture = Clamp(c.LocalMoisture*0.98, 0, 1)
		}
	}

	t.diffusePass()
	t.computeHydration()

	numShards := 8
	if numShards > t.Height {
		numShards = t.Height
	}
	var totalBiomass, totalSeq float64
	var mu errgroup.Group
	rowBiomass := make([]float64, t.Height)
	rowSeq := make([]float64, t.Height)
	var proposalsPerRow = make([][]transitionProposal, t.Height)

	shardSize := (t.Height + numShards - 1) / maxInt(numShards, 1)
	for s := 0; s < numShards; s++ {
		lo := s * shardSize
		hi := lo + shardSize
		if hi > t.Height {
			hi = t.Height
		}
		if lo >= hi {
			continue
		}
		lo, hi := lo, hi
		mu.Go(func() error {
			for cy := lo; cy < hi; cy++ {
				rowSeed := worldSeed ^ tick ^ uint64(cy)
				rng := DeriveRNG(rowSeed, tick, uint64(cy), 0)
				var proposals []transitionProposal
				for cx := 0; cx < t.Width; cx++ {
					idx := t.index(cx, cy)
					c := &t.Cells[idx]

					hydrationBonus := 0.0
					if t.hydrated[idx] {
						hydrationBonus = 0.1
					}
					c.Fertility = Clamp(c.Fertility+globalRecoveryRate+c.LocalMoisture*0.05+hydrationBonus, 0, 1)
					c.PlantBiomass *= 0.995
					if c.PlantBiomass < 0 {
						c.PlantBiomass = 0
					}

					rowBiomass[cy] += c.PlantBiomass
					rowSeq[cy] += c.PlantBiomass * 0.02

					forestNeighbours := t.countNeighboursOfType(cx, cy, Forest)
					switch c.Type {
					case Plains:
						if c.PlantBiomass > 60 && c.Fertility > 0.6 {
							p := 0.001 + 0.01*float64(forestNeighbours)
							if rng.Bool(p) {
								proposals = append(proposals, transitionProposal{idx, Forest})
							}
						} else if c.Fertility < 0.05 {
							proposals = append(proposals, transitionProposal{idx, Desert})
						}
					case Forest:
						if c.Fertility < 0.3 || c.PlantBiomass < 20 {
							proposals = append(proposals, transitionProposal{idx, Plains})
						}
					case River:
						if t.countNeighboursOfType(cx, cy, River) == 0 && c.Fertility < 0.2 && rng.Bool(0.01) {
							proposals = append(proposals, transitionProposal{idx, Plains})
						}
					case Desert, Barren:
						if c.Fertility > 0.5 && rng.Bool(0.005) {
							proposals = append(proposals, transitionProposal{idx, c.OriginalType})
						}
					}
				}
				proposalsPerRow[cy] = proposals
			}
			return nil
		})
	}
	_ = mu.Wait()

	for cy := 0; cy < t.Height; cy++ {
		totalBiomass += rowBiomass[cy]
		totalSeq += rowSeq[cy]
		for _, p := range proposalsPerRow[cy] {
			t.SetCellType(p.idx, p.to)
		}
	}

	return totalBiomass, totalSeq
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (t *Terrain) diffusePass() {
	for cy := 0; cy < t.Height; cy++ {
		for cx := 0; cx < t.Width; cx++ {
			idx := t.index(cx, cy)
			c := &t.Cells[idx]
			moistSum, coolSum, n := 0.0, 0.0, 0
			for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nx, ny := cx+d[0], cy+d[1]
				if !t.inBounds(nx, ny) {
					continue
				}
				nc := t.At(nx, ny)
				moistSum += nc.LocalMoisture
				coolSum += nc.LocalCooling
				n++
			}
			if n == 0 {
				continue
			}
			avgMoist := moistSum / float64(n)
			avgCool := coolSum / float64(n)
			c.LocalMoisture = Clamp(0.9*c.LocalMoisture+0.25*avgMoist*0.1, 0, 1)
			c.LocalCooling = Clamp(0.9*c.LocalCooling+0.25*avgCool*0.1, 0, 1)
		}
	}
}

func (t *Terrain) computeHydration() {
	for cy := 0; cy < t.Height; cy++ {
		for cx := 0; cx < t.Width; cx++ {
			idx := t.index(cx, cy)
			hydrated := false
			for dy := -2; dy <= 2 && !hydrated; dy++ {
				for dx := -2; dx <= 2 && !hydrated; dx++ {
					nx, ny := cx+dx, cy+dy
					if !t.inBounds(nx, ny) {
						continue
					}
					if t.At(nx, ny).Type == River {
						hydrated = true
					}
				}
			}
			t.hydrated[idx] = hydrated
		}
	}
}

func (t *Terrain) countNeighboursOfType(cx, cy int, typ CellType) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := cx+dx, cy+dy
			if !t.inBounds(nx, ny) {
				continue
			}
			if t.At(nx, ny).Type == typ {
				n++
			}
		}
	}
	return n
}
