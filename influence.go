package primordium

// InfluenceGrid tracks, per cell, the dominant lineage (argmax energy among
// nearby agents) and its intensity. Updated from the tick snapshot before
// deposits are applied (spec §4.2). Grounded on the teacher's
// colony_warfare.go territory-control idea, generalized to a continuous
// per-cell field.
type InfluenceGrid struct {
	Width, Height int
	Dominant      []LineageID
	Intensity     []float64
}

func NewInfluenceGrid(width, height int) *InfluenceGrid {
	n := width * height
	return &InfluenceGrid{
		Width: width, Height: height,
		Dominant:  make([]LineageID, n),
		Intensity: make([]float64, n),
	}
}

func (g *InfluenceGrid) index(cx, cy int) int { return cy*g.Width + cx }

func (g *InfluenceGrid) clampCell(x, y float64) (int, int) {
	cx, cy := int(x), int(y)
	if cx < 0 {
		cx = 0
	}
	if cy < 0 {
		cy = 0
	}
	if cx >= g.Width {
		cx = g.Width - 1
	}
	if cy >= g.Height {
		cy = g.Height - 1
	}
	return cx, cy
}

// Rebuild recomputes every cell's dominant lineage from a snapshot's
// per-agent (position, lineage, energy) tuples. Agents are iterated in the
// order given, and ties are broken by iteration order, so callers must pass
// agents in a stable (e.g. id-sorted) order for determinism.
func (g *InfluenceGrid) Rebuild(positions []Vector2D, lineages []LineageID, energies []float64) {
	best := make([]float64, len(g.Dominant))
	for i := range g.Dominant {
		g.Dominant[i] = NilLineageID
		g.Intensity[i] = 0
		best[i] = -1
	}
	for i, p := range positions {
		if !p.IsFinite() {
			continue
		}
		cx, cy := g.clampCell(p.X, p.Y)
		idx := g.index(cx, cy)
		if energies[i] > best[idx] {
			best[idx] = energies[i]
			g.Dominant[idx] = lineages[i]
			g.Intensity[idx] = energies[i]
		}
	}
}

// At returns the dominant lineage and intensity at (x, y).
func (g *InfluenceGrid) At(x, y float64) (LineageID, float64) {
	cx, cy := g.clampCell(x, y)
	idx := g.index(cx, cy)
	return g.Dominant[idx], g.Intensity[idx]
}
