package primordium

import (
	"golang.org/x/sync/errgroup"
)

// Entry is one point indexed by the spatial grid: a position plus an opaque
// key (an index into whatever slice the caller is indexing — agents or
// food).
type Entry struct {
	X, Y float64
	Key  int
}

// Grid is a uniform spatial hash with a flat CSR-like layout: cellOffsets is
// a prefix-sum over per-cell counts, entityIndices holds the Entry.Key
// values grouped by cell. Insertion order within a cell is fixed by the
// serial fill pass, which is what makes query results reproducible (spec
// §4.1, §5).
type Grid struct {
	CellSize float64
	Width    float64
	Height   float64
	cols     int
	rows     int

	cellOffsets []int
	entityIndices []int

	lineageCentroid map[LineageID]Vector2D
	lineageCount    map[LineageID]int
}

// NewGrid constructs an empty grid over width x height with the given cell
// size (default 5 units per spec §3).
func NewGrid(width, height, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 5
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Grid{CellSize: cellSize, Width: width, Height: height, cols: cols, rows: rows}
}

func (g *Grid) cellIndex(x, y float64) int {
	cx := int(x / g.CellSize)
	cy := int(y / g.CellSize)
	if cx < 0 {
		cx = 0
	}
	if cy < 0 {
		cy = 0
	}
	if cx >= g.cols {
		cx = g.cols - 1
	}
	if cy >= g.rows {
		cy = g.rows - 1
	}
	return cy*g.cols + cx
}

// Build discards prior state and rebuilds the index from entries. Per-cell
// counts are computed with a bounded fork-join pass, prefix-summed
// serially, then filled in a single serial pass — the serial fill is what
// guarantees reproducible intra-cell ordering (spec §4.1).
func (g *Grid) Build(entries []Entry) {
	numCells := g.cols * g.rows
	counts := make([]int, numCells)

	valid := make([]bool, len(entries))
	shardCount := 8
	if shardCount > len(entries) {
		shardCount = len(entries)
	}
	if shardCount > 0 {
		shardCounts := make([][]int, shardCount)
		var eg errgroup.Group
		shardSize := (len(entries) + shardCount - 1) / shardCount
		for s := 0; s < shardCount; s++ {
			s := s
			lo := s * shardSize
			hi := lo + shardSize
			if hi > len(entries) {
				hi = len(entries)
			}
			if lo >= hi {
				continue
			}
			shardCounts[s] = make([]int, numCells)
			eg.Go(func() error {
				local := shardCounts[s]
				for i := lo; i < hi; i++ {
					e := entries[i]
					if !Finite(e.X) || !Finite(e.Y) {
						continue
					}
					valid[i] = true
					local[g.cellIndex(e.X, e.Y)]++
				}
				return nil
			})
		}
		_ = eg.Wait()
		for _, local := range shardCounts {
			if local == nil {
				continue
			}
			for c, n := range local {
				counts[c] += n
			}
		}
	}

	g.cellOffsets = make([]int, numCells+1)
	for c := 0; c < numCells; c++ {
		g.cellOffsets[c+1] = g.cellOffsets[c] + counts[c]
	}
	total := g.cellOffsets[numCells]
	g.entityIndices = make([]int, total)

	cursor := append([]int(nil), g.cellOffsets[:numCells]...)
	g.lineageCentroid = make(map[LineageID]Vector2D)
	g.lineageCount = make(map[LineageID]int)

	for i, e := range entries {
		if !valid[i] {
			continue
		}
		c := g.cellIndex(e.X, e.Y)
		g.entityIndices[cursor[c]] = e.Key
		cursor[c]++
	}
}

// BuildKinCentroids records per-lineage centroids in the same serial pass
// semantics as Build (called by the caller with lineage-tagged entries,
// kept separate so agents and food can share Build without lineage info).
func (g *Grid) BuildKinCentroids(lineages []LineageID, xs, ys []float64) {
	g.lineageCentroid = make(map[LineageID]Vector2D)
	g.lineageCount = make(map[LineageID]int)
	sums := make(map[LineageID]Vector2D)
	for i, lin := range lineages {
		if !Finite(xs[i]) || !Finite(ys[i]) {
			continue
		}
		s := sums[lin]
		s.X += xs[i]
		s.Y += ys[i]
		sums[lin] = s
		g.lineageCount[lin]++
	}
	for lin, s := range sums {
		n := float64(g.lineageCount[lin])
		if n == 0 {
			continue
		}
		g.lineageCentroid[lin] = Vector2D{X: s.X / n, Y: s.Y / n}
	}
}

// QueryCallback invokes fn(key) for every entry inside the AABB (x±r, y±r),
// in cell-major order.
func (g *Grid) QueryCallback(x, y, r float64, fn func(key int)) {
	if !Finite(x) || !Finite(y) || g.cellOffsets == nil {
		return
	}
	if r > g.Width && r > g.Height {
		r = maxF(g.Width, g.Height)
	}
	minCX, maxCX := g.clampCol(x-r), g.clampCol(x+r)
	minCY, maxCY := g.clampRow(y-r), g.clampRow(y+r)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			c := cy*g.cols + cx
			start, end := g.cellOffsets[c], g.cellOffsets[c+1]
			for i := start; i < end; i++ {
				fn(g.entityIndices[i])
			}
		}
	}
}

func (g *Grid) clampCol(x float64) int {
	c := int(x / g.CellSize)
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *Grid) clampRow(y float64) int {
	r := int(y / g.CellSize)
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// CountNearby returns the number of indexed entries within radius r of (x,y).
func (g *Grid) CountNearby(x, y, r float64) int {
	n := 0
	g.QueryCallback(x, y, r, func(int) { n++ })
	return n
}

// CountNearbyKin counts entries within radius r whose lineage (looked up via
// lineageOf) equals lineage.
func (g *Grid) CountNearbyKin(x, y, r float64, lineage LineageID, lineageOf func(key int) LineageID) int {
	n := 0
	g.QueryCallback(x, y, r, func(key int) {
		if lineageOf(key) == lineage {
			n++
		}
	})
	return n
}

// GetLineageCentroid returns the mean position of all agents of lineage,
// computed in the serial fill pass.
func (g *Grid) GetLineageCentroid(lineage LineageID) (Vector2D, bool) {
	c, ok := g.lineageCentroid[lineage]
	return c, ok
}

// SenseKin returns a unit vector toward the lineage's centroid if it lies
// within radius r, or the zero vector otherwise.
func (g *Grid) SenseKin(x, y, r float64, lineage LineageID) Vector2D {
	c, ok := g.GetLineageCentroid(lineage)
	if !ok {
		return Vector2D{}
	}
	delta := c.Sub(Vector2D{X: x, Y: y})
	if delta.Length() > r {
		return Vector2D{}
	}
	return delta.Normalize()
}
