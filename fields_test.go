package primordium

import "testing"

func TestScalarGridDepositSaturatesAtCeiling(t *testing.T) {
	g := NewScalarGrid(10, 10, 0, 0, 5)
	g.Deposit(3, 3, 10)
	if v := g.At(3, 3); v != 5 {
		t.Errorf("expected deposit to saturate at ceiling 5, got %v", v)
	}
}

func TestScalarGridDepositIgnoresNonFinite(t *testing.T) {
	g := NewScalarGrid(10, 10, 0, 0, 5)
	var zero float64
	g.Deposit(3, 3, 1/zero)
	if v := g.At(3, 3); v != 0 {
		t.Errorf("expected non-finite deposit to be ignored, got %v", v)
	}
}

func TestScalarGridUpdateDecaysTowardZero(t *testing.T) {
	g := NewScalarGrid(10, 10, 0.5, 0, 10)
	g.Deposit(5, 5, 4)
	g.Update()
	if v := g.At(5, 5); v >= 4 {
		t.Errorf("expected decay to shrink the cell value, got %v", v)
	}
}

func TestScalarGridUpdateDiffusesToNeighbours(t *testing.T) {
	g := NewScalarGrid(10, 10, 0, 0.5, 10)
	g.Deposit(5, 5, 4)
	g.Update()
	if v := g.At(4, 5); v <= 0 {
		t.Errorf("expected diffusion to raise a neighbouring cell above zero, got %v", v)
	}
	if v := g.At(5, 5); v >= 4 {
		t.Errorf("expected the source cell to lose value to diffusion, got %v", v)
	}
}

func TestScalarGridBoundaryIsDirichlet(t *testing.T) {
	g := NewScalarGrid(3, 3, 0, 0.5, 10)
	g.Deposit(0, 0, 4)
	g.Update()
	// The corner's four neighbours are two in-bounds cells (both 0) and two
	// out-of-bounds cells that count as 0, not wrapped values from the
	// opposite edge: next = 4 + (0-4)*0.5 = 2.
	if v := g.At(0, 0); v != 2 {
		t.Errorf("expected Dirichlet boundary result of 2 at the corner, got %v", v)
	}
	if v := g.At(2, 2); v != 0 {
		t.Errorf("expected the far corner to remain unaffected after one step, got %v", v)
	}
}

func TestScalarGridGradientPointsTowardHigherNeighbour(t *testing.T) {
	g := NewScalarGrid(10, 10, 0, 0, 10)
	g.Deposit(6, 5, 5)
	dir := g.Gradient(5, 5)
	if dir.X <= 0 {
		t.Errorf("expected gradient to point toward the higher-value neighbour at +x, got %v", dir)
	}
}

func TestPheromoneFieldChannelsAreIndependent(t *testing.T) {
	f := NewPheromoneField(10, 10)
	f.Deposit(5, 5, PheromoneFood, 3)
	if f.Channels[PheromoneTribe].At(5, 5) != 0 {
		t.Errorf("expected depositing into PheromoneFood not to affect PheromoneTribe")
	}
	if f.Channels[PheromoneFood].At(5, 5) != 3 {
		t.Errorf("expected PheromoneFood channel to record the deposit")
	}
}
