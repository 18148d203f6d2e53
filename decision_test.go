package primordium

import "testing"

func buildDecisionInputs(w *World) (*DecisionInputs, []Snapshot) {
	snaps := CaptureSnapshots(w.Agents)
	snapByIdx := make(map[int]*Snapshot, len(snaps))
	for i := range snaps {
		snapByIdx[snaps[i].Idx] = &snaps[i]
	}
	agentEntries := make([]Entry, len(w.Agents))
	for i, a := range w.Agents {
		agentEntries[i] = Entry{X: a.Position.X, Y: a.Position.Y, Key: i}
	}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.AgentGrid.Build(agentEntries)
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	foodEntries := make([]Entry, len(w.Food))
	for i, f := range w.Food {
		foodEntries[i] = Entry{X: f.Position.X, Y: f.Position.Y, Key: i}
	}
	w.FoodGrid.Build(foodEntries)

	in := &DecisionInputs{
		Agents: w.Agents, AgentGrid: w.AgentGrid, FoodGrid: w.FoodGrid, Food: w.Food,
		Pheromones: w.Pheromones, Sound: w.Sound, Pressure: w.Pressure, Terrain: w.Terrain,
		Lineages: w.Lineages, Snapshots: snaps, SnapshotByIdx: snapByIdx,
		WorldSeed: w.Config.World.Seed, Tick: 1, env: w.Environment,
		MaturityAgeBase: w.Config.Population.MaturityAgeBase,
	}
	return in, snaps
}

func TestCaptureSnapshotsExcludesDeadAgents(t *testing.T) {
	alive := newTestAgent(50, 100)
	dead := newTestAgent(50, 100)
	dead.Alive = false

	snaps := CaptureSnapshots([]*Agent{alive, dead})
	if len(snaps) != 1 {
		t.Fatalf("expected exactly 1 live snapshot, got %d", len(snaps))
	}
	if snaps[0].ID != alive.ID {
		t.Errorf("expected the surviving snapshot to belong to the alive agent")
	}
}

func TestGatherInputsFoodDirectionPointsTowardNearestFood(t *testing.T) {
	w := NewWorld(smallConfig(20), 1)
	a := w.Agents[0]
	a.Position = Vector2D{X: 10, Y: 10}
	a.Physics.SensingRange = 15
	w.Food = []Food{{Position: Vector2D{X: 13, Y: 10}, Value: 10, NutrientType: 0.5}}

	in, snaps := buildDecisionInputs(w)
	inputs := GatherInputs(a, &snaps[0], in)

	if inputs[0] <= 0 {
		t.Errorf("expected a positive X component pointing toward food at +x, got %v", inputs[0])
	}
}

func TestUpdateRankDriftsTowardOne(t *testing.T) {
	w := NewWorld(smallConfig(21), 1)
	a := w.Agents[0]
	a.Intel.Rank = 0
	in, snaps := buildDecisionInputs(w)

	UpdateRank(a, &snaps[0], in)
	if a.Intel.Rank <= 0 {
		t.Errorf("expected rank to drift upward with no nearby same-lineage competitors, got %v", a.Intel.Rank)
	}
}

func TestApplyHebbianNoopsOnZeroLearningRate(t *testing.T) {
	a := newTestAgent(50, 100)
	g := a.Intel.Genotype.Get()
	g.Brain.LearningRate = 0
	g.Brain.Connections = []Connection{{From: 0, To: NumInputs, Weight: 1, Enabled: true}}
	a.Metabolism.PrevEnergy = 10
	a.Metabolism.Energy = 20

	ApplyHebbian(a)
	if a.Intel.Genotype.Get().Brain.Connections[0].Weight != 1 {
		t.Errorf("expected no weight change with zero learning rate, got %v", a.Intel.Genotype.Get().Brain.Connections[0].Weight)
	}
}

func TestApplyHebbianUpdatesWeightOnEnergyGain(t *testing.T) {
	a := newTestAgent(50, 100)
	g := a.Intel.Genotype.Get()
	g.Brain.LearningRate = 0.1
	g.Brain.Connections = []Connection{{From: 0, To: NumInputs, Weight: 1, Enabled: true}}
	a.Intel.LastInputs[0] = 1
	a.Metabolism.PrevEnergy = 10
	a.Metabolism.Energy = 20

	ApplyHebbian(a)
	if a.Intel.Genotype.Get().Brain.Connections[0].Weight == 1 {
		t.Errorf("expected the connection weight to change after a positive energy delta")
	}
}

func TestApplyRegulatoryRulesMultipliesTriggeredTarget(t *testing.T) {
	g := &Genotype{MaxSpeed: 2, SensingRange: 10, ReproductiveInvest: 0.5}
	g.Rules = []RegulatoryRule{
		{Sensor: SensorEnergyRatio, Threshold: 0.5, Op: OpGreater, Target: TargetSpeed, Modifier: 2},
	}
	var inputs [NumInputs]float64
	inputs[2] = 0.9 // energy ratio above threshold

	eff := ApplyRegulatoryRules(g, inputs, 0)
	if eff.Speed <= g.MaxSpeed {
		t.Errorf("expected the triggered rule to multiply Speed above the base MaxSpeed, got %v", eff.Speed)
	}
}

func TestApplyRegulatoryRulesSkipsUntriggeredRule(t *testing.T) {
	g := &Genotype{MaxSpeed: 2, SensingRange: 10, ReproductiveInvest: 0.5}
	g.Rules = []RegulatoryRule{
		{Sensor: SensorEnergyRatio, Threshold: 0.99, Op: OpGreater, Target: TargetSpeed, Modifier: 2},
	}
	var inputs [NumInputs]float64
	inputs[2] = 0.1

	eff := ApplyRegulatoryRules(g, inputs, 0)
	if eff.Speed != g.MaxSpeed {
		t.Errorf("expected an untriggered rule to leave Speed unchanged, got %v want %v", eff.Speed, g.MaxSpeed)
	}
}

func TestDecideWritesOnlyOwnAgentState(t *testing.T) {
	w := NewWorld(smallConfig(22), 2)
	in, snaps := buildDecisionInputs(w)
	a := w.Agents[snaps[0].Idx]
	other := w.Agents[snaps[1].Idx]
	otherHiddenBefore := other.Intel.Hidden

	Decide(a, &snaps[0], in)

	if len(otherHiddenBefore) != len(other.Intel.Hidden) {
		t.Errorf("expected Decide to leave a different agent's hidden state untouched")
	}
	if a.Intel.LastActivations == ([NumOutputs]float64{}) {
		t.Errorf("expected Decide to populate LastActivations")
	}
}
