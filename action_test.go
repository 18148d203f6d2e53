package primordium

import "testing"

func TestComputeActionProducesBoundedVelocity(t *testing.T) {
	w := NewWorld(smallConfig(10), 3)
	snaps := CaptureSnapshots(w.Agents)
	snapByIdx := make(map[int]*Snapshot, len(snaps))
	for i := range snaps {
		snapByIdx[snaps[i].Idx] = &snaps[i]
	}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)

	in := &DecisionInputs{
		Agents: w.Agents, AgentGrid: w.AgentGrid, FoodGrid: w.FoodGrid, Food: w.Food,
		Pheromones: w.Pheromones, Sound: w.Sound, Pressure: w.Pressure, Terrain: w.Terrain,
		Lineages: w.Lineages, Snapshots: snaps, SnapshotByIdx: snapByIdx,
		WorldSeed: w.Config.World.Seed, Tick: 1, env: w.Environment,
		MaturityAgeBase: w.Config.Population.MaturityAgeBase,
	}

	snap := &snaps[0]
	a := w.Agents[snap.Idx]
	var outputs [NumOutputs]float64
	outputs[OutMoveX] = 1
	outputs[OutMoveY] = 0
	outputs[OutSpeed] = 1
	eff := EffectiveTraits{Speed: a.Physics.MaxSpeed, Sensing: a.Physics.SensingRange, ReproInvest: 0.3}

	outcome := ComputeAction(a, snap, outputs, eff, in)
	if outcome.NewVelocity.Length() > eff.Speed+1e-9 {
		t.Errorf("expected velocity bounded by effective speed %v, got length %v", eff.Speed, outcome.NewVelocity.Length())
	}
	if outcome.EnergyCost <= 0 {
		t.Errorf("expected a positive energy cost for moving, got %v", outcome.EnergyCost)
	}
}

func TestComputeActionEmitsKillCommandOnHighAggro(t *testing.T) {
	w := NewWorld(smallConfig(11), 0)
	predator := newTestAgent(80, 100)
	prey := newTestAgent(50, 100)
	predator.Position = Vector2D{X: 10, Y: 10}
	prey.Position = Vector2D{X: 10.5, Y: 10}
	w.Agents = []*Agent{predator, prey}

	snaps := CaptureSnapshots(w.Agents)
	snapByIdx := map[int]*Snapshot{0: &snaps[0], 1: &snaps[1]}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	entries := []Entry{{X: 10, Y: 10, Key: 0}, {X: 10.5, Y: 10, Key: 1}}
	w.AgentGrid.Build(entries)
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)

	in := &DecisionInputs{
		Agents: w.Agents, AgentGrid: w.AgentGrid, FoodGrid: w.FoodGrid, Food: nil,
		Pheromones: w.Pheromones, Sound: w.Sound, Pressure: w.Pressure, Terrain: w.Terrain,
		Lineages: w.Lineages, Snapshots: snaps, SnapshotByIdx: snapByIdx,
		WorldSeed: 1, Tick: 1, env: w.Environment, MaturityAgeBase: w.Config.Population.MaturityAgeBase,
	}

	var outputs [NumOutputs]float64
	outputs[OutAggro] = 0.9
	eff := EffectiveTraits{Speed: 1, Sensing: 10, ReproInvest: 0.3}

	outcome := ComputeAction(predator, &snaps[0], outputs, eff, in)

	found := false
	for _, c := range outcome.Commands {
		if c.Kind == CmdKill && c.TargetIdx == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a CmdKill command targeting the nearby prey, got %+v", outcome.Commands)
	}
}

func TestApplyActionsDebitsEnergyAndMovesAgent(t *testing.T) {
	a := newTestAgent(50, 100)
	a.Position = Vector2D{X: 5, Y: 5}
	env := NewEnvironment()
	pher := NewPheromoneField(20, 20)
	press := NewPressureField(20, 20)
	sound := NewScalarGrid(20, 20, 0.2, 0.3, 5)

	outcomes := []ActionOutcome{
		{Idx: 0, NewVelocity: Vector2D{X: 1, Y: 0}, EnergyCost: 5},
	}
	ApplyActions([]*Agent{a}, outcomes, pher, press, sound, env, 20, 20)

	if a.Position.X != 6 {
		t.Errorf("expected position to advance by the new velocity, got %v", a.Position.X)
	}
	if a.Metabolism.Energy != 45 {
		t.Errorf("expected energy debited by EnergyCost, got %v", a.Metabolism.Energy)
	}
}

func TestComputeActionSteersBondedAgentTowardPartner(t *testing.T) {
	w := NewWorld(smallConfig(12), 0)
	a := newTestAgent(50, 100)
	partner := newTestAgent(50, 100)
	a.Position = Vector2D{X: 10, Y: 10}
	partner.Position = Vector2D{X: 14, Y: 10}
	a.Intel.BondedTo = partner.ID
	partner.Intel.BondedTo = a.ID
	w.Agents = []*Agent{a, partner}

	snaps := CaptureSnapshots(w.Agents)
	snapByIdx := map[int]*Snapshot{0: &snaps[0], 1: &snaps[1]}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.AgentGrid.Build([]Entry{{X: 10, Y: 10, Key: 0}, {X: 14, Y: 10, Key: 1}})
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)

	in := &DecisionInputs{
		Agents: w.Agents, AgentGrid: w.AgentGrid, FoodGrid: w.FoodGrid, Food: nil,
		Pheromones: w.Pheromones, Sound: w.Sound, Pressure: w.Pressure, Terrain: w.Terrain,
		Lineages: w.Lineages, Snapshots: snaps, SnapshotByIdx: snapByIdx,
		WorldSeed: 1, Tick: 1, env: w.Environment, MaturityAgeBase: w.Config.Population.MaturityAgeBase,
	}

	var outputs [NumOutputs]float64 // no brain signal: any movement comes from the spring force
	eff := EffectiveTraits{Speed: 1, Sensing: 10, ReproInvest: 0.3}

	outcome := ComputeAction(a, &snaps[0], outputs, eff, in)
	if outcome.NewVelocity.X <= 0 {
		t.Errorf("expected bonded agent to steer toward its partner (positive X), got velocity %+v", outcome.NewVelocity)
	}
}

func TestComputeActionStillMovesWhenUnbonded(t *testing.T) {
	w := NewWorld(smallConfig(13), 0)
	a := newTestAgent(50, 100)
	a.Position = Vector2D{X: 10, Y: 10}
	w.Agents = []*Agent{a}

	snaps := CaptureSnapshots(w.Agents)
	snapByIdx := map[int]*Snapshot{0: &snaps[0]}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.AgentGrid.Build([]Entry{{X: 10, Y: 10, Key: 0}})
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)

	in := &DecisionInputs{
		Agents: w.Agents, AgentGrid: w.AgentGrid, FoodGrid: w.FoodGrid, Food: nil,
		Pheromones: w.Pheromones, Sound: w.Sound, Pressure: w.Pressure, Terrain: w.Terrain,
		Lineages: w.Lineages, Snapshots: snaps, SnapshotByIdx: snapByIdx,
		WorldSeed: 1, Tick: 1, env: w.Environment, MaturityAgeBase: w.Config.Population.MaturityAgeBase,
	}

	var outputs [NumOutputs]float64
	outputs[OutMoveX] = 1
	outputs[OutSpeed] = 1
	eff := EffectiveTraits{Speed: 1, Sensing: 10, ReproInvest: 0.3}

	outcome := ComputeAction(a, &snaps[0], outputs, eff, in)
	if outcome.NewVelocity.Length() == 0 {
		t.Errorf("expected an unbonded, rankless agent to still move on brain output alone")
	}
}

func TestComputeActionFollowsHigherRankKin(t *testing.T) {
	w := NewWorld(smallConfig(14), 0)
	follower := newTestAgent(50, 100)
	leader := newTestAgent(50, 100)
	leader.Metabolism.LineageID = follower.Metabolism.LineageID
	follower.Position = Vector2D{X: 10, Y: 10}
	leader.Position = Vector2D{X: 10, Y: 14}
	leader.Intel.Rank = 0.9
	follower.Intel.Rank = 0.1
	w.Agents = []*Agent{follower, leader}

	snaps := CaptureSnapshots(w.Agents)
	snapByIdx := map[int]*Snapshot{0: &snaps[0], 1: &snaps[1]}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.AgentGrid.Build([]Entry{{X: 10, Y: 10, Key: 0}, {X: 10, Y: 14, Key: 1}})
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)

	in := &DecisionInputs{
		Agents: w.Agents, AgentGrid: w.AgentGrid, FoodGrid: w.FoodGrid, Food: nil,
		Pheromones: w.Pheromones, Sound: w.Sound, Pressure: w.Pressure, Terrain: w.Terrain,
		Lineages: w.Lineages, Snapshots: snaps, SnapshotByIdx: snapByIdx,
		WorldSeed: 1, Tick: 1, env: w.Environment, MaturityAgeBase: w.Config.Population.MaturityAgeBase,
	}

	var outputs [NumOutputs]float64 // no brain signal: movement comes from the leader-follow force
	eff := EffectiveTraits{Speed: 1, Sensing: 10, ReproInvest: 0.3}

	outcome := ComputeAction(follower, &snaps[0], outputs, eff, in)
	if outcome.NewVelocity.Y <= 0 {
		t.Errorf("expected follower to steer toward the higher-rank kin (positive Y), got velocity %+v", outcome.NewVelocity)
	}
}

func TestComputeActionPredationModeRaisesEnergyCost(t *testing.T) {
	w := NewWorld(smallConfig(15), 0)
	a := newTestAgent(80, 100)
	a.Position = Vector2D{X: 10, Y: 10}
	w.Agents = []*Agent{a}

	snaps := CaptureSnapshots(w.Agents)
	snapByIdx := map[int]*Snapshot{0: &snaps[0]}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.AgentGrid.Build([]Entry{{X: 10, Y: 10, Key: 0}})
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)

	in := &DecisionInputs{
		Agents: w.Agents, AgentGrid: w.AgentGrid, FoodGrid: w.FoodGrid, Food: nil,
		Pheromones: w.Pheromones, Sound: w.Sound, Pressure: w.Pressure, Terrain: w.Terrain,
		Lineages: w.Lineages, Snapshots: snaps, SnapshotByIdx: snapByIdx,
		WorldSeed: 1, Tick: 1, env: w.Environment, MaturityAgeBase: w.Config.Population.MaturityAgeBase,
	}
	eff := EffectiveTraits{Speed: 1, Sensing: 10, ReproInvest: 0.3}

	var calm [NumOutputs]float64
	calmCost := ComputeAction(a, &snaps[0], calm, eff, in).EnergyCost

	var aggro [NumOutputs]float64
	aggro[OutAggro] = 0.9
	aggroCost := ComputeAction(a, &snaps[0], aggro, eff, in).EnergyCost

	if aggroCost <= calmCost {
		t.Errorf("expected predation-mode aggression to raise idle energy cost, calm=%v aggro=%v", calmCost, aggroCost)
	}
}

func TestComputeActionMovingDrainsOxygen(t *testing.T) {
	w := NewWorld(smallConfig(16), 0)
	a := newTestAgent(80, 100)
	a.Position = Vector2D{X: 10, Y: 10}
	w.Agents = []*Agent{a}

	snaps := CaptureSnapshots(w.Agents)
	snapByIdx := map[int]*Snapshot{0: &snaps[0]}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.AgentGrid.Build([]Entry{{X: 10, Y: 10, Key: 0}})
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)

	in := &DecisionInputs{
		Agents: w.Agents, AgentGrid: w.AgentGrid, FoodGrid: w.FoodGrid, Food: nil,
		Pheromones: w.Pheromones, Sound: w.Sound, Pressure: w.Pressure, Terrain: w.Terrain,
		Lineages: w.Lineages, Snapshots: snaps, SnapshotByIdx: snapByIdx,
		WorldSeed: 1, Tick: 1, env: w.Environment, MaturityAgeBase: w.Config.Population.MaturityAgeBase,
	}
	eff := EffectiveTraits{Speed: 1, Sensing: 10, ReproInvest: 0.3}

	var outputs [NumOutputs]float64
	outputs[OutMoveX] = 1
	outputs[OutSpeed] = 1
	outcome := ComputeAction(a, &snaps[0], outputs, eff, in)

	if outcome.OxygenDrain <= 0 {
		t.Errorf("expected moving to drain a positive amount of oxygen, got %v", outcome.OxygenDrain)
	}
}

func TestApplyActionsDrainsEnvironmentOxygen(t *testing.T) {
	a := newTestAgent(50, 100)
	env := NewEnvironment()
	pher := NewPheromoneField(20, 20)
	press := NewPressureField(20, 20)
	sound := NewScalarGrid(20, 20, 0.2, 0.3, 5)

	outcomes := []ActionOutcome{
		{Idx: 0, NewVelocity: Vector2D{X: 1, Y: 0}, EnergyCost: 5, OxygenDrain: 0.01},
	}
	ApplyActions([]*Agent{a}, outcomes, pher, press, sound, env, 20, 20)

	if env.Oxygen != 0.99 {
		t.Errorf("expected environment oxygen reduced by the outcome's drain, got %v", env.Oxygen)
	}
}

func TestApplyActionsSkipsDeadAgents(t *testing.T) {
	a := newTestAgent(50, 100)
	a.Alive = false
	origPos := a.Position
	env := NewEnvironment()
	outcomes := []ActionOutcome{{Idx: 0, NewVelocity: Vector2D{X: 5, Y: 5}, EnergyCost: 10}}
	ApplyActions([]*Agent{a}, outcomes, NewPheromoneField(10, 10), NewPressureField(10, 10), NewScalarGrid(10, 10, 0.1, 0.1, 5), env, 10, 10)

	if a.Position != origPos {
		t.Errorf("expected a dead agent's position to be left untouched")
	}
}
