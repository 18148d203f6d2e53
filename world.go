package primordium

import "github.com/rs/zerolog"

// World owns every piece of simulation state and is the sole orchestrator of
// the tick pipeline; nothing outside World.Step mutates shared state across
// goroutines without going through one of the phase helpers (spec §3, §5).
type World struct {
	Tick   uint64
	Config SimulationConfig

	Agents []*Agent
	Food   []Food

	Terrain     *Terrain
	Environment *Environment
	Lineages    *LineageRegistry
	Fossils     *FossilRegistry
	HallOfFame  *HallOfFame

	AgentGrid  *Grid
	FoodGrid   *Grid
	Pheromones *PheromoneField
	Pressure   *PressureField
	Sound      *ScalarGrid
	Influence  *InfluenceGrid
	RankGrid   *ScalarGrid

	SocialGrid map[[2]int]LineageID

	LastStats         PopulationStats
	LastHash          string
	LastPersistenceError error

	logger zerolog.Logger
	logBuf *logBuffer
}

// NewWorld allocates every subsystem from cfg and seeds an initial
// population, grounded on the teacher's NewWorld/NewSimulation constructor
// that wires every subsystem once at startup.
func NewWorld(cfg SimulationConfig, initialPopulation int) *World {
	w := &World{
		Config:      cfg,
		Terrain:     NewTerrain(int(cfg.World.Width), int(cfg.World.Height), int64(cfg.World.Seed)),
		Environment: NewEnvironment(),
		Lineages:    NewLineageRegistry(),
		Fossils:     NewFossilRegistry(),
		HallOfFame:  NewHallOfFame(50),
		Pheromones:  NewPheromoneField(int(cfg.World.Width), int(cfg.World.Height)),
		Pressure:    NewPressureField(int(cfg.World.Width), int(cfg.World.Height)),
		Sound:       NewScalarGrid(int(cfg.World.Width), int(cfg.World.Height), 0.2, 0.3, 5),
		Influence:   NewInfluenceGrid(int(cfg.World.Width), int(cfg.World.Height)),
		RankGrid:    NewScalarGrid(int(cfg.World.Width), int(cfg.World.Height), 0.1, 0.1, 5),
		SocialGrid:  make(map[[2]int]LineageID),
		logger:      NewLogger(),
		logBuf:      &logBuffer{},
	}

	for i := 0; i < initialPopulation; i++ {
		rng := DeriveRNG(cfg.World.Seed, 0, uint64(i), 0)
		w.Agents = append(w.Agents, seedAgent(rng, cfg, w.Lineages))
	}

	return w
}

func seedAgent(rng *AgentRNG, cfg SimulationConfig, lineages *LineageRegistry) *Agent {
	g := NewRandomGenotype(rng)
	var id AgentID
	var lineage LineageID
	for i := range id {
		id[i], lineage[i] = byte(rng.IntN(256)), byte(rng.IntN(256))
	}
	lineages.RecordBirth(lineage, 0)
	return &Agent{
		ID: id,
		Position: Vector2D{X: rng.Uniform(0, cfg.World.Width), Y: rng.Uniform(0, cfg.World.Height)},
		Physics: Physics{
			SensingRange: g.SensingRange, MaxSpeed: g.MaxSpeed,
			Appearance: Appearance{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256)), Glyph: 'a'},
		},
		Metabolism: Metabolism{
			Energy: g.MaxEnergy * 0.6, MaxEnergy: g.MaxEnergy, PeakEnergy: g.MaxEnergy * 0.6,
			BirthTick: 0, Generation: 0, LineageID: lineage, HasMetamorphosed: true,
		},
		Intel: Intel{Genotype: NewGenotypeRef(g), AncestralTraits: map[string]bool{}},
		Alive: true,
	}
}

// spawnFood draws new point food resources from high-fertility, high-biomass
// terrain cells, scaled by the environment's spawn multiplier (spec §4.9 P1
// "food spawn"). Draws are deterministic per tick via DeriveRNG so replay
// from an identical seed reproduces identical food placement.
func (w *World) spawnFood() {
	mult := w.Environment.FoodSpawnMultiplier()
	baseSpawns := int(float64(len(w.Terrain.Cells)) * 0.002 * mult)
	if baseSpawns <= 0 {
		return
	}
	rng := DeriveRNG(w.Config.World.Seed, w.Tick, 0xF00D, 0)
	for i := 0; i < baseSpawns; i++ {
		idx := rng.IntN(len(w.Terrain.Cells))
		c := &w.Terrain.Cells[idx]
		if c.Type == Wall || c.Type == Mountain || c.Type == Outpost {
			continue
		}
		if c.Fertility < 0.3 {
			continue
		}
		cx, cy := idx%w.Terrain.Width, idx/w.Terrain.Width
		w.Food = append(w.Food, Food{
			Position:     Vector2D{X: float64(cx) + rng.Float64(), Y: float64(cy) + rng.Float64()},
			NutrientType: c.Fertility,
			Value:        20 + c.PlantBiomass*0.1,
		})
		c.PlantBiomass *= 0.9
	}
}

// removeEatenFood compacts w.Food, dropping every index ApplyCommands
// marked consumed this tick. Remaining entries keep their relative order so
// any in-flight index the caller still holds this tick stays valid until
// the next P2 rebuild.
func (w *World) removeEatenFood(eaten map[int]bool) {
	if len(eaten) == 0 {
		return
	}
	kept := w.Food[:0]
	for i, f := range w.Food {
		if !eaten[i] {
			kept = append(kept, f)
		}
	}
	w.Food = kept
}

// Step advances the world by one tick, running every phase in the spec's
// fixed order (spec §4, §5): clock, spatial index, snapshot, rank/learning,
// decision, action compute, action apply, command sort/apply, finalize,
// field/terrain update. Named Step rather than Tick to avoid colliding with
// the Tick counter field.
func (w *World) Step() {
	w.Tick++

	// P1: serial clock + DDA + food spawn.
	w.Environment.AdvanceClock(w.Config.Time.TicksPerDay, w.Config.Time.DaysPerSeason)
	fitnessRatio := FitnessRatio(w.Agents, 0.5)
	w.Environment.ApplyDDA(len(w.Agents), fitnessRatio)
	w.spawnFood()

	// P2: rebuild spatial indices.
	agentEntries := make([]Entry, len(w.Agents))
	for i, a := range w.Agents {
		agentEntries[i] = Entry{X: a.Position.X, Y: a.Position.Y, Key: i}
	}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.AgentGrid.Build(agentEntries)

	lineageIDs := make([]LineageID, len(w.Agents))
	xs := make([]float64, len(w.Agents))
	ys := make([]float64, len(w.Agents))
	for i, a := range w.Agents {
		lineageIDs[i] = a.Metabolism.LineageID
		xs[i] = a.Position.X
		ys[i] = a.Position.Y
	}
	w.AgentGrid.BuildKinCentroids(lineageIDs, xs, ys)

	foodEntries := make([]Entry, len(w.Food))
	for i, f := range w.Food {
		foodEntries[i] = Entry{X: f.Position.X, Y: f.Position.Y, Key: i}
	}
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.FoodGrid.Build(foodEntries)

	positions := make([]Vector2D, len(w.Agents))
	energies := make([]float64, len(w.Agents))
	for i, a := range w.Agents {
		positions[i] = a.Position
		energies[i] = a.Metabolism.Energy
	}
	w.Influence.Rebuild(positions, lineageIDs, energies)

	// P3: snapshot capture.
	snaps := CaptureSnapshots(w.Agents)
	snapByIdx := make(map[int]*Snapshot, len(snaps))
	for i := range snaps {
		snapByIdx[snaps[i].Idx] = &snaps[i]
	}

	in := &DecisionInputs{
		Agents: w.Agents, AgentGrid: w.AgentGrid, FoodGrid: w.FoodGrid, Food: w.Food,
		Pheromones: w.Pheromones, Sound: w.Sound, Pressure: w.Pressure, Terrain: w.Terrain,
		Lineages: w.Lineages, Snapshots: snaps, SnapshotByIdx: snapByIdx,
		WorldSeed: w.Config.World.Seed, Tick: w.Tick, env: w.Environment,
		MaturityAgeBase: w.Config.Population.MaturityAgeBase,
	}

	// P4: rank + Hebbian learning, parallel over living agents (write-only to
	// each agent's own Intel fields).
	ParallelOverIndices(len(snaps), func(i int) {
		snap := &snaps[i]
		a := w.Agents[snap.Idx]
		UpdateRank(a, snap, in)
		ApplyHebbian(a)
	})

	// P5: decision pass.
	outputs := make([][NumOutputs]float64, len(snaps))
	effs := make([]EffectiveTraits, len(snaps))
	ParallelOverIndices(len(snaps), func(i int) {
		snap := &snaps[i]
		a := w.Agents[snap.Idx]
		outputs[i], effs[i] = Decide(a, snap, in)
	})

	// P6: action compute, parallel, pure function of (agent, snapshot,
	// outputs) producing intended velocity/commands only.
	outcomes := make([]ActionOutcome, len(snaps))
	ParallelOverIndices(len(snaps), func(i int) {
		snap := &snaps[i]
		a := w.Agents[snap.Idx]
		outcomes[i] = ComputeAction(a, snap, outputs[i], effs[i], in)
	})

	// P7: serial apply of velocity/position/energy/deposits.
	ApplyActions(w.Agents, outcomes, w.Pheromones, w.Pressure, w.Sound, w.Environment, w.Config.World.Width, w.Config.World.Height)

	// P8-P9: gather every outcome's commands and apply them serially.
	var cmds []Command
	for _, oc := range outcomes {
		cmds = append(cmds, oc.Commands...)
	}
	applyResult := ApplyCommands(&ApplyContext{
		Agents: w.Agents, Terrain: w.Terrain, Lineages: w.Lineages, SocialGrid: w.SocialGrid,
		WorldSeed: w.Config.World.Seed, Tick: w.Tick,
		MaxEntitiesPerTick: w.Config.Population.MaxEntitiesPerTick,
		SpawnRateLimitEnabled: w.Config.Population.SpawnRateLimitEnabled,
		Log: w.logBuf,
	}, cmds)

	w.removeEatenFood(applyResult.EatenFood)

	// P10: finalize.
	Finalize(w, applyResult)

	// P10 step 10: rank-grid deposit cadence (spec §4.7). Runs after
	// Finalize so it stamps the post-death, post-birth population.
	if w.Config.Finalize.RankGridInterval > 0 && w.Tick%w.Config.Finalize.RankGridInterval == 0 {
		DepositRankGrid(w.Agents, w.RankGrid)
	}

	// P11: field/terrain dynamics.
	w.Pheromones.Update()
	w.Pressure.Update()
	w.Sound.Update()
	w.RankGrid.Update()
	w.Terrain.Update(w.Config.World.Seed, w.Tick, w.Config.Terrain.GlobalRecoveryRate)

	w.logBuf.Flush(w.logger)
	w.LastHash = DeterministicHash(w)
}
