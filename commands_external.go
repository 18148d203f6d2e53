package primordium

// The functions in this file are the named mutators the spec's command
// interface exposes to a UI or network caller (spec §6). Every one of them
// must run between ticks, never from inside a parallel phase; World.Step
// never calls any of these itself.

// ApplyGeneticEdit nudges one scalar trait of id's genotype by delta,
// copy-on-write so sibling agents sharing the same GenotypeRef are
// unaffected, then re-clamps every trait to its declared range. An unknown
// agent id or gene name changes nothing and returns ErrBadInput.
func (w *World) ApplyGeneticEdit(id AgentID, gene string, delta float64) error {
	a := findAgentByID(w.Agents, id)
	if a == nil {
		return wrapf(ErrBadInput, "unknown agent id")
	}
	ref := a.Intel.Genotype.CopyOnWrite()
	g := ref.Get()
	switch gene {
	case "sensing_range":
		g.SensingRange += delta
	case "max_speed":
		g.MaxSpeed += delta
	case "max_energy":
		g.MaxEnergy += delta
	case "trophic_potential":
		g.TrophicPotential += delta
	case "reproductive_invest":
		g.ReproductiveInvest += delta
	default:
		return wrapf(ErrBadInput, "unknown gene name")
	}
	g.Clamp()
	a.Intel.Genotype = ref
	return nil
}

// knownResources enumerates the resource names ApplyTrade accepts; trading
// anything else is rejected per spec §7.
var knownResources = map[string]bool{"energy": true, "biomass": true}

// ApplyTrade adjusts the environment's available-energy pool by amount,
// signed by incoming (true credits the pool, false debits it). Trading an
// unknown resource name changes nothing and returns ErrBadInput.
func (w *World) ApplyTrade(env string, resource string, amount float64, incoming bool) error {
	if !knownResources[resource] {
		return wrapf(ErrBadInput, "unknown trade resource")
	}
	if !incoming {
		amount = -amount
	}
	w.Environment.AvailableEnergy += amount
	return nil
}

// ApplyReliefCommand credits a lineage's energy ledger from an external
// relief grant (spec §6 apply_relief).
func (w *World) ApplyReliefCommand(lineage LineageID, amount float64) {
	w.ApplyRelief(Relief{LineageID: lineage, Amount: amount})
}

// SpawnEntity inserts a fully-formed agent built by the caller (e.g. a UI
// "spawn" action). When SpawnRateLimitEnabled is set it refuses the agent
// with ErrLogicalOverflow once the population has reached
// MaxEntitiesPerTick*1000 (spec §6 spawn_entity).
func (w *World) SpawnEntity(a *Agent) error {
	if a == nil {
		return wrapf(ErrBadInput, "nil agent")
	}
	if w.Config.Population.SpawnRateLimitEnabled && len(w.Agents) >= w.Config.Population.MaxEntitiesPerTick*1000 {
		return wrapf(ErrLogicalOverflow, "population cap reached")
	}
	a.ClampToWorld(w.Config.World.Width, w.Config.World.Height)
	w.Agents = append(w.Agents, a)
	w.Lineages.RecordBirth(a.Metabolism.LineageID, a.Metabolism.Generation)
	return nil
}

// ReincarnateSelected spawns a fresh agent of a new lineage at a random
// position once a legend with the given id is found in the archive (spec §6
// reincarnate_selected). A Legend stores no genotype, so the new agent gets a
// freshly random genotype, not a copy of the legend's. Returns ErrBadInput if
// no matching legend exists.
func (w *World) ReincarnateSelected(id AgentID) error {
	var match *Legend
	for i := range w.Fossils.Legends {
		if w.Fossils.Legends[i].AgentID == id {
			match = &w.Fossils.Legends[i]
			break
		}
	}
	if match == nil {
		return wrapf(ErrBadInput, "no archived legend with that id")
	}
	rng := DeriveRNG(w.Config.World.Seed, w.Tick, uint64(len(w.Agents)), 0)
	var newID AgentID
	var lineage LineageID
	for i := range newID {
		newID[i], lineage[i] = byte(rng.IntN(256)), byte(rng.IntN(256))
	}
	g := NewRandomGenotype(rng)
	agent := &Agent{
		ID: newID, Position: Vector2D{X: rng.Uniform(0, w.Config.World.Width), Y: rng.Uniform(0, w.Config.World.Height)},
		Physics: Physics{SensingRange: g.SensingRange, MaxSpeed: g.MaxSpeed, Appearance: Appearance{Glyph: 'r'}},
		Metabolism: Metabolism{Energy: g.MaxEnergy * 0.6, MaxEnergy: g.MaxEnergy, PeakEnergy: g.MaxEnergy * 0.6, BirthTick: w.Tick, LineageID: lineage, HasMetamorphosed: true},
		Intel:      Intel{Genotype: NewGenotypeRef(g), AncestralTraits: map[string]bool{"reincarnated": true}},
		Alive:      true,
	}
	return w.SpawnEntity(agent)
}

// ClearResearchDeltas resets the named agent's specialization-progress
// counters, e.g. after a UI "reset research" action (spec §6
// clear_research_deltas).
func (w *World) ClearResearchDeltas(id AgentID) error {
	a := findAgentByID(w.Agents, id)
	if a == nil {
		return wrapf(ErrBadInput, "unknown agent id")
	}
	a.Intel.SpecializationProgress = [3]float64{}
	return nil
}
