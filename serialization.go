package primordium

import "encoding/json"

// saveFormatVersion is bumped whenever the on-disk shape changes in a way
// that post_load cannot bridge (spec §6 "save/load").
const saveFormatVersion = 1

// savedWorld is the serializable projection of World: transient indices
// (spatial grids, social overlay) are rebuilt by PostLoad rather than
// stored, matching the teacher's save.go split between persisted and
// derived state.
type savedWorld struct {
	Tick   uint64            `json:"tick"`
	Config SimulationConfig  `json:"config"`
	Agents []savedAgent      `json:"agents"`
	Food   []Food            `json:"food"`

	Terrain     *Terrain              `json:"terrain"`
	Environment *Environment          `json:"environment"`
	Lineages    map[LineageID]*Lineage `json:"lineages"`
	Fossils     *FossilRegistry       `json:"fossils"`
}

type savedAgent struct {
	ID         AgentID    `json:"id"`
	ParentID   AgentID    `json:"parent_id"`
	Position   Vector2D   `json:"position"`
	Velocity   Vector2D   `json:"velocity"`
	Physics    Physics    `json:"physics"`
	Metabolism Metabolism `json:"metabolism"`
	Health     Health     `json:"health"`
	Genotype   *Genotype  `json:"genotype"`
	Hidden     HiddenState `json:"hidden"`
	Reputation float64    `json:"reputation"`
	Rank       float64    `json:"rank"`
	BondedTo   AgentID    `json:"bonded_to"`
	Specialization Specialization `json:"specialization"`
}

// savedEnvelope is the outer {version, world} wrapper (spec §6).
type savedEnvelope struct {
	Version int             `json:"version"`
	World   json.RawMessage `json:"world"`
}

// Save serializes w into a versioned JSON document.
func Save(w *World) ([]byte, error) {
	sw := savedWorld{
		Tick: w.Tick, Config: w.Config, Food: w.Food,
		Terrain: w.Terrain, Environment: w.Environment,
		Lineages: w.Lineages.All(), Fossils: w.Fossils,
	}
	for _, a := range w.Agents {
		if !a.Alive {
			continue
		}
		sw.Agents = append(sw.Agents, savedAgent{
			ID: a.ID, ParentID: a.ParentID, Position: a.Position, Velocity: a.Velocity,
			Physics: a.Physics, Metabolism: a.Metabolism, Health: a.Health,
			Genotype: a.Intel.Genotype.Get(), Hidden: a.Intel.Hidden,
			Reputation: a.Intel.Reputation, Rank: a.Intel.Rank,
			BondedTo: a.Intel.BondedTo, Specialization: a.Intel.Specialization,
		})
	}

	body, err := json.Marshal(sw)
	if err != nil {
		return nil, wrapf(ErrBadInput, err.Error())
	}
	return json.Marshal(savedEnvelope{Version: saveFormatVersion, World: body})
}

// Load deserializes a save produced by Save and rebuilds every transient
// field (spatial grids, social overlay) via PostLoad. An unknown version or
// malformed payload returns ErrCorruptSave and never partially mutates the
// caller's World (spec §6, §7).
func Load(data []byte) (*World, error) {
	var env savedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, wrapf(ErrCorruptSave, err.Error())
	}
	if env.Version != saveFormatVersion {
		return nil, wrapf(ErrCorruptSave, "unsupported save version")
	}

	var sw savedWorld
	if err := json.Unmarshal(env.World, &sw); err != nil {
		return nil, wrapf(ErrCorruptSave, err.Error())
	}

	w := &World{
		Tick: sw.Tick, Config: sw.Config, Food: sw.Food,
		Terrain: sw.Terrain, Environment: sw.Environment,
		Fossils: sw.Fossils, Lineages: NewLineageRegistry(),
		HallOfFame: NewHallOfFame(50), SocialGrid: make(map[[2]int]LineageID),
		logger: NewLogger(), logBuf: &logBuffer{},
	}
	for id, l := range sw.Lineages {
		w.Lineages.byID[id] = l
	}
	for _, sa := range sw.Agents {
		w.Agents = append(w.Agents, &Agent{
			ID: sa.ID, ParentID: sa.ParentID, Position: sa.Position, Velocity: sa.Velocity,
			Physics: sa.Physics, Metabolism: sa.Metabolism, Health: sa.Health,
			Intel: Intel{
				Genotype: NewGenotypeRef(sa.Genotype), Hidden: sa.Hidden,
				Reputation: sa.Reputation, Rank: sa.Rank, BondedTo: sa.BondedTo,
				Specialization: sa.Specialization, AncestralTraits: map[string]bool{},
			},
			Alive: true,
		})
	}
	w.PostLoad()
	return w, nil
}

// PostLoad rebuilds every field Save does not persist: the current-tick
// spatial grids (stale until the next Tick rebuilds them properly, but
// non-nil so a snapshot taken before the first post-load Tick does not
// panic) and the pheromone/pressure/sound/rank fields at rest.
func (w *World) PostLoad() {
	if w.Terrain != nil {
		n := w.Terrain.Width * w.Terrain.Height
		if len(w.Terrain.hydrated) != n {
			w.Terrain.hydrated = make([]bool, n)
		}
		w.Terrain.dirty = true
	}
	w.AgentGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.FoodGrid = NewGrid(w.Config.World.Width, w.Config.World.Height, w.Config.World.CellSize)
	w.Pheromones = NewPheromoneField(int(w.Config.World.Width), int(w.Config.World.Height))
	w.Pressure = NewPressureField(int(w.Config.World.Width), int(w.Config.World.Height))
	w.Sound = NewScalarGrid(int(w.Config.World.Width), int(w.Config.World.Height), 0.2, 0.3, 5)
	w.Influence = NewInfluenceGrid(int(w.Config.World.Width), int(w.Config.World.Height))
	w.RankGrid = NewScalarGrid(int(w.Config.World.Width), int(w.Config.World.Height), 0.1, 0.1, 5)
}
