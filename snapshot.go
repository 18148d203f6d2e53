package primordium

// AgentSummary is the externally-visible projection of one living agent,
// safe to serialize to a UI or network client without exposing brain
// internals (spec §6).
type AgentSummary struct {
	ID         AgentID   `json:"id"`
	LineageID  LineageID `json:"lineage_id"`
	Position   Vector2D  `json:"position"`
	Energy     float64   `json:"energy"`
	MaxEnergy  float64   `json:"max_energy"`
	Generation int       `json:"generation"`
	Status     AgentStatus `json:"status"`
	Appearance Appearance  `json:"appearance"`
}

// WorldSnapshot is the read-only external view produced once per tick for
// consumers that must never be able to mutate simulation state (spec §6).
type WorldSnapshot struct {
	Tick        uint64         `json:"tick"`
	Agents      []AgentSummary `json:"agents"`
	Stats       PopulationStats `json:"stats"`
	Season      Season          `json:"season"`
	Era         Era             `json:"era"`
	DeterministicHash string    `json:"deterministic_hash"`
}

func statusOf(a *Agent) AgentStatus {
	switch {
	case a.Health.Infection != nil:
		return StatusInfected
	case a.IsLarva():
		return StatusLarva
	case !a.Intel.BondedTo.IsNil():
		return StatusBonded
	case a.EnergyRatio() < 0.2:
		return StatusStarving
	default:
		return StatusForaging
	}
}

// BuildWorldSnapshot captures the externally-visible state of w. Agents are
// emitted in a fixed (id-sorted) order so repeated calls against identical
// state always serialize identically (spec §5, §6).
func BuildWorldSnapshot(w *World) WorldSnapshot {
	alive := make([]*Agent, 0, len(w.Agents))
	for _, a := range w.Agents {
		if a.Alive {
			alive = append(alive, a)
		}
	}
	sortAgentsByID(alive)

	summaries := make([]AgentSummary, len(alive))
	for i, a := range alive {
		summaries[i] = AgentSummary{
			ID: a.ID, LineageID: a.Metabolism.LineageID, Position: a.Position,
			Energy: a.Metabolism.Energy, MaxEnergy: a.Metabolism.MaxEnergy,
			Generation: a.Metabolism.Generation, Status: statusOf(a),
			Appearance: a.Physics.Appearance,
		}
	}

	return WorldSnapshot{
		Tick: w.Tick, Agents: summaries, Stats: w.LastStats,
		Season: w.Environment.Season, Era: w.Environment.Era,
		DeterministicHash: DeterministicHash(w),
	}
}

func sortAgentsByID(agents []*Agent) {
	for i := 1; i < len(agents); i++ {
		for j := i; j > 0 && agents[j-1].ID.String() > agents[j].ID.String(); j-- {
			agents[j-1], agents[j] = agents[j], agents[j-1]
		}
	}
}
