package primordium

// Pathogen is an infectious agent that can attach to an Agent's Health
// component. It optionally manipulates one output of the host's decision
// pass (spec §4.4, §9: indices are specified directly in [0, NumOutputs)).
type Pathogen struct {
	Virulence   float64 // rate of immunity erosion
	Lethality   float64 // per-tick death probability once fully virulent
	Duration    int     // ticks until the infection resolves on its own
	Manipulates bool
	OutputIndex int // [0, NumOutputs)
	Offset      float64
}

// ValidOutputIndex reports whether OutputIndex is in range; pathogens that
// declare an invalid index are treated as non-manipulating (spec §7: bad
// input is clamped/rejected, never fatal).
func (p Pathogen) ValidOutputIndex() bool {
	return p.OutputIndex >= 0 && p.OutputIndex < NumOutputs
}

// ApplyManipulation adds the pathogen's offset to the named output, clamped
// to [-1, 1].
func (p Pathogen) ApplyManipulation(outputs *[NumOutputs]float64) {
	if !p.Manipulates || !p.ValidOutputIndex() {
		return
	}
	outputs[p.OutputIndex] = Clamp(outputs[p.OutputIndex]+p.Offset, -1, 1)
}

// Infection tracks an active pathogen on an agent.
type Infection struct {
	Pathogen  Pathogen
	Timer     int // ticks elapsed since infection
	Immunity  float64
}

// Progress advances the infection by one tick, returning true if the agent
// dies from it this tick (spec §4.7 biological bookkeeping).
func (inf *Infection) Progress(rng *AgentRNG) (cleared bool, fatal bool) {
	inf.Timer++
	inf.Immunity = Clamp(inf.Immunity+0.01, 0, 1)
	effectiveLethality := inf.Pathogen.Lethality * (1 - inf.Immunity)
	if rng.Bool(effectiveLethality) {
		return false, true
	}
	if inf.Timer >= inf.Pathogen.Duration {
		return true, false
	}
	return false, false
}
