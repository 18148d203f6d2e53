package primordium

import "sync/atomic"

// NodeKind distinguishes input/hidden/output neurons in a Brain graph.
type NodeKind int

const (
	NodeInput NodeKind = iota
	NodeHidden
	NodeOutput
)

const (
	NumInputs  = 29
	NumOutputs = 12
)

// Output vector indices (spec §4.4).
const (
	OutMoveX = iota
	OutMoveY
	OutSpeed
	OutAggro
	OutShare
	OutColor
	OutEmitA
	OutEmitB
	OutBond
	OutDig
	OutBuild
	OutOvermindEmit
)

// Node is a neuron in the NEAT-style brain graph.
type Node struct {
	ID   int
	Kind NodeKind
}

// Connection is a weighted, possibly-disabled edge between two nodes.
type Connection struct {
	From, To   int
	Weight     float64
	Enabled    bool
	Recurrent  bool
	Innovation int64
	// DeltaMagnitude accumulates |Hebbian update| for the research view.
	DeltaMagnitude float64
}

// innovationID assigns deterministic ids to (from,to) topology pairs.
// Pairing is a pure function of (from, to): the Cantor pairing function.
// It does not need to be globally unique across processes — it only needs to
// agree within one run, which a pure function guarantees regardless of order.
func innovationID(from, to int) int64 {
	a, b := int64(from), int64(to)
	if a < 0 {
		a = -2*a - 1
	} else {
		a = 2 * a
	}
	if b < 0 {
		b = -2*b - 1
	} else {
		b = 2 * b
	}
	return (a+b)*(a+b+1)/2 + b
}

// nextHiddenNodeID derives a deterministic new hidden-node id for a
// split-connection structural mutation, from the connection it splits.
func nextHiddenNodeID(from, to int) int {
	return 100000 + int(innovationID(from, to)%1000000)
}

// Brain is a sparse directed graph of weighted connections over
// input/hidden/output nodes, evaluated in topological order with recurrent
// feedback from the previous tick's hidden state.
type Brain struct {
	Nodes        []Node
	Connections  []Connection
	LearningRate float64 // [0, 0.5]
}

// SensorKind names a regulatory rule's trigger input.
type SensorKind int

const (
	SensorOxygen SensorKind = iota
	SensorCarbon
	SensorEnergyRatio
	SensorNearbyKin
	SensorAgeRatio
	SensorClock
)

// RuleOp is the comparison operator of a regulatory rule.
type RuleOp int

const (
	OpGreater RuleOp = iota
	OpLess
)

// RuleTarget names the trait a regulatory rule multiplies when triggered.
type RuleTarget int

const (
	TargetSpeed RuleTarget = iota
	TargetSensing
	TargetReproInvest
)

// RegulatoryRule is one line of a dynamic phenotype: when sensor compares
// true against threshold, the named target trait is multiplied by modifier.
type RegulatoryRule struct {
	Sensor    SensorKind
	Threshold float64
	Op        RuleOp
	Target    RuleTarget
	Modifier  float64 // [0.1, 5]
}

func (r RegulatoryRule) Triggered(value float64) bool {
	switch r.Op {
	case OpGreater:
		return value > r.Threshold
	default:
		return value < r.Threshold
	}
}

const maxRegulatoryRules = 5

// Genotype is the heritable record of a brain and evolvable scalar traits.
// It is a value type that is cheap to clone structurally and shared via
// reference counting (see GenotypeRef) so agents of one lineage do not pay a
// per-tick deep copy; mutation always happens through copy-on-write.
type Genotype struct {
	Brain Brain

	SensingRange          float64 // [3, 15]
	MaxSpeed              float64 // [0.5, 3]
	MaxEnergy             float64 // [100, 500]
	MetabolicNiche        float64 // [0, 1]
	TrophicPotential      float64 // [0, 1] 0=herbivore 1=carnivore
	ReproductiveInvest    float64 // [0.1, 0.9]
	MaturityGene          float64 // [0.5, 2]
	MatePreference        float64 // [0, 1]
	PairingBias           float64 // [0, 1]
	SpecializationBias    [3]float64

	Rules []RegulatoryRule
}

// GenotypeRef is a copy-on-write handle shared by all agents of a lineage
// that have not diverged yet (spec §3, §9 "Shared genotype ownership").
type GenotypeRef struct {
	count *int32
	g     *Genotype
}

// NewGenotypeRef wraps g in a fresh single-owner reference.
func NewGenotypeRef(g *Genotype) GenotypeRef {
	c := int32(1)
	return GenotypeRef{count: &c, g: g}
}

// Share returns a new handle to the same underlying Genotype, incrementing
// the reference count. Never mutate through a shared handle directly.
func (r GenotypeRef) Share() GenotypeRef {
	atomic.AddInt32(r.count, 1)
	return r
}

// Get returns a read-only view of the underlying genotype.
func (r GenotypeRef) Get() *Genotype { return r.g }

// CopyOnWrite returns a handle to a private, mutable copy of the genotype if
// it is currently shared; otherwise returns itself unchanged. Call before any
// mutation (reproduction's mutate/crossover path always goes through a fresh
// ref for the child, so this is mainly a safety net for in-place edits like
// apply_genetic_edit).
func (r GenotypeRef) CopyOnWrite() GenotypeRef {
	if atomic.LoadInt32(r.count) <= 1 {
		return r
	}
	atomic.AddInt32(r.count, -1)
	clone := *r.g
	clone.Brain.Nodes = append([]Node(nil), r.g.Brain.Nodes...)
	clone.Brain.Connections = append([]Connection(nil), r.g.Brain.Connections...)
	clone.Rules = append([]RegulatoryRule(nil), r.g.Rules...)
	return NewGenotypeRef(&clone)
}

// NewRandomGenotype builds a minimal fully-connected feed-forward brain
// (no hidden nodes) with random weights and mid-range traits, seeded from an
// AgentRNG derived by the caller.
func NewRandomGenotype(rng *AgentRNG) *Genotype {
	g := &Genotype{
		SensingRange:       rng.Uniform(3, 15),
		MaxSpeed:           rng.Uniform(0.5, 3),
		MaxEnergy:          rng.Uniform(100, 500),
		MetabolicNiche:     rng.Float64(),
		TrophicPotential:   rng.Float64(),
		ReproductiveInvest: rng.Uniform(0.1, 0.9),
		MaturityGene:       rng.Uniform(0.5, 2),
		MatePreference:     rng.Float64(),
		PairingBias:        rng.Float64(),
	}
	g.SpecializationBias = [3]float64{rng.Float64(), rng.Float64(), rng.Float64()}
	g.Brain.LearningRate = rng.Uniform(0, 0.5)

	for i := 0; i < NumInputs; i++ {
		g.Brain.Nodes = append(g.Brain.Nodes, Node{ID: i, Kind: NodeInput})
	}
	for i := 0; i < NumOutputs; i++ {
		g.Brain.Nodes = append(g.Brain.Nodes, Node{ID: NumInputs + i, Kind: NodeOutput})
	}
	for in := 0; in < NumInputs; in++ {
		for out := 0; out < NumOutputs; out++ {
			if !rng.Bool(0.15) {
				continue
			}
			to := NumInputs + out
			g.Brain.Connections = append(g.Brain.Connections, Connection{
				From: in, To: to, Weight: rng.SymmetricUniform(1),
				Enabled: true, Innovation: innovationID(in, to),
			})
		}
	}
	return g
}

// Clamp enforces every scalar trait's declared range (spec §3).
func (g *Genotype) Clamp() {
	g.SensingRange = Clamp(g.SensingRange, 3, 15)
	g.MaxSpeed = Clamp(g.MaxSpeed, 0.5, 3)
	g.MaxEnergy = Clamp(g.MaxEnergy, 100, 500)
	g.MetabolicNiche = Clamp(g.MetabolicNiche, 0, 1)
	g.TrophicPotential = Clamp(g.TrophicPotential, 0, 1)
	g.ReproductiveInvest = Clamp(g.ReproductiveInvest, 0.1, 0.9)
	g.MaturityGene = Clamp(g.MaturityGene, 0.5, 2)
	g.MatePreference = Clamp(g.MatePreference, 0, 1)
	g.PairingBias = Clamp(g.PairingBias, 0, 1)
	for i := range g.SpecializationBias {
		g.SpecializationBias[i] = Clamp(g.SpecializationBias[i], 0, 1)
	}
	g.Brain.LearningRate = Clamp(g.Brain.LearningRate, 0, 0.5)
	for i := range g.Brain.Connections {
		g.Brain.Connections[i].Weight = Clamp(g.Brain.Connections[i].Weight, -5, 5)
	}
}

// MutationPressure scales the mutation rate/amplitude multipliers described
// in spec §4.8: radiation storms, population bottleneck/stasis.
type MutationPressure struct {
	RadiationStorm bool
	Bottleneck     bool // population below threshold
	Stasis         bool // population above threshold
	Stress         float64
}

func (p MutationPressure) rateMultiplier() float64 {
	m := 1.0
	if p.RadiationStorm {
		m *= 5
	}
	if p.Bottleneck {
		m *= 3
	}
	if p.Stasis {
		m *= 0.5
	}
	return m
}

func (p MutationPressure) amplitudeMultiplier() float64 {
	if p.RadiationStorm {
		return 2
	}
	return 1
}

// Mutate produces a mutated copy of g, following spec §4.8. protectedOutputs
// lists output-node offsets (0-based into [0,NumOutputs)) whose incoming
// connection weights mutate at 0.1x amplitude because the agent holds a
// protected specialization. populationSize drives the small-population drift
// rule. ancestral, if non-nil, is the lineage's max-fitness ancestral brain
// used by atavistic recall.
func (g *Genotype) Mutate(rng *AgentRNG, mutationRate, amount, pruningThreshold float64, pressure MutationPressure, protectedOutputs map[int]bool, populationSize int, ancestral *Brain) *Genotype {
	child := *g
	child.Brain.Nodes = append([]Node(nil), g.Brain.Nodes...)
	child.Brain.Connections = append([]Connection(nil), g.Brain.Connections...)
	child.Rules = append([]RegulatoryRule(nil), g.Rules...)

	rateMul := pressure.rateMultiplier()
	ampMul := pressure.amplitudeMultiplier()
	if populationSize > 0 && populationSize < 10 && rng.Bool(0.05) {
		child.driftOneTrait(rng)
	}

	effRate := Clamp(mutationRate*rateMul, 0, 1)
	effAmount := amount * ampMul

	for i := range child.Brain.Connections {
		if !rng.Bool(effRate) {
			continue
		}
		amp := effAmount
		toOffset := child.Brain.Connections[i].To - NumInputs
		if protectedOutputs != nil && protectedOutputs[toOffset] {
			amp *= 0.1
		}
		child.Brain.Connections[i].Weight = Clamp(child.Brain.Connections[i].Weight+rng.SymmetricUniform(amp), -5, 5)
	}

	topoRate := Clamp(effRate*0.1, 0, 1)
	if rng.Bool(topoRate) {
		child.addRandomConnection(rng)
	}
	if rng.Bool(topoRate) {
		child.splitRandomConnection(rng)
	}
	for i := range child.Brain.Connections {
		c := &child.Brain.Connections[i]
		if c.Enabled && absF(c.Weight) < pruningThreshold && rng.Bool(0.1) {
			c.Enabled = false
		}
	}

	child.mutateScalarTraits(rng, effRate)

	if rng.Bool(0.05 * effRate / max1(mutationRate)) {
		child.addRandomRule(rng)
	}
	if len(child.Rules) > 0 && rng.Bool(0.02*effRate/max1(mutationRate)) {
		idx := rng.IntN(len(child.Rules))
		child.Rules = append(child.Rules[:idx], child.Rules[idx+1:]...)
	}
	for i := range child.Rules {
		if rng.Bool(0.1 * effRate / max1(mutationRate)) {
			child.Rules[i].Modifier = Clamp(child.Rules[i].Modifier+rng.SymmetricUniform(0.3), 0.1, 5)
		}
	}

	atavismChance := 0.01 + 0.05*pressure.Stress
	if ancestral != nil && rng.Bool(atavismChance) {
		child.Brain.Nodes = append([]Node(nil), ancestral.Nodes...)
		child.Brain.Connections = append([]Connection(nil), ancestral.Connections...)
	}

	child.Clamp()
	return &child
}

func max1(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (g *Genotype) driftOneTrait(rng *AgentRNG) {
	switch rng.IntN(6) {
	case 0:
		g.SensingRange = rng.Uniform(3, 15)
	case 1:
		g.MaxSpeed = rng.Uniform(0.5, 3)
	case 2:
		g.MaxEnergy = rng.Uniform(100, 500)
	case 3:
		g.MetabolicNiche = rng.Float64()
	case 4:
		g.TrophicPotential = rng.Float64()
	case 5:
		g.ReproductiveInvest = rng.Uniform(0.1, 0.9)
	}
}

func (g *Genotype) mutateScalarTraits(rng *AgentRNG, rate float64) {
	mutOne := func(v, lo, hi float64) float64 {
		if !rng.Bool(rate) {
			return v
		}
		factor := 1 + rng.SymmetricUniform(0.2)
		return Clamp(v*factor, lo, hi)
	}
	g.SensingRange = mutOne(g.SensingRange, 3, 15)
	g.MaxSpeed = mutOne(g.MaxSpeed, 0.5, 3)
	g.MaxEnergy = mutOne(g.MaxEnergy, 100, 500)
	g.MetabolicNiche = mutOne(g.MetabolicNiche, 0, 1)
	g.TrophicPotential = mutOne(g.TrophicPotential, 0, 1)
	g.ReproductiveInvest = mutOne(g.ReproductiveInvest, 0.1, 0.9)
	g.MaturityGene = mutOne(g.MaturityGene, 0.5, 2)
	g.MatePreference = mutOne(g.MatePreference, 0, 1)
	g.PairingBias = mutOne(g.PairingBias, 0, 1)
	for i := range g.SpecializationBias {
		g.SpecializationBias[i] = mutOne(g.SpecializationBias[i], 0, 1)
	}
}

// addRandomConnection adds a connection that never ends at an Input node.
func (g *Genotype) addRandomConnection(rng *AgentRNG) {
	if len(g.Brain.Nodes) < 2 {
		return
	}
	var candidatesTo []int
	for _, n := range g.Brain.Nodes {
		if n.Kind != NodeInput {
			candidatesTo = append(candidatesTo, n.ID)
		}
	}
	if len(candidatesTo) == 0 {
		return
	}
	from := g.Brain.Nodes[rng.IntN(len(g.Brain.Nodes))].ID
	to := candidatesTo[rng.IntN(len(candidatesTo))]
	if from == to {
		return
	}
	for _, c := range g.Brain.Connections {
		if c.From == from && c.To == to {
			return
		}
	}
	g.Brain.Connections = append(g.Brain.Connections, Connection{
		From: from, To: to, Weight: rng.SymmetricUniform(1),
		Enabled: true, Innovation: innovationID(from, to),
	})
}

// splitRandomConnection introduces a hidden node on an enabled connection,
// with a deterministic id derived from (from, to).
func (g *Genotype) splitRandomConnection(rng *AgentRNG) {
	var enabled []int
	for i, c := range g.Brain.Connections {
		if c.Enabled {
			enabled = append(enabled, i)
		}
	}
	if len(enabled) == 0 {
		return
	}
	idx := enabled[rng.IntN(len(enabled))]
	c := &g.Brain.Connections[idx]
	c.Enabled = false
	hidID := nextHiddenNodeID(c.From, c.To)
	for _, n := range g.Brain.Nodes {
		if n.ID == hidID {
			return // already split this exact edge before
		}
	}
	g.Brain.Nodes = append(g.Brain.Nodes, Node{ID: hidID, Kind: NodeHidden})
	g.Brain.Connections = append(g.Brain.Connections,
		Connection{From: c.From, To: hidID, Weight: 1, Enabled: true, Innovation: innovationID(c.From, hidID)},
		Connection{From: hidID, To: c.To, Weight: c.Weight, Enabled: true, Innovation: innovationID(hidID, c.To)},
	)
}

func (g *Genotype) addRandomRule(rng *AgentRNG) {
	if len(g.Rules) >= maxRegulatoryRules {
		return
	}
	g.Rules = append(g.Rules, RegulatoryRule{
		Sensor:    SensorKind(rng.IntN(6)),
		Threshold: rng.Uniform(-1, 1),
		Op:        RuleOp(rng.IntN(2)),
		Target:    RuleTarget(rng.IntN(3)),
		Modifier:  rng.Uniform(0.1, 5),
	})
}

// Crossover aligns two parent brains by innovation id (NEAT-style): matching
// genes are picked at random from either parent, disjoint/excess genes are
// inherited from the fitter parent (ties inherit from either, here `a`).
func Crossover(rng *AgentRNG, a, b *Genotype, fitnessA, fitnessB float64) *Genotype {
	fitter, other := a, b
	if fitnessB > fitnessA {
		fitter, other = b, a
	}

	byInnov := make(map[int64]Connection, len(other.Brain.Connections))
	for _, c := range other.Brain.Connections {
		byInnov[c.Innovation] = c
	}

	child := &Genotype{
		SensingRange:       a.SensingRange,
		MaxSpeed:           a.MaxSpeed,
		MaxEnergy:          a.MaxEnergy,
		MetabolicNiche:     a.MetabolicNiche,
		TrophicPotential:   a.TrophicPotential,
		ReproductiveInvest: a.ReproductiveInvest,
		MaturityGene:       a.MaturityGene,
		MatePreference:     a.MatePreference,
		PairingBias:        a.PairingBias,
		SpecializationBias: a.SpecializationBias,
	}
	child.Brain.LearningRate = (a.Brain.LearningRate + b.Brain.LearningRate) / 2
	if rng.Bool(0.5) {
		child.Rules = append([]RegulatoryRule(nil), a.Rules...)
	} else {
		child.Rules = append([]RegulatoryRule(nil), b.Rules...)
	}

	nodeSet := map[int]Node{}
	for _, n := range fitter.Brain.Nodes {
		nodeSet[n.ID] = n
	}

	for _, fc := range fitter.Brain.Connections {
		chosen := fc
		if oc, ok := byInnov[fc.Innovation]; ok && rng.Bool(0.5) {
			chosen = oc
		}
		child.Brain.Connections = append(child.Brain.Connections, chosen)
		if _, ok := nodeSet[chosen.From]; !ok {
			nodeSet[chosen.From] = findNode(other.Brain.Nodes, chosen.From)
		}
		if _, ok := nodeSet[chosen.To]; !ok {
			nodeSet[chosen.To] = findNode(other.Brain.Nodes, chosen.To)
		}
	}
	for id, n := range nodeSet {
		n.ID = id
		child.Brain.Nodes = append(child.Brain.Nodes, n)
	}
	child.Clamp()
	return child
}

func findNode(nodes []Node, id int) Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	// A connection's endpoint is always present in at least one parent
	// (spec invariant 5); default to hidden if somehow missing.
	return Node{ID: id, Kind: NodeHidden}
}
