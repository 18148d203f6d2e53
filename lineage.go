package primordium

// CollectiveMemory holds a lineage's shared goal/threat/overmind scalars,
// each decaying toward zero every tick unless reinforced (spec §3).
type CollectiveMemory struct {
	Goal      float64
	Threat    float64
	Overmind  float64
}

func (m *CollectiveMemory) Decay(rate float64) {
	m.Goal *= (1 - rate)
	m.Threat *= (1 - rate)
	m.Overmind *= (1 - rate)
}

// Lineage is the per-lineage bookkeeping record (spec §3).
type Lineage struct {
	ID                  LineageID
	FoundingGeneration  int
	BirthCount          int
	DeathCount          int
	CurrentPopulation   int
	TotalEnergyConsumed float64
	CivilizationLevel   int

	Memory CollectiveMemory

	AncestralTraits     map[string]bool
	MaxFitnessAncestor  *Brain
	MaxFitnessSeen      float64

	GoalAchieved map[string]bool

	// Supplemented (SPEC_FULL §12, grounded on original_source lineage_tree.rs)
	PeakPopulation int
	ExtinctionCause string
}

func NewLineage(id LineageID, foundingGeneration int) *Lineage {
	return &Lineage{
		ID:                 id,
		FoundingGeneration: foundingGeneration,
		AncestralTraits:    make(map[string]bool),
		GoalAchieved:       make(map[string]bool),
	}
}

// LineageRegistry indexes all known lineages by id.
type LineageRegistry struct {
	byID map[LineageID]*Lineage
}

func NewLineageRegistry() *LineageRegistry {
	return &LineageRegistry{byID: make(map[LineageID]*Lineage)}
}

func (r *LineageRegistry) GetOrCreate(id LineageID, foundingGeneration int) *Lineage {
	if l, ok := r.byID[id]; ok {
		return l
	}
	l := NewLineage(id, foundingGeneration)
	r.byID[id] = l
	return l
}

func (r *LineageRegistry) Get(id LineageID) (*Lineage, bool) {
	l, ok := r.byID[id]
	return l, ok
}

func (r *LineageRegistry) All() map[LineageID]*Lineage { return r.byID }

func (r *LineageRegistry) RecordBirth(id LineageID, foundingGeneration int) {
	l := r.GetOrCreate(id, foundingGeneration)
	l.BirthCount++
	l.CurrentPopulation++
	if l.CurrentPopulation > l.PeakPopulation {
		l.PeakPopulation = l.CurrentPopulation
	}
}

func (r *LineageRegistry) RecordDeath(id LineageID, cause string) {
	l, ok := r.byID[id]
	if !ok {
		return
	}
	l.DeathCount++
	l.CurrentPopulation--
	if l.CurrentPopulation < 0 {
		l.CurrentPopulation = 0
	}
	if l.CurrentPopulation == 0 {
		l.ExtinctionCause = cause
	}
}

// ConsiderAncestor updates the lineage's max-fitness ancestral brain
// snapshot if fitness exceeds the best seen so far.
func (l *Lineage) ConsiderAncestor(brain *Brain, fitness float64) {
	if fitness <= l.MaxFitnessSeen && l.MaxFitnessAncestor != nil {
		return
	}
	l.MaxFitnessSeen = fitness
	clone := *brain
	clone.Nodes = append([]Node(nil), brain.Nodes...)
	clone.Connections = append([]Connection(nil), brain.Connections...)
	l.MaxFitnessAncestor = &clone
}

// DecayMemory applies CollectiveMemory.Decay to every lineage (P10 cadence).
func (r *LineageRegistry) DecayMemory(rate float64) {
	for _, l := range r.byID {
		l.Memory.Decay(rate)
	}
}

// Prune removes extinct lineages whose founding generation lies more than
// ageThreshold generations behind currentGeneration, then enforces a hard count cap by dropping the
// lowest-civilization extinct lineages first (spec §4.7).
func (r *LineageRegistry) Prune(currentGeneration, ageThreshold, countCap int) []*Lineage {
	var pruned []*Lineage
	for id, l := range r.byID {
		if l.CurrentPopulation == 0 && currentGeneration-l.FoundingGeneration > ageThreshold {
			pruned = append(pruned, l)
			delete(r.byID, id)
		}
	}
	if len(r.byID) <= countCap {
		return pruned
	}
	var extinct []*Lineage
	for _, l := range r.byID {
		if l.CurrentPopulation == 0 {
			extinct = append(extinct, l)
		}
	}
	sortLineagesByCivLevel(extinct)
	for _, l := range extinct {
		if len(r.byID) <= countCap {
			break
		}
		delete(r.byID, l.ID)
		pruned = append(pruned, l)
	}
	return pruned
}

func sortLineagesByCivLevel(ls []*Lineage) {
	for i := 1; i < len(ls); i++ {
		for j := i; j > 0 && ls[j-1].CivilizationLevel > ls[j].CivilizationLevel; j-- {
			ls[j-1], ls[j] = ls[j], ls[j-1]
		}
	}
}
