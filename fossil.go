package primordium

// Legend is an archived notable agent (spec §4.7 criteria: lifespan > 1000,
// offspring > 10, or peak_energy > 300).
type Legend struct {
	AgentID    AgentID
	LineageID  LineageID
	Lifespan   uint64
	Offspring  int
	PeakEnergy float64
	Tick       uint64
}

func IsLegendWorthy(lifespan uint64, offspring int, peakEnergy float64) bool {
	return lifespan > 1000 || offspring > 10 || peakEnergy > 300
}

// FossilRecord is one append-only entry for an extinct or legendary lineage.
type FossilRecord struct {
	LineageID           LineageID
	FoundingGeneration  int
	PeakPopulation      int
	ExtinctionCause      string
	BestGenotype         *Genotype
	Tick                 uint64
}

// FossilRegistry is the append-only archive of extinct/legendary lineages.
type FossilRegistry struct {
	Records []FossilRecord
	Legends []Legend
}

func NewFossilRegistry() *FossilRegistry {
	return &FossilRegistry{}
}

func (f *FossilRegistry) Archive(l *Lineage, tick uint64, best *Genotype) {
	f.Records = append(f.Records, FossilRecord{
		LineageID:          l.ID,
		FoundingGeneration: l.FoundingGeneration,
		PeakPopulation:     l.PeakPopulation,
		ExtinctionCause:    l.ExtinctionCause,
		BestGenotype:       best,
		Tick:               tick,
	})
}

func (f *FossilRegistry) ArchiveLegend(leg Legend) {
	f.Legends = append(f.Legends, leg)
}
