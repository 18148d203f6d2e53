package primordium

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PopulationStats is a periodic summary of the living population, computed
// every Finalize.StatsInterval ticks (spec §4.7 step 9). Grounded on the
// teacher's statistical_analysis.go/ecosystem_metrics.go; uses
// gonum.org/v1/gonum/stat for the mean/variance reductions (pack:
// pthm-soup's cmd/optimize/main.go).
type PopulationStats struct {
	Tick            uint64
	Population      int
	MeanEnergy      float64
	EnergyStdDev    float64
	MeanGeneration  float64
	MeanSensing     float64
	MeanSpeed       float64
	MeanTrophic     float64
}

// HallOfFameEntry ranks a lineage by its best-seen fitness.
type HallOfFameEntry struct {
	LineageID LineageID
	Fitness   float64
}

// ComputeStats reduces over agents serially in the order of the given slice
// (not sorted by id), so floating point accumulation never depends on map
// iteration or thread scheduling (spec §5).
func ComputeStats(tick uint64, agents []*Agent) PopulationStats {
	energies := make([]float64, 0, len(agents))
	generations := make([]float64, 0, len(agents))
	sensing := make([]float64, 0, len(agents))
	speed := make([]float64, 0, len(agents))
	trophic := make([]float64, 0, len(agents))

	for _, a := range agents {
		if !a.Alive {
			continue
		}
		energies = append(energies, a.Metabolism.Energy)
		generations = append(generations, float64(a.Metabolism.Generation))
		g := a.Intel.Genotype.Get()
		sensing = append(sensing, g.SensingRange)
		speed = append(speed, g.MaxSpeed)
		trophic = append(trophic, g.TrophicPotential)
	}

	s := PopulationStats{Tick: tick, Population: len(energies)}
	if len(energies) == 0 {
		return s
	}
	meanEnergy := stat.Mean(energies, nil)
	s.MeanEnergy = meanEnergy
	s.EnergyStdDev = stat.StdDev(energies, nil)
	s.MeanGeneration = floats.Sum(generations) / float64(len(generations))
	s.MeanSensing = stat.Mean(sensing, nil)
	s.MeanSpeed = stat.Mean(speed, nil)
	s.MeanTrophic = stat.Mean(trophic, nil)
	return s
}

// FitnessRatio is used by the DDA step: average agent fitness (here, energy
// ratio as a stand-in for overall fitness) divided by a target.
func FitnessRatio(agents []*Agent, target float64) float64 {
	if target <= 0 {
		return 1
	}
	ratios := make([]float64, 0, len(agents))
	for _, a := range agents {
		if !a.Alive {
			continue
		}
		ratios = append(ratios, a.EnergyRatio())
	}
	if len(ratios) == 0 {
		return 1
	}
	return stat.Mean(ratios, nil) / target
}

// HallOfFame keeps the top-N lineages by best-seen ancestral fitness.
type HallOfFame struct {
	Entries []HallOfFameEntry
	Cap     int
}

func NewHallOfFame(cap int) *HallOfFame {
	return &HallOfFame{Cap: cap}
}

func (h *HallOfFame) Consider(id LineageID, fitness float64) {
	for i, e := range h.Entries {
		if e.LineageID == id {
			if fitness > e.Fitness {
				h.Entries[i].Fitness = fitness
			}
			h.sort()
			return
		}
	}
	h.Entries = append(h.Entries, HallOfFameEntry{id, fitness})
	h.sort()
	if len(h.Entries) > h.Cap {
		h.Entries = h.Entries[:h.Cap]
	}
}

func (h *HallOfFame) sort() {
	for i := 1; i < len(h.Entries); i++ {
		for j := i; j > 0 && h.Entries[j-1].Fitness < h.Entries[j].Fitness; j-- {
			h.Entries[j-1], h.Entries[j] = h.Entries[j], h.Entries[j-1]
		}
	}
}
