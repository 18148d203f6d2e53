package primordium

import "testing"

func TestIsLegendWorthyByLifespan(t *testing.T) {
	if !IsLegendWorthy(1001, 0, 0) {
		t.Errorf("expected lifespan over 1000 to qualify")
	}
	if IsLegendWorthy(1000, 0, 0) {
		t.Errorf("expected lifespan of exactly 1000 to not qualify")
	}
}

func TestIsLegendWorthyByOffspring(t *testing.T) {
	if !IsLegendWorthy(0, 11, 0) {
		t.Errorf("expected offspring over 10 to qualify")
	}
	if IsLegendWorthy(0, 10, 0) {
		t.Errorf("expected offspring of exactly 10 to not qualify")
	}
}

func TestIsLegendWorthyByPeakEnergy(t *testing.T) {
	if !IsLegendWorthy(0, 0, 301) {
		t.Errorf("expected peak energy over 300 to qualify")
	}
	if IsLegendWorthy(0, 0, 300) {
		t.Errorf("expected peak energy of exactly 300 to not qualify")
	}
}

func TestFossilRegistryArchiveAppendsRecord(t *testing.T) {
	f := NewFossilRegistry()
	l := &Lineage{ID: NewLineageID(), FoundingGeneration: 2, PeakPopulation: 40, ExtinctionCause: "starvation"}
	best := &Genotype{MaxSpeed: 3}

	f.Archive(l, 500, best)
	if len(f.Records) != 1 {
		t.Fatalf("expected exactly one archived record, got %d", len(f.Records))
	}
	rec := f.Records[0]
	if rec.LineageID != l.ID || rec.FoundingGeneration != 2 || rec.PeakPopulation != 40 {
		t.Errorf("expected the record to copy the lineage's founding stats, got %+v", rec)
	}
	if rec.ExtinctionCause != "starvation" || rec.Tick != 500 {
		t.Errorf("expected extinction cause and tick preserved, got %+v", rec)
	}
}

func TestFossilRegistryArchiveLegendAppendsLegend(t *testing.T) {
	f := NewFossilRegistry()
	leg := Legend{AgentID: NewAgentID(), Lifespan: 2000, Offspring: 20}
	f.ArchiveLegend(leg)
	if len(f.Legends) != 1 || f.Legends[0].AgentID != leg.AgentID {
		t.Fatalf("expected the legend appended to the registry, got %+v", f.Legends)
	}
}
