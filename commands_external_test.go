package primordium

import (
	"errors"
	"testing"
)

func TestApplyGeneticEditNudgesTraitAndClamps(t *testing.T) {
	w := NewWorld(smallConfig(60), 1)
	a := w.Agents[0]
	before := a.Intel.Genotype.Get().SensingRange

	if err := w.ApplyGeneticEdit(a.ID, "sensing_range", 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := a.Intel.Genotype.Get().SensingRange
	if after <= before {
		t.Errorf("expected sensing_range to increase, got %v (was %v)", after, before)
	}
	if after != 15 {
		t.Errorf("expected sensing_range clamped to its maximum of 15, got %v", after)
	}
}

func TestApplyGeneticEditCopyOnWriteLeavesSiblingsUnaffected(t *testing.T) {
	w := NewWorld(smallConfig(61), 1)
	a := w.Agents[0]
	sibling := &Agent{ID: NewAgentID(), Alive: true, Intel: Intel{Genotype: a.Intel.Genotype.Share(), BondedTo: NilAgentID}}
	w.Agents = append(w.Agents, sibling)

	siblingBefore := sibling.Intel.Genotype.Get().SensingRange
	if err := w.ApplyGeneticEdit(a.ID, "sensing_range", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sibling.Intel.Genotype.Get().SensingRange != siblingBefore {
		t.Errorf("expected a sibling sharing the genotype to be unaffected by the edit")
	}
}

func TestApplyGeneticEditRejectsUnknownAgent(t *testing.T) {
	w := NewWorld(smallConfig(62), 1)
	err := w.ApplyGeneticEdit(NewAgentID(), "max_speed", 1)
	if !errors.Is(err, ErrBadInput) {
		t.Errorf("expected ErrBadInput for an unknown agent id, got %v", err)
	}
}

func TestApplyGeneticEditRejectsUnknownGene(t *testing.T) {
	w := NewWorld(smallConfig(63), 1)
	err := w.ApplyGeneticEdit(w.Agents[0].ID, "not_a_gene", 1)
	if !errors.Is(err, ErrBadInput) {
		t.Errorf("expected ErrBadInput for an unknown gene name, got %v", err)
	}
}

func TestApplyTradeCreditsPoolOnIncoming(t *testing.T) {
	w := NewWorld(smallConfig(64), 1)
	before := w.Environment.AvailableEnergy
	if err := w.ApplyTrade("env", "energy", 50, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Environment.AvailableEnergy != before+50 {
		t.Errorf("expected available energy to increase by 50, got %v", w.Environment.AvailableEnergy)
	}
}

func TestApplyTradeDebitsPoolOnOutgoing(t *testing.T) {
	w := NewWorld(smallConfig(65), 1)
	before := w.Environment.AvailableEnergy
	if err := w.ApplyTrade("env", "energy", 50, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Environment.AvailableEnergy != before-50 {
		t.Errorf("expected available energy to decrease by 50, got %v", w.Environment.AvailableEnergy)
	}
}

func TestApplyTradeRejectsUnknownResource(t *testing.T) {
	w := NewWorld(smallConfig(66), 1)
	err := w.ApplyTrade("env", "gold", 50, true)
	if !errors.Is(err, ErrBadInput) {
		t.Errorf("expected ErrBadInput for an unknown resource, got %v", err)
	}
}

func TestSpawnEntityAppendsAgentAndRecordsLineage(t *testing.T) {
	w := NewWorld(smallConfig(67), 1)
	before := len(w.Agents)
	a := newTestAgent(50, 100)

	if err := w.SpawnEntity(a); err != nil {
		t.Fatalf("unexpected error spawning entity: %v", err)
	}
	if len(w.Agents) != before+1 {
		t.Errorf("expected population to grow by 1, got %d want %d", len(w.Agents), before+1)
	}
}

func TestSpawnEntityRejectsNilAgent(t *testing.T) {
	w := NewWorld(smallConfig(68), 1)
	if err := w.SpawnEntity(nil); !errors.Is(err, ErrBadInput) {
		t.Errorf("expected ErrBadInput for a nil agent, got %v", err)
	}
}

func TestClearResearchDeltasZeroesProgress(t *testing.T) {
	w := NewWorld(smallConfig(69), 1)
	a := w.Agents[0]
	a.Intel.SpecializationProgress = [3]float64{1, 2, 3}

	if err := w.ClearResearchDeltas(a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Intel.SpecializationProgress != ([3]float64{}) {
		t.Errorf("expected specialization progress reset to zero, got %v", a.Intel.SpecializationProgress)
	}
}

func TestClearResearchDeltasRejectsUnknownAgent(t *testing.T) {
	w := NewWorld(smallConfig(70), 1)
	err := w.ClearResearchDeltas(NewAgentID())
	if !errors.Is(err, ErrBadInput) {
		t.Errorf("expected ErrBadInput for an unknown agent, got %v", err)
	}
}

func TestReincarnateSelectedRejectsUnknownLegend(t *testing.T) {
	w := NewWorld(smallConfig(71), 1)
	err := w.ReincarnateSelected(NewAgentID())
	if !errors.Is(err, ErrBadInput) {
		t.Errorf("expected ErrBadInput when no legend matches, got %v", err)
	}
}

func TestReincarnateSelectedSpawnsFromArchivedLegend(t *testing.T) {
	w := NewWorld(smallConfig(72), 1)
	legendID := w.Agents[0].ID
	w.Fossils.ArchiveLegend(Legend{AgentID: legendID, LineageID: NewLineageID(), Lifespan: 2000})
	before := len(w.Agents)

	if err := w.ReincarnateSelected(legendID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.Agents) != before+1 {
		t.Errorf("expected a new agent to be spawned, got population %d want %d", len(w.Agents), before+1)
	}
}
