package primordium

import (
	"errors"
	"testing"
)

func TestChannelStoreSubmitGenomeSucceedsWithinCapacity(t *testing.T) {
	s := NewChannelStore(2, NewHallOfFame(5))
	if err := s.SubmitGenome(NewLineageID(), &Genotype{}); err != nil {
		t.Fatalf("unexpected error submitting genome within capacity: %v", err)
	}
}

func TestChannelStoreSubmitGenomeDegradesWhenFull(t *testing.T) {
	s := NewChannelStore(1, NewHallOfFame(5))
	if err := s.SubmitGenome(NewLineageID(), &Genotype{}); err != nil {
		t.Fatalf("unexpected error on first submit: %v", err)
	}
	err := s.SubmitGenome(NewLineageID(), &Genotype{})
	if !errors.Is(err, ErrTransientPersistence) {
		t.Errorf("expected ErrTransientPersistence once the queue is full, got %v", err)
	}
}

func TestChannelStoreDrainGenomesReturnsQueuedWrites(t *testing.T) {
	s := NewChannelStore(4, NewHallOfFame(5))
	lin := NewLineageID()
	s.SubmitGenome(lin, &Genotype{MaxSpeed: 2})

	drained := s.DrainGenomes()
	if len(drained) != 1 || drained[0].lineage != lin {
		t.Fatalf("expected exactly the submitted genome to drain, got %+v", drained)
	}
	if len(s.DrainGenomes()) != 0 {
		t.Errorf("expected a second drain on an empty queue to return nothing")
	}
}

func TestChannelStoreQueryHallOfFameAsyncRespectsLimit(t *testing.T) {
	hof := NewHallOfFame(10)
	hof.Consider(NewLineageID(), 5)
	hof.Consider(NewLineageID(), 10)
	hof.Consider(NewLineageID(), 1)
	s := NewChannelStore(1, hof)

	result := <-s.QueryHallOfFameAsync(HallOfFameQuery{Limit: 2})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected limit of 2 entries, got %d", len(result.Entries))
	}
	if result.Entries[0].Fitness != 10 {
		t.Errorf("expected the highest-fitness entry first, got %v", result.Entries[0].Fitness)
	}
}

func TestPersistTickRecordsFirstFailure(t *testing.T) {
	w := NewWorld(smallConfig(30), 1)
	store := NewChannelStore(0, NewHallOfFame(5))
	snap := BuildWorldSnapshot(w)

	w.PersistTick(store, snap)
	if !errors.Is(w.LastPersistenceError, ErrTransientPersistence) {
		t.Errorf("expected a zero-capacity store to record a transient persistence error, got %v", w.LastPersistenceError)
	}
}
