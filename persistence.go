package primordium

// PersistentStore is the narrow interface the engine holds onto an external
// storage collaborator; it is explicitly out of scope to implement for real
// (spec §1), so the engine only depends on this contract. Every method must
// return (or enqueue) without blocking the caller's tick (spec §5
// "Suspension / blocking").
type PersistentStore interface {
	SubmitGenome(lineage LineageID, g *Genotype) error
	SubmitSeed(seed uint64) error
	SaveSnapshot(snap WorldSnapshot) error
	QueryHallOfFameAsync(req HallOfFameQuery) <-chan HallOfFameResult
}

// HallOfFameQuery is the request half of the async hall-of-fame lookup.
type HallOfFameQuery struct {
	Limit int
}

// HallOfFameResult is delivered on the channel QueryHallOfFameAsync returns,
// exactly once, whether or not the lookup succeeded.
type HallOfFameResult struct {
	Entries []HallOfFameEntry
	Err     error
}

// channelStore is a reference PersistentStore that never blocks: every
// write is posted to a bounded channel a background consumer drains, and a
// full channel degrades to ErrTransientPersistence rather than stalling the
// tick (spec §7 policy for ErrTransientPersistence). Grounded on the
// teacher's persistence_worker.go channel-backed writer.
type channelStore struct {
	genomes   chan genomeWrite
	seeds     chan uint64
	snapshots chan WorldSnapshot
	hof       *HallOfFame
}

type genomeWrite struct {
	lineage LineageID
	g       *Genotype
}

// NewChannelStore builds a channelStore with the given per-queue buffer
// depth and the HallOfFame it answers queries from.
func NewChannelStore(queueDepth int, hof *HallOfFame) *channelStore {
	return &channelStore{
		genomes:   make(chan genomeWrite, queueDepth),
		seeds:     make(chan uint64, queueDepth),
		snapshots: make(chan WorldSnapshot, queueDepth),
		hof:       hof,
	}
}

func (s *channelStore) SubmitGenome(lineage LineageID, g *Genotype) error {
	select {
	case s.genomes <- genomeWrite{lineage, g}:
		return nil
	default:
		return wrapf(ErrTransientPersistence, "genome queue full")
	}
}

func (s *channelStore) SubmitSeed(seed uint64) error {
	select {
	case s.seeds <- seed:
		return nil
	default:
		return wrapf(ErrTransientPersistence, "seed queue full")
	}
}

func (s *channelStore) SaveSnapshot(snap WorldSnapshot) error {
	select {
	case s.snapshots <- snap:
		return nil
	default:
		return wrapf(ErrTransientPersistence, "snapshot queue full")
	}
}

// QueryHallOfFameAsync answers immediately from the in-memory HallOfFame;
// the channel indirection exists so callers that expect a genuinely async
// backing store (spec §6) are not coupled to this reference implementation
// answering synchronously.
func (s *channelStore) QueryHallOfFameAsync(req HallOfFameQuery) <-chan HallOfFameResult {
	out := make(chan HallOfFameResult, 1)
	entries := s.hof.Entries
	if req.Limit > 0 && req.Limit < len(entries) {
		entries = entries[:req.Limit]
	}
	out <- HallOfFameResult{Entries: append([]HallOfFameEntry(nil), entries...)}
	close(out)
	return out
}

// DrainGenomes is called by the background consumer task the spec assumes
// exists outside the engine; it never runs on the tick goroutine.
func (s *channelStore) DrainGenomes() []genomeWrite {
	var out []genomeWrite
	for {
		select {
		case w := <-s.genomes:
			out = append(out, w)
		default:
			return out
		}
	}
}

// PersistTick posts the tick's snapshot, and the genome of every archived
// legend whose agent is still in w.Agents, to store. Each failure is stored
// on w.LastPersistenceError (a later one overwrites an earlier one); nothing
// is retried within the tick (spec §7 "Transient persistence").
func (w *World) PersistTick(store PersistentStore, snap WorldSnapshot) {
	if err := store.SaveSnapshot(snap); err != nil {
		w.LastPersistenceError = err
	}
	for _, leg := range w.Fossils.Legends {
		a := findAgentByID(w.Agents, leg.AgentID)
		if a == nil {
			continue
		}
		if err := store.SubmitGenome(leg.LineageID, a.Intel.Genotype.Get()); err != nil {
			w.LastPersistenceError = err
		}
	}
}

func findAgentByID(agents []*Agent, id AgentID) *Agent {
	for _, a := range agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}
