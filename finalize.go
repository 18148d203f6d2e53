package primordium

// FinalizeContext bundles the serial, whole-world collaborators P10 needs:
// lineage/fossil bookkeeping, terrain fertilization of corpses, and the
// periodic cadences (stats, fossil snapshot, power grid, rank grid).
type FinalizeContext struct {
	Terrain    *Terrain
	Lineages   *LineageRegistry
	Fossils    *FossilRegistry
	HallOfFame *HallOfFame
	Config     *SimulationConfig
	Log        *logBuffer
}

// FinalizeResult reports what P10 did, mainly for tests.
type FinalizeResult struct {
	Deaths        int
	Births        int
	LegendsFound  int
	LineagesPruned int
	PowerGrids    [][]int
	Stats         *PopulationStats
}

// ProcessDeaths removes agents marked not-alive (by CmdKill, starvation, or
// fatal infection) from the world's entity list, fertilizing the terrain
// at each corpse's position and archiving legend-worthy agents as legends;
// fossil records are written by PruneLineages and SnapshotFossils (spec §4.7).
func ProcessDeaths(agents []*Agent, ctx *FinalizeContext, tick uint64, corpseFertilityMult float64) ([]*Agent, int) {
	survivors := make([]*Agent, 0, len(agents))
	deaths := 0
	for _, a := range agents {
		if a.Alive {
			survivors = append(survivors, a)
			continue
		}
		deaths++
		lifespan := a.AgeTicks(tick)
		if IsLegendWorthy(lifespan, a.Metabolism.OffspringCount, a.Metabolism.PeakEnergy) {
			ctx.Fossils.ArchiveLegend(Legend{
				AgentID: a.ID, LineageID: a.Metabolism.LineageID, Lifespan: lifespan,
				Offspring: a.Metabolism.OffspringCount, PeakEnergy: a.Metabolism.PeakEnergy, Tick: tick,
			})
		}
		if l, ok := ctx.Lineages.Get(a.Metabolism.LineageID); ok {
			l.ConsiderAncestor(&a.Intel.Genotype.Get().Brain, a.Metabolism.PeakEnergy)
		}
		ctx.Lineages.RecordDeath(a.Metabolism.LineageID, "died")

		idx := ctx.Terrain.cellIndexAt(a.Position.X, a.Position.Y)
		ctx.Terrain.Fertilize(idx, a.Metabolism.Energy*corpseFertilityMult/100)
		ctx.Terrain.AddBiomass(idx, a.Metabolism.Energy*corpseFertilityMult)
	}
	return survivors, deaths
}

// ApplyBirths appends newborns to the world's entity list and records each
// in its lineage's bookkeeping (spec §4.7). Subject to the spawn rate limit
// already applied by ApplyCommands.
func ApplyBirths(agents []*Agent, babies []*Agent, ctx *FinalizeContext) []*Agent {
	for _, baby := range babies {
		if baby == nil {
			continue
		}
		ctx.Lineages.RecordBirth(baby.Metabolism.LineageID, baby.Metabolism.Generation)
		agents = append(agents, baby)
	}
	return agents
}

// ProgressInfections advances every agent's infection timer, killing agents
// whose pathogen rolls fatal and clearing those that outlast their duration
// (spec §4.7).
func ProgressInfections(agents []*Agent, worldSeed uint64, tick uint64) {
	for i, a := range agents {
		if !a.Alive || a.Health.Infection == nil {
			continue
		}
		rng := DeriveRNG(worldSeed, tick, uint64(i), 1)
		cleared, fatal := a.Health.Infection.Progress(rng)
		if fatal {
			a.Alive = false
			continue
		}
		if cleared {
			a.Health.Infection = nil
		}
	}
}

// StarveCheck kills any agent whose energy has reached zero (spec invariant
// 3: an agent with energy <= 0 is dead by the end of the tick it reaches 0).
func StarveCheck(agents []*Agent) {
	for _, a := range agents {
		if a.Alive && a.Metabolism.Energy <= 0 {
			a.Alive = false
		}
	}
}

// PruneLineages runs the periodic lineage garbage collection and archives a
// fossil record for every pruned lineage (spec §4.7).
func PruneLineages(ctx *FinalizeContext, currentGeneration int, tick uint64) int {
	pruned := ctx.Lineages.Prune(currentGeneration, ctx.Config.Population.LineageAgeThreshold, ctx.Config.Population.LineageCountCap)
	for _, l := range pruned {
		ctx.Fossils.Archive(l, tick, l.MaxFitnessAncestor.asGenotype())
	}
	return len(pruned)
}

// asGenotype wraps a lineage's ancestral brain back into a Genotype shell
// purely so FossilRecord has somewhere to hang the brain topology; scalar
// traits are not recoverable from the brain alone and are left zero.
func (b *Brain) asGenotype() *Genotype {
	if b == nil {
		return nil
	}
	return &Genotype{Brain: *b}
}

// outpostCenter returns the world-space center of the cell at idx.
func outpostCenter(t *Terrain, idx int) (float64, float64) {
	cx, cy := idx%t.Width, idx/t.Width
	return float64(cx) + 0.5, float64(cy) + 0.5
}

// kinAgentsNear collects every living agent of lineage within radius r of
// (x,y), via the agent grid's cell-major query order, so the result is
// reproducible regardless of goroutine scheduling (spec §5).
func kinAgentsNear(agents []*Agent, grid *Grid, x, y, r float64, lineage LineageID) []*Agent {
	if grid == nil {
		return nil
	}
	var out []*Agent
	grid.QueryCallback(x, y, r, func(key int) {
		if key < 0 || key >= len(agents) {
			return
		}
		a := agents[key]
		if a.Alive && a.Metabolism.LineageID == lineage {
			out = append(out, a)
		}
	})
	return out
}

const outpostServiceRadius = 3

// ServiceOutpostAgents runs spec §4.7 step 5: owned-lineage agents within
// radius 3 of an outpost donate or withdraw energy according to the
// outpost's specialization. Iterates outposts in ascending cell-index order
// and agents in the grid's fixed cell-major order, so the result never
// depends on goroutine scheduling.
func ServiceOutpostAgents(agents []*Agent, grid *Grid, t *Terrain) {
	if grid == nil {
		return
	}
	for _, idx := range sortedOutpostIndices(t) {
		c := &t.Cells[idx]
		if !c.HasOwner {
			continue
		}
		x, y := outpostCenter(t, idx)
		kin := kinAgentsNear(agents, grid, x, y, outpostServiceRadius, c.Owner)
		for _, a := range kin {
			switch c.OutpostSpec {
			case OutpostSilo:
				if threshold := 0.5 * a.Metabolism.MaxEnergy; a.Metabolism.Energy > threshold {
					drain := (a.Metabolism.Energy - threshold) * 0.1
					a.Metabolism.Energy -= drain
					c.EnergyStore += drain
				}
			case OutpostNursery:
				if a.Metabolism.Energy < 0.5*a.Metabolism.MaxEnergy {
					maxGrant := 0.2 * a.Metabolism.MaxEnergy
					grant := 0.05 * a.Metabolism.MaxEnergy
					if grant > maxGrant {
						grant = maxGrant
					}
					if grant > c.EnergyStore {
						grant = c.EnergyStore
					}
					a.Metabolism.Energy = Clamp(a.Metabolism.Energy+grant, 0, a.Metabolism.MaxEnergy)
					c.EnergyStore -= grant
				}
			default: // OutpostStandard: mild both-way balancing
				if a.Metabolism.Energy > 0.6*a.Metabolism.MaxEnergy {
					drain := (a.Metabolism.Energy - 0.6*a.Metabolism.MaxEnergy) * 0.02
					a.Metabolism.Energy -= drain
					c.EnergyStore += drain
				} else if a.Metabolism.Energy < 0.3*a.Metabolism.MaxEnergy {
					grant := 0.02 * a.Metabolism.MaxEnergy
					if grant > c.EnergyStore {
						grant = c.EnergyStore
					}
					a.Metabolism.Energy = Clamp(a.Metabolism.Energy+grant, 0, a.Metabolism.MaxEnergy)
					c.EnergyStore -= grant
				}
			}
			c.EnergyStore = Clamp(c.EnergyStore, 0, 10000)
		}
	}
}

const outpostContestRadius = 5

// tribalPower sums the contested-ownership power metric over a pre-filtered
// set of one lineage's nearby agents: energy above 20 per agent, boosted
// 1.2x when the lineage's civilization level is 2 or higher (spec §4.7
// step 6). Callers pass only agents already known to share lineage and lie
// within the contest radius.
func tribalPower(nearby []*Agent, lineages *LineageRegistry, lineage LineageID) (power float64, count int) {
	bonus := 1.0
	if l, ok := lineages.Get(lineage); ok && l.CivilizationLevel >= 2 {
		bonus = 1.2
	}
	for _, a := range nearby {
		if a.Metabolism.Energy > 20 {
			power += (a.Metabolism.Energy - 20) * bonus
			count++
		}
	}
	return power, count
}

// ContestOutposts runs spec §4.7 step 6: for every owned outpost, compute
// each nearby lineage's tribal power within radius 5 and transfer ownership
// to a challenger whose power exceeds 2.5x the owner's and whose agent count
// is at least 3, halving the outpost's stored energy on transfer.
func ContestOutposts(agents []*Agent, grid *Grid, t *Terrain, lineages *LineageRegistry) {
	if grid == nil {
		return
	}
	for _, idx := range sortedOutpostIndices(t) {
		c := &t.Cells[idx]
		if !c.HasOwner {
			continue
		}
		x, y := outpostCenter(t, idx)
		byLineage := map[LineageID][]*Agent{}
		var order []LineageID
		grid.QueryCallback(x, y, outpostContestRadius, func(key int) {
			if key < 0 || key >= len(agents) {
				return
			}
			a := agents[key]
			if !a.Alive {
				return
			}
			if _, seen := byLineage[a.Metabolism.LineageID]; !seen {
				order = append(order, a.Metabolism.LineageID)
			}
			byLineage[a.Metabolism.LineageID] = append(byLineage[a.Metabolism.LineageID], a)
		})
		ownerPower, _ := tribalPower(byLineage[c.Owner], lineages, c.Owner)
		var bestChallenger LineageID
		bestPower := 0.0
		found := false
		for _, lin := range order {
			if lin == c.Owner {
				continue
			}
			power, count := tribalPower(byLineage[lin], lineages, lin)
			if count < 3 {
				continue
			}
			if power > bestPower {
				bestPower, bestChallenger, found = power, lin, true
			}
		}
		if found && bestPower > 2.5*ownerPower {
			c.Owner = bestChallenger
			c.EnergyStore *= 0.5
		}
	}
}

// UpgradeOutposts runs spec §4.7 step 7: level-2+ owning lineages upgrade a
// Standard outpost to Silo when the local tribal average energy is high and
// enough energy is stored, or to Nursery when the local average is low and
// at least 3 kin are nearby.
func UpgradeOutposts(agents []*Agent, grid *Grid, t *Terrain, lineages *LineageRegistry) {
	if grid == nil {
		return
	}
	for _, idx := range sortedOutpostIndices(t) {
		c := &t.Cells[idx]
		if !c.HasOwner || c.OutpostSpec != OutpostStandard {
			continue
		}
		l, ok := lineages.Get(c.Owner)
		if !ok || l.CivilizationLevel < 2 {
			continue
		}
		x, y := outpostCenter(t, idx)
		kin := kinAgentsNear(agents, grid, x, y, outpostServiceRadius, c.Owner)
		if len(kin) == 0 {
			continue
		}
		total := 0.0
		for _, a := range kin {
			total += a.Metabolism.Energy
		}
		avg := total / float64(len(kin))
		switch {
		case avg > 60 && c.EnergyStore > 200:
			c.OutpostSpec = OutpostSilo
		case avg < 40 && len(kin) >= 3:
			c.OutpostSpec = OutpostNursery
		}
	}
}

// SnapshotFossils runs spec §4.7 step 4's periodic archive: every
// fossil_interval ticks, every currently-registered lineage (alive or not)
// gets a FossilRecord capturing its state at this tick, independent of the
// extinction-triggered archiving PruneLineages already does. Lineages are
// visited in ascending id order so the archive's ordering never depends on
// map iteration (spec §5).
func SnapshotFossils(ctx *FinalizeContext, tick uint64) {
	ids := make([]LineageID, 0, len(ctx.Lineages.All()))
	for id := range ctx.Lineages.All() {
		ids = append(ids, id)
	}
	sortLineageIDs(ids)
	for _, id := range ids {
		l := ctx.Lineages.byID[id]
		ctx.Fossils.Archive(l, tick, l.MaxFitnessAncestor.asGenotype())
	}
}

func sortLineageIDs(ids []LineageID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1].String() > ids[j].String(); j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// DepositRankGrid stamps each living agent's social rank into a Gaussian-ish
// 3-cell footprint on grid, run every Finalize.RankGridInterval ticks (spec
// §4.7 step 10).
func DepositRankGrid(agents []*Agent, grid *ScalarGrid) {
	if grid == nil {
		return
	}
	for _, a := range agents {
		if !a.Alive || a.Intel.Rank <= 0 {
			continue
		}
		grid.Deposit(a.Position.X, a.Position.Y, a.Intel.Rank)
		grid.Deposit(a.Position.X-1, a.Position.Y, a.Intel.Rank*0.5)
		grid.Deposit(a.Position.X+1, a.Position.Y, a.Intel.Rank*0.5)
	}
}

// unionFind groups outposts into connected components by cell
// adjacency within range (spec §4.7 "power grid": outposts within linking
// distance share an energy bonus pool). Grounded on the teacher's
// territory_graph.go connected-components pass, generalized to an
// array-backed union-find for determinism over a fixed id order.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

const powerGridLinkRange = 8

// ComputePowerGrids groups the terrain's outposts into connected components
// whose members lie within powerGridLinkRange of one another, returning each
// group as a sorted slice of terrain cell indices. Iteration follows the
// ascending index order of OutpostIndices for determinism.
func ComputePowerGrids(t *Terrain) [][]int {
	idxs := sortedOutpostIndices(t)
	if len(idxs) == 0 {
		return nil
	}
	uf := newUnionFind(len(idxs))
	for i := range idxs {
		ci, ri := idxs[i]%t.Width, idxs[i]/t.Width
		for j := i + 1; j < len(idxs); j++ {
			cj, rj := idxs[j]%t.Width, idxs[j]/t.Width
			dx, dy := ci-cj, ri-rj
			if dx*dx+dy*dy <= powerGridLinkRange*powerGridLinkRange {
				uf.union(i, j)
			}
		}
	}
	groups := make(map[int][]int)
	rootOrder := make([]int, 0)
	for i, idx := range idxs {
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			rootOrder = append(rootOrder, r)
		}
		groups[r] = append(groups[r], idx)
	}
	sortInts(rootOrder)
	result := make([][]int, 0, len(rootOrder))
	for _, r := range rootOrder {
		result = append(result, groups[r])
	}
	return result
}

func sortedOutpostIndices(t *Terrain) []int {
	idxs := make([]int, 0, len(t.OutpostIndices))
	for idx := range t.OutpostIndices {
		idxs = append(idxs, idx)
	}
	sortInts(idxs)
	return idxs
}

// ServiceOutposts applies each power grid's pooled energy bonus to every
// member outpost's EnergyStore, and resolves contested ownership by leaving
// a cell's Owner unchanged if more than one lineage claims cells in the same
// grid (spec §4.7: contested grids produce no bonus).
func ServiceOutposts(t *Terrain, grids [][]int, bonusPerMember float64) {
	for _, group := range grids {
		owners := map[LineageID]bool{}
		for _, idx := range group {
			if t.Cells[idx].HasOwner {
				owners[t.Cells[idx].Owner] = true
			}
		}
		if len(owners) > 1 {
			continue // contested: no bonus this cadence
		}
		bonus := bonusPerMember * float64(len(group))
		for _, idx := range group {
			c := &t.Cells[idx]
			c.EnergyStore = Clamp(c.EnergyStore+bonus, 0, 10000)
			if c.OutpostLevel < 5 && c.EnergyStore > float64(c.OutpostLevel)*200 {
				c.OutpostLevel++
			}
		}
	}
}

// Finalize runs the full P10 pass in this order: infections, starvation,
// outpost service/contest/upgrade, removal of dead agents (including those
// marked by ApplyCommands) with corpse fertilization, births, lineage memory
// decay, lineage pruning, then the fossil, power-grid and stats cadences.
func Finalize(w *World, applyResult ApplyResult) FinalizeResult {
	ctx := &FinalizeContext{
		Terrain: w.Terrain, Lineages: w.Lineages, Fossils: w.Fossils,
		HallOfFame: w.HallOfFame, Config: &w.Config, Log: w.logBuf,
	}

	ProgressInfections(w.Agents, w.Config.World.Seed, w.Tick)
	StarveCheck(w.Agents)

	// Outpost steps 5-7 run against w.AgentGrid, built in P2 from this same
	// w.Agents slice (before ProcessDeaths reindexes it), so grid keys still
	// address the right agent (spec §4.7 steps 5-7).
	ServiceOutpostAgents(w.Agents, w.AgentGrid, w.Terrain)
	ContestOutposts(w.Agents, w.AgentGrid, w.Terrain, w.Lineages)
	UpgradeOutposts(w.Agents, w.AgentGrid, w.Terrain, w.Lineages)

	survivors, deaths := ProcessDeaths(w.Agents, ctx, w.Tick, w.Config.Energy.CorpseFertilityMult)
	w.Agents = ApplyBirths(survivors, applyResult.PendingBirths, ctx)

	w.Lineages.DecayMemory(0.01)

	result := FinalizeResult{Deaths: deaths, Births: len(applyResult.PendingBirths)}

	maxGeneration := 0
	for _, a := range w.Agents {
		if a.Metabolism.Generation > maxGeneration {
			maxGeneration = a.Metabolism.Generation
		}
	}
	result.LineagesPruned = PruneLineages(ctx, maxGeneration, w.Tick)

	if w.Config.Finalize.FossilInterval > 0 && w.Tick%w.Config.Finalize.FossilInterval == 0 {
		SnapshotFossils(ctx, w.Tick)
	}

	if w.Config.Finalize.PowerGridInterval > 0 && w.Tick%w.Config.Finalize.PowerGridInterval == 0 {
		grids := ComputePowerGrids(w.Terrain)
		ServiceOutposts(w.Terrain, grids, 5)
		result.PowerGrids = grids
	}

	if w.Config.Finalize.StatsInterval > 0 && w.Tick%w.Config.Finalize.StatsInterval == 0 {
		stats := ComputeStats(w.Tick, w.Agents)
		w.LastStats = stats
		result.Stats = &stats
		for id, l := range w.Lineages.All() {
			w.HallOfFame.Consider(id, l.MaxFitnessSeen)
		}
	}

	return result
}
