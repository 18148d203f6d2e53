package primordium

import "sort"

// CommandKind discriminates the interaction command variants (spec §4.6).
type CommandKind int

const (
	CmdEatFood CommandKind = iota
	CmdKill
	CmdBirth
	CmdBond
	CmdBondBreak
	CmdTransferEnergy
	CmdInfect
	CmdUpdateReputation
	CmdFertilize
	CmdTribalTerritory
	CmdDig
	CmdBuild
	CmdMetamorphosis
	CmdTribalSplit
)

// OutpostBuildSpec carries the parameters of a Build command that creates an
// outpost.
type OutpostBuildSpec struct {
	IsNest    bool
	IsOutpost bool
	Spec      OutpostSpec
}

// Command is a value-typed description of a cross-agent (or cell) effect,
// referencing indices into the tick's frozen snapshot, never aliased
// references (spec §4.6, §9).
type Command struct {
	Kind CommandKind

	ActorIdx int // attacker/parent/target used as the sort key's actor

	FoodIndex       int
	TargetIdx       int
	AttackerIdx     int
	AttackerLineage LineageID
	Cause           string
	EnergyGain      float64
	SuccessChance   float64

	Baby            *Agent
	GeneticDistance float64

	PartnerID AgentID
	Amount    float64 // signed, for TransferEnergy; magnitude for Fertilize

	Pathogen Pathogen

	X, Y  float64
	IsWar bool

	BuildSpec OutpostBuildSpec

	NewLineageColor LineageID
}

// variantTag gives a deterministic ordering among commands that share
// the same actor index (spec §4.6 step 1: ties break on variant_tag).
func (c Command) variantTag() int { return int(c.Kind) }

// SortCommands stable-sorts by (actor_idx, variant_tag). The "actor" is the
// attacker for predation/eat/build/dig, the parent for birth, the target for
// bond/transfer (spec §4.6 step 1).
func SortCommands(cmds []Command) {
	sort.SliceStable(cmds, func(i, j int) bool {
		if cmds[i].ActorIdx != cmds[j].ActorIdx {
			return cmds[i].ActorIdx < cmds[j].ActorIdx
		}
		return cmds[i].variantTag() < cmds[j].variantTag()
	})
}

func isReadOnlyStateCommand(kind CommandKind) bool {
	switch kind {
	case CmdTransferEnergy, CmdUpdateReputation, CmdFertilize:
		return true
	default:
		return false
	}
}

// ApplyContext bundles everything ApplyCommands needs to mutate world state.
type ApplyContext struct {
	Agents      []*Agent
	Terrain     *Terrain
	Lineages    *LineageRegistry
	SocialGrid  map[[2]int]LineageID // social/territory overlay, keyed by cell
	WorldSeed   uint64
	Tick        uint64
	MaxEntitiesPerTick int
	SpawnRateLimitEnabled bool
	Log         *logBuffer
}

// ApplyResult carries the output of the structural group that Finalize (P10)
// needs: accumulated births and the kill/eat skip sets for idempotence
// checks in tests.
type ApplyResult struct {
	PendingBirths []*Agent
	KilledIdx     map[int]bool
	EatenFood     map[int]bool
}

// ApplyCommands sorts cmds by the stable key, partitions into the read-only
// and structural groups, and applies each group serially in order (spec
// §4.6 steps 1-5). No command is retried within a tick; a skipped effect
// simply does not occur (spec §4.6 Failure semantics).
func ApplyCommands(ctx *ApplyContext, cmds []Command) ApplyResult {
	SortCommands(cmds)

	result := ApplyResult{
		KilledIdx: make(map[int]bool),
		EatenFood: make(map[int]bool),
	}

	var readOnly, structural []Command
	for _, c := range cmds {
		if isReadOnlyStateCommand(c.Kind) {
			readOnly = append(readOnly, c)
		} else {
			structural = append(structural, c)
		}
	}

	for _, c := range readOnly {
		applyOne(ctx, c, &result)
	}
	for _, c := range structural {
		applyOne(ctx, c, &result)
	}

	if ctx.SpawnRateLimitEnabled && len(result.PendingBirths) > ctx.MaxEntitiesPerTick {
		result.PendingBirths = result.PendingBirths[:ctx.MaxEntitiesPerTick]
	}

	return result
}

func applyOne(ctx *ApplyContext, c Command, result *ApplyResult) {
	switch c.Kind {
	case CmdEatFood:
		if result.EatenFood[c.FoodIndex] {
			return
		}
		result.EatenFood[c.FoodIndex] = true
		if a := safeAgent(ctx.Agents, c.AttackerIdx); a != nil {
			a.Metabolism.Energy = Clamp(a.Metabolism.Energy+c.EnergyGain, 0, a.Metabolism.MaxEnergy)
		}

	case CmdKill:
		if result.KilledIdx[c.TargetIdx] {
			return
		}
		target := safeAgent(ctx.Agents, c.TargetIdx)
		if target == nil || !target.Alive {
			return
		}
		roll := DeriveRNG(ctx.WorldSeed, ctx.Tick, uint64(c.TargetIdx), 0).Float64()
		if c.SuccessChance < roll {
			return // attacker lost the deterministic roll
		}
		result.KilledIdx[c.TargetIdx] = true
		target.Alive = false
		if a := safeAgent(ctx.Agents, c.AttackerIdx); a != nil {
			a.Metabolism.Energy = Clamp(a.Metabolism.Energy+c.EnergyGain, 0, a.Metabolism.MaxEnergy)
		}

	case CmdBirth:
		result.PendingBirths = append(result.PendingBirths, c.Baby)
		if parent := safeAgent(ctx.Agents, c.ActorIdx); parent != nil {
			parent.Metabolism.OffspringCount++
		}

	case CmdBond:
		if target := safeAgent(ctx.Agents, c.TargetIdx); target != nil {
			target.Intel.BondedTo = c.PartnerID
		}

	case CmdBondBreak:
		if target := safeAgent(ctx.Agents, c.TargetIdx); target != nil {
			if target.Intel.BondedTo == c.PartnerID {
				target.Intel.BondedTo = NilAgentID
			}
		}

	case CmdTransferEnergy:
		if result.KilledIdx[c.TargetIdx] {
			return
		}
		if target := safeAgent(ctx.Agents, c.TargetIdx); target != nil {
			target.Metabolism.Energy = Clamp(target.Metabolism.Energy+c.Amount, 0, target.Metabolism.MaxEnergy)
		}

	case CmdInfect:
		if target := safeAgent(ctx.Agents, c.TargetIdx); target != nil && target.Health.Infection == nil {
			target.Health.Infection = &Infection{Pathogen: c.Pathogen}
		}

	case CmdUpdateReputation:
		if target := safeAgent(ctx.Agents, c.TargetIdx); target != nil {
			target.Intel.Reputation = Clamp(target.Intel.Reputation+c.Amount, -1, 1)
		}

	case CmdFertilize:
		idx := ctx.Terrain.cellIndexAt(c.X, c.Y)
		ctx.Terrain.Fertilize(idx, c.Amount)
		ctx.Terrain.AddBiomass(idx, c.Amount*10)

	case CmdTribalTerritory:
		if ctx.SocialGrid != nil {
			cx, cy := int(c.X), int(c.Y)
			ctx.SocialGrid[[2]int{cx, cy}] = c.AttackerLineage
		}

	case CmdDig:
		idx := ctx.Terrain.cellIndexAt(c.X, c.Y)
		cell := &ctx.Terrain.Cells[idx]
		if cell.Type == Plains || cell.Type == Barren {
			ctx.Terrain.SetCellType(idx, Barren)
			cell.Stability = Clamp(cell.Stability-0.1, 0, 1)
		}

	case CmdBuild:
		idx := ctx.Terrain.cellIndexAt(c.X, c.Y)
		cell := &ctx.Terrain.Cells[idx]
		if cell.Type == Outpost || cell.Type == Wall {
			return
		}
		if c.BuildSpec.IsNest {
			ctx.Terrain.SetCellType(idx, Nest)
		} else if c.BuildSpec.IsOutpost {
			ctx.Terrain.SetCellType(idx, Outpost)
			cell.OutpostSpec = c.BuildSpec.Spec
			cell.OutpostLevel = 1
		} else {
			ctx.Terrain.SetCellType(idx, Wall)
		}
		cell.Owner = c.AttackerLineage
		cell.HasOwner = true
		if a := safeAgent(ctx.Agents, c.AttackerIdx); a != nil {
			a.Metabolism.Energy = Clamp(a.Metabolism.Energy-20, 0, a.Metabolism.MaxEnergy)
		}

	case CmdMetamorphosis:
		if target := safeAgent(ctx.Agents, c.TargetIdx); target != nil {
			target.Metabolism.HasMetamorphosed = true
		}

	case CmdTribalSplit:
		if target := safeAgent(ctx.Agents, c.TargetIdx); target != nil {
			ctx.Lineages.RecordDeath(target.Metabolism.LineageID, "split")
			target.Metabolism.LineageID = LineageID(c.NewLineageColor)
			ctx.Lineages.RecordBirth(target.Metabolism.LineageID, target.Metabolism.Generation)
		}
	}
}

func safeAgent(agents []*Agent, idx int) *Agent {
	if idx < 0 || idx >= len(agents) {
		return nil
	}
	return agents[idx]
}

func (t *Terrain) cellIndexAt(x, y float64) int {
	cx, cy := int(x), int(y)
	if cx < 0 {
		cx = 0
	}
	if cy < 0 {
		cy = 0
	}
	if cx >= t.Width {
		cx = t.Width - 1
	}
	if cy >= t.Height {
		cy = t.Height - 1
	}
	return t.index(cx, cy)
}
