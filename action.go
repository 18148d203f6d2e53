package primordium

import "math"

// ActionOutcome is the per-agent product of P6: an intended velocity/energy
// cost and the commands it wants applied. It is kept private to the agent
// until P7 merges it serially (spec §4.5/§4.6).
type ActionOutcome struct {
	Idx         int
	NewVelocity Vector2D
	EnergyCost  float64
	OxygenDrain float64

	PheromoneDeposits []fieldDeposit
	PressureDeposits  []fieldDeposit
	SoundDeposit      float64

	Commands []Command
}

type fieldDeposit struct {
	channel int
	amount  float64
}

const (
	baseMetabolicCost = 0.05
	moveCostPerUnit   = 0.02
	eatRadius         = 1.5
	interactionRadius = 2.0
	bondRadius        = 3.0

	brainMaintenancePerNode       = 0.0005
	brainMaintenancePerConnection = 0.0002
	signalCostPerUnit             = 0.01
	predationModeCostMult         = 1.3
	oxygenDrainPerMoveUnit        = 0.00002
	baseOxygenDrain               = 0.000005
)

// ComputeAction runs P6 for one agent: it turns the brain's 12 outputs into
// an intended velocity and a list of commands referencing snapshot indices
// only (never a live *Agent pointer), so the result is safe to build
// concurrently across agents (spec §4.5, §9).
func ComputeAction(a *Agent, snap *Snapshot, outputs [NumOutputs]float64, eff EffectiveTraits, in *DecisionInputs) ActionOutcome {
	out := ActionOutcome{Idx: snap.Idx}

	desired := Vector2D{X: outputs[OutMoveX], Y: outputs[OutMoveY]}
	desired = desired.Add(bondSpringForce(snap, in).Scale(0.6))
	desired = desired.Add(leaderFollowForce(snap, eff, in).Scale(0.4))
	speedFrac := Clamp((outputs[OutSpeed]+1)/2, 0, 1)
	wantVel := desired.Normalize().Scale(eff.Speed * speedFrac)
	out.NewVelocity = snap.Velocity.Add(wantVel.Sub(snap.Velocity).Scale(0.5)).ClampLength(eff.Speed)

	moveDist := out.NewVelocity.Length()
	brain := a.Intel.Genotype.Get().Brain
	brainCost := float64(len(brain.Nodes))*brainMaintenancePerNode + float64(len(brain.Connections))*brainMaintenancePerConnection
	signalCost := 0.0
	if outputs[OutEmitA] > 0.2 {
		signalCost += math.Abs(outputs[OutEmitA]) * signalCostPerUnit
	}
	if outputs[OutEmitB] > 0.2 {
		signalCost += math.Abs(outputs[OutEmitB]) * signalCostPerUnit
	}
	predationMult := 1.0
	if outputs[OutAggro] > 0.6 {
		predationMult = predationModeCostMult
	}
	out.EnergyCost = (baseMetabolicCost*in.worldEnv().MetabolismMultiplier()+brainCost+signalCost)*predationMult + moveDist*moveCostPerUnit
	out.OxygenDrain = (moveDist*oxygenDrainPerMoveUnit + baseOxygenDrain) * predationMult

	if outputs[OutEmitA] > 0.2 {
		out.PheromoneDeposits = append(out.PheromoneDeposits, fieldDeposit{int(PheromoneSignalA), outputs[OutEmitA]})
	}
	if outputs[OutEmitB] > 0.2 {
		out.PheromoneDeposits = append(out.PheromoneDeposits, fieldDeposit{int(PheromoneSignalB), outputs[OutEmitB]})
	}
	if snap.Energy > snap.MaxEnergy*0.5 {
		out.PheromoneDeposits = append(out.PheromoneDeposits, fieldDeposit{int(PheromoneFood), 0.1})
	}
	out.PheromoneDeposits = append(out.PheromoneDeposits, fieldDeposit{int(PheromoneTribe), 0.05})

	if outputs[OutAggro] > 0.3 {
		out.SoundDeposit = outputs[OutAggro]
	}

	if outputs[OutDig] > 0.5 {
		out.PressureDeposits = append(out.PressureDeposits, fieldDeposit{int(PressureDig), outputs[OutDig]})
	}
	if outputs[OutBuild] > 0.5 {
		out.PressureDeposits = append(out.PressureDeposits, fieldDeposit{int(PressureBuild), outputs[OutBuild]})
	}

	gatherInteractionCommands(a, snap, outputs, in, &out)

	return out
}

// bondSpringForce pulls a bonded agent toward its partner once the pair
// drifts more than one unit apart, like a spring anchored at that radius
// (spec §4.5 "bonded spring force toward partner"). Unbonded agents, or a
// partner whose snapshot already vanished this tick, contribute nothing.
func bondSpringForce(snap *Snapshot, in *DecisionInputs) Vector2D {
	if snap.BondedTo.IsNil() {
		return Vector2D{}
	}
	partner := findSnapshotByID(in.Snapshots, snap.BondedTo)
	if partner == nil {
		return Vector2D{}
	}
	delta := partner.Position.Sub(snap.Position)
	d := delta.Length()
	if d <= 1.0 {
		return Vector2D{}
	}
	return delta.Normalize().Scale(math.Min(d-1.0, 1.0))
}

// leaderFollowForce pulls an agent toward the highest-rank same-lineage
// neighbor within its sensing range, so long as that neighbor outranks it
// (spec §4.5 "leader-following vector toward the highest-rank same-lineage
// agent in sensing range"). An agent that is already the local top rank
// follows no one. Uses eff.Sensing (this tick's regulated range) rather
// than the snapshot's raw Physics.SensingRange, matching how P5 already
// applies regulatory modifiers before anything senses with it.
func leaderFollowForce(snap *Snapshot, eff EffectiveTraits, in *DecisionInputs) Vector2D {
	bestRank, bestIdx := snap.Rank, -1
	in.AgentGrid.QueryCallback(snap.Position.X, snap.Position.Y, eff.Sensing, func(key int) {
		if key == snap.Idx {
			return
		}
		other, ok := in.SnapshotByIdx[key]
		if !ok || other.LineageID != snap.LineageID {
			return
		}
		if other.Rank > bestRank {
			bestRank, bestIdx = other.Rank, key
		}
	})
	if bestIdx < 0 {
		return Vector2D{}
	}
	leader := in.SnapshotByIdx[bestIdx]
	delta := leader.Position.Sub(snap.Position)
	if delta.Length() < 0.01 {
		return Vector2D{}
	}
	return delta.Normalize()
}

// gatherInteractionCommands inspects nearby agents/food within range and
// emits the command variants they license; the actual mutation happens
// serially in ApplyCommands (spec §4.6).
func gatherInteractionCommands(a *Agent, snap *Snapshot, outputs [NumOutputs]float64, in *DecisionInputs, out *ActionOutcome) {
	g := a.Intel.Genotype.Get()

	bestFood, bestFoodDist := -1, math.MaxFloat64
	in.FoodGrid.QueryCallback(snap.Position.X, snap.Position.Y, eatRadius, func(key int) {
		if key < 0 || key >= len(in.Food) {
			return
		}
		d := in.Food[key].Position.Sub(snap.Position).Length()
		if d < bestFoodDist {
			bestFoodDist = d
			bestFood = key
		}
	})
	if bestFood >= 0 {
		out.Commands = append(out.Commands, Command{
			Kind: CmdEatFood, ActorIdx: snap.Idx, AttackerIdx: snap.Idx,
			FoodIndex: bestFood, EnergyGain: in.Food[bestFood].Value,
		})
	}

	if outputs[OutAggro] > 0.6 {
		target, targetDist := -1, math.MaxFloat64
		in.AgentGrid.QueryCallback(snap.Position.X, snap.Position.Y, interactionRadius, func(key int) {
			if key == snap.Idx {
				return
			}
			other, ok := in.SnapshotByIdx[key]
			if !ok || other.LineageID == snap.LineageID {
				return
			}
			d := other.Position.Sub(snap.Position).Length()
			if d < targetDist {
				targetDist = d
				target = key
			}
		})
		if target >= 0 {
			chance := Clamp(0.3+0.4*g.TrophicPotential+(outputs[OutAggro]-0.6), 0, 0.95)
			out.Commands = append(out.Commands, Command{
				Kind: CmdKill, ActorIdx: snap.Idx, AttackerIdx: snap.Idx, TargetIdx: target,
				AttackerLineage: snap.LineageID, Cause: "predation",
				EnergyGain: in.SnapshotByIdx[target].Energy * 0.6, SuccessChance: chance,
			})
		}
	}

	if outputs[OutBond] > 0.5 && snap.BondedTo.IsNil() {
		bestPartner, bestPartnerDist := -1, math.MaxFloat64
		in.AgentGrid.QueryCallback(snap.Position.X, snap.Position.Y, bondRadius, func(key int) {
			if key == snap.Idx {
				return
			}
			other, ok := in.SnapshotByIdx[key]
			if !ok || other.LineageID != snap.LineageID || !other.BondedTo.IsNil() {
				return
			}
			d := other.Position.Sub(snap.Position).Length()
			if d < bestPartnerDist {
				bestPartnerDist = d
				bestPartner = key
			}
		})
		if bestPartner >= 0 {
			partner := in.SnapshotByIdx[bestPartner]
			out.Commands = append(out.Commands,
				Command{Kind: CmdBond, ActorIdx: snap.Idx, TargetIdx: snap.Idx, PartnerID: partner.ID},
				Command{Kind: CmdBond, ActorIdx: bestPartner, TargetIdx: bestPartner, PartnerID: snap.ID},
			)
		}
	}

	if outputs[OutShare] > 0.5 && !snap.BondedTo.IsNil() {
		if partner := findSnapshotByID(in.Snapshots, snap.BondedTo); partner != nil {
			amount := snap.Energy * 0.1
			out.Commands = append(out.Commands, Command{
				Kind: CmdTransferEnergy, ActorIdx: partner.Idx, TargetIdx: partner.Idx, Amount: amount,
			})
			out.EnergyCost += amount
		}
	}

	if outputs[OutDig] > 0.7 {
		out.Commands = append(out.Commands, Command{
			Kind: CmdDig, ActorIdx: snap.Idx, AttackerIdx: snap.Idx, X: snap.Position.X, Y: snap.Position.Y,
		})
	}
	if outputs[OutBuild] > 0.7 && snap.Energy > 30 {
		out.Commands = append(out.Commands, Command{
			Kind: CmdBuild, ActorIdx: snap.Idx, AttackerIdx: snap.Idx, X: snap.Position.X, Y: snap.Position.Y,
			AttackerLineage: snap.LineageID,
			BuildSpec:       OutpostBuildSpec{IsOutpost: true, Spec: OutpostStandard},
		})
	}

	if a.IsLarva() && a.Metabolism.Energy > a.Metabolism.MaxEnergy*0.8 {
		out.Commands = append(out.Commands, Command{Kind: CmdMetamorphosis, ActorIdx: snap.Idx, TargetIdx: snap.Idx})
	}

	if birth, ok := tryReproduce(a, snap, in); ok {
		out.Commands = append(out.Commands, birth)
		out.EnergyCost += a.Intel.Genotype.Get().ReproductiveInvest * snap.MaxEnergy * 0.4
	}
}

// tryReproduce builds a Birth command when the agent is mature, bonded, and
// holds enough energy to invest in an offspring (spec §4.7 birth
// preconditions). The child genotype is produced by Crossover plus Mutate,
// matching the teacher's genetics.go breed-then-mutate pipeline.
func tryReproduce(a *Agent, snap *Snapshot, in *DecisionInputs) (Command, bool) {
	if !a.IsMature(in.Tick, in.MaturityAgeBase) || snap.BondedTo.IsNil() {
		return Command{}, false
	}
	partner := findSnapshotByID(in.Snapshots, snap.BondedTo)
	if partner == nil {
		return Command{}, false
	}
	g := a.Intel.Genotype.Get()
	invest := g.ReproductiveInvest * snap.MaxEnergy * 0.4
	if snap.Energy < invest+snap.MaxEnergy*0.3 {
		return Command{}, false
	}
	partnerAgent := safeAgent(in.Agents, partner.Idx)
	if partnerAgent == nil {
		return Command{}, false
	}
	rng := DeriveRNG(in.WorldSeed, in.Tick, uint64(snap.Idx), uint64(partner.Idx))
	if !rng.Bool(0.02) {
		return Command{}, false
	}
	childGenotype := Crossover(rng, g, partnerAgent.Intel.Genotype.Get(), snap.Energy, partner.Energy)
	pressure := MutationPressure{}
	mutated := childGenotype.Mutate(rng, 0.05, 0.3, 0.05, pressure, nil, 0, nil)
	var childID AgentID
	for i := range childID {
		childID[i] = byte(rng.IntN(256))
	}

	baby := &Agent{
		ID: childID, ParentID: snap.ID,
		Position: a.Position, Velocity: Vector2D{},
		Physics: Physics{SensingRange: mutated.SensingRange, MaxSpeed: mutated.MaxSpeed, Appearance: a.Physics.Appearance},
		Metabolism: Metabolism{
			Energy: invest, MaxEnergy: mutated.MaxEnergy, PeakEnergy: invest,
			BirthTick: in.Tick, Generation: a.Metabolism.Generation + 1,
			LineageID: snap.LineageID,
		},
		Intel: Intel{Genotype: NewGenotypeRef(mutated), AncestralTraits: map[string]bool{}},
		Alive: true,
	}
	return Command{Kind: CmdBirth, ActorIdx: snap.Idx, Baby: baby}, true
}

// worldEnv is set by World before each tick's P6 phase so ComputeAction can
// read the shared, read-only Environment without widening DecisionInputs'
// exported surface for every caller.
func (in *DecisionInputs) worldEnv() *Environment {
	return in.env
}

// ApplyActions is P7: the serial merge of every agent's intended velocity,
// deposits, and energy cost. No other phase may write position/velocity or
// field state (spec §4.5 step, §9).
func ApplyActions(agents []*Agent, outcomes []ActionOutcome, pher *PheromoneField, press *PressureField, sound *ScalarGrid, env *Environment, width, height float64) {
	totalOxygenDrain := 0.0
	for _, oc := range outcomes {
		a := safeAgent(agents, oc.Idx)
		if a == nil || !a.Alive {
			continue
		}
		a.Velocity = oc.NewVelocity
		a.Position = a.Position.Add(a.Velocity)
		a.ClampToWorld(width, height)

		a.Metabolism.Energy = Clamp(a.Metabolism.Energy-oc.EnergyCost, 0, a.Metabolism.MaxEnergy)
		if a.Metabolism.Energy > a.Metabolism.PeakEnergy {
			a.Metabolism.PeakEnergy = a.Metabolism.Energy
		}

		for _, d := range oc.PheromoneDeposits {
			pher.Deposit(a.Position.X, a.Position.Y, PheromoneChannel(d.channel), d.amount)
		}
		for _, d := range oc.PressureDeposits {
			press.Deposit(a.Position.X, a.Position.Y, PressureKind(d.channel), d.amount)
		}
		if oc.SoundDeposit > 0 {
			sound.Deposit(a.Position.X, a.Position.Y, oc.SoundDeposit)
		}

		env.AvailableEnergy -= oc.EnergyCost
		totalOxygenDrain += oc.OxygenDrain
	}
	env.DrainOxygen(totalOxygenDrain)
}
