package primordium

// Snapshot is the read-only freeze of one agent's state for the tick,
// captured in P3 before any parallel phase runs (spec §3, §5, §6).
type Snapshot struct {
	Idx        int
	ID         AgentID
	Position   Vector2D
	Velocity   Vector2D
	Energy     float64
	MaxEnergy  float64
	LineageID  LineageID
	Rank       float64
	BondedTo   AgentID
	Sensing    float64
	Generation int
	BirthTick  uint64
}

// CaptureSnapshots performs P3: freeze a read-only view of every living
// agent for the tick.
func CaptureSnapshots(agents []*Agent) []Snapshot {
	snaps := make([]Snapshot, 0, len(agents))
	for i, a := range agents {
		if !a.Alive {
			continue
		}
		snaps = append(snaps, Snapshot{
			Idx: i, ID: a.ID, Position: a.Position, Velocity: a.Velocity,
			Energy: a.Metabolism.Energy, MaxEnergy: a.Metabolism.MaxEnergy,
			LineageID: a.Metabolism.LineageID, Rank: a.Intel.Rank,
			BondedTo: a.Intel.BondedTo, Sensing: a.Physics.SensingRange,
			Generation: a.Metabolism.Generation, BirthTick: a.Metabolism.BirthTick,
		})
	}
	return snaps
}

// DecisionInputs bundles the read-only collaborators P4/P5 need, all frozen
// or append-only for the duration of the phase.
type DecisionInputs struct {
	Agents      []*Agent
	AgentGrid   *Grid
	FoodGrid    *Grid
	Food        []Food
	Pheromones  *PheromoneField
	Sound       *ScalarGrid
	Pressure    *PressureField
	Terrain     *Terrain
	Lineages    *LineageRegistry
	Snapshots   []Snapshot
	SnapshotByIdx map[int]*Snapshot
	WorldSeed   uint64
	Tick        uint64
	MaturityAgeBase uint64
	env         *Environment
}

// UpdateRank applies P4's social-rank update: rank drifts toward a
// running measure of local dominance (energy relative to nearby same-lineage
// agents), purely from the frozen snapshot.
func UpdateRank(a *Agent, snap *Snapshot, in *DecisionInputs) {
	higher, total := 0, 0
	in.AgentGrid.QueryCallback(snap.Position.X, snap.Position.Y, a.Physics.SensingRange, func(key int) {
		other, ok := in.SnapshotByIdx[key]
		if !ok || other.LineageID != snap.LineageID || key == snap.Idx {
			return
		}
		total++
		if other.Energy > snap.Energy {
			higher++
		}
	})
	target := 1.0
	if total > 0 {
		target = 1 - float64(higher)/float64(total)
	}
	a.Intel.Rank = a.Intel.Rank + 0.05*(target-a.Intel.Rank)
}

// ApplyHebbian nudges connection weights from the previous tick's inputs and
// activations toward reinforcing the observed energy delta (P4). This reads
// and writes only the agent's own private state.
func ApplyHebbian(a *Agent) {
	delta := a.Metabolism.Energy - a.Metabolism.PrevEnergy
	if delta == 0 {
		return
	}
	lr := a.Intel.Genotype.Get().Brain.LearningRate
	if lr == 0 {
		return
	}
	g := a.Intel.Genotype.Get()
	sign := 1.0
	if delta < 0 {
		sign = -1.0
	}
	for i := range g.Brain.Connections {
		c := &g.Brain.Connections[i]
		if c.From >= NumInputs {
			continue
		}
		update := lr * sign * a.Intel.LastInputs[c.From]
		c.Weight = Clamp(c.Weight+update, -5, 5)
		c.DeltaMagnitude += absF(update)
	}
	a.Metabolism.PrevEnergy = a.Metabolism.Energy
}

// GatherInputs builds the 29-scalar sensor vector (spec §4.4).
func GatherInputs(a *Agent, snap *Snapshot, in *DecisionInputs) [NumInputs]float64 {
	var inputs [NumInputs]float64

	nearestFoodDir := Vector2D{}
	bestDist := -1.0
	in.FoodGrid.QueryCallback(snap.Position.X, snap.Position.Y, a.Physics.SensingRange, func(key int) {
		if key < 0 || key >= len(in.Food) {
			return
		}
		f := in.Food[key]
		d := f.Position.Sub(snap.Position)
		dist := d.Length()
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			nearestFoodDir = d.Normalize()
		}
	})
	inputs[0] = nearestFoodDir.X
	inputs[1] = nearestFoodDir.Y

	inputs[2] = a.EnergyRatio()

	density := in.AgentGrid.CountNearby(snap.Position.X, snap.Position.Y, a.Physics.SensingRange)
	inputs[3] = Clamp(float64(density)/20, 0, 1)

	foodGrad := in.Pheromones.Channels[PheromoneFood].Gradient(snap.Position.X, snap.Position.Y)
	tribeGrad := in.Pheromones.Channels[PheromoneTribe].Gradient(snap.Position.X, snap.Position.Y)
	sigAGrad := in.Pheromones.Channels[PheromoneSignalA].Gradient(snap.Position.X, snap.Position.Y)
	sigBGrad := in.Pheromones.Channels[PheromoneSignalB].Gradient(snap.Position.X, snap.Position.Y)
	inputs[4], inputs[5] = foodGrad.X, foodGrad.Y
	inputs[6], inputs[7] = tribeGrad.X, tribeGrad.Y
	_ = sigAGrad
	_ = sigBGrad
	inputs[8] = sigAGrad.Length()
	inputs[9] = sigBGrad.Length()

	kin := in.AgentGrid.SenseKin(snap.Position.X, snap.Position.Y, a.Physics.SensingRange, snap.LineageID)
	inputs[10], inputs[11] = kin.X, kin.Y

	inputs[12] = wallProximity(snap.Position, in.Terrain)

	const maxAge = 5000.0
	inputs[13] = Clamp(float64(in.Tick-snap.BirthTick)/maxAge, 0, 1)

	nearestNutrient := 0.0
	in.FoodGrid.QueryCallback(snap.Position.X, snap.Position.Y, a.Physics.SensingRange, func(key int) {
		if key >= 0 && key < len(in.Food) {
			nearestNutrient = in.Food[key].NutrientType
		}
	})
	inputs[14] = nearestNutrient

	inputs[15] = a.Intel.Genotype.Get().TrophicPotential

	for i := 0; i < 6; i++ {
		inputs[16+i] = a.Intel.Hidden[NumInputs+NumOutputs+i]
	}

	inputs[22] = in.Sound.MeanIntensity(snap.Position.X, snap.Position.Y)

	partnerRatio := 0.0
	if !snap.BondedTo.IsNil() {
		if p := findSnapshotByID(in.Snapshots, snap.BondedTo); p != nil {
			partnerRatio = p.Energy / maxF(p.MaxEnergy, 1)
		}
	}
	inputs[23] = partnerRatio

	inputs[24] = in.Pressure.Channels[PressureBuild].At(snap.Position.X, snap.Position.Y) / 5
	inputs[25] = in.Pressure.Channels[PressureDig].At(snap.Position.X, snap.Position.Y) / 5

	goal, threat := 0.0, 0.0
	pop, energyTotal := 0, 0.0
	if l, ok := in.Lineages.Get(snap.LineageID); ok {
		goal = l.Memory.Goal
		threat = l.Memory.Threat
		pop = l.CurrentPopulation
		energyTotal = l.TotalEnergyConsumed
	}
	inputs[26] = (goal + threat) / 2
	inputs[27] = Clamp(float64(pop)/100, 0, 1)
	_ = energyTotal
	overmind := 0.0
	if l, ok := in.Lineages.Get(snap.LineageID); ok {
		overmind = l.Memory.Overmind
	}
	inputs[28] = overmind

	return inputs
}

func findSnapshotByID(snaps []Snapshot, id AgentID) *Snapshot {
	for i := range snaps {
		if snaps[i].ID == id {
			return &snaps[i]
		}
	}
	return nil
}

func wallProximity(pos Vector2D, t *Terrain) float64 {
	cx, cy := int(pos.X), int(pos.Y)
	best := 1.0
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			nx, ny := cx+dx, cy+dy
			if !t.inBounds(nx, ny) {
				continue
			}
			if t.At(nx, ny).Type == Wall || t.At(nx, ny).Type == Mountain {
				dist := Vector2D{X: float64(dx), Y: float64(dy)}.Length()
				prox := 1 - Clamp(dist/2, 0, 1)
				if prox > best || best == 1.0 {
					best = prox
				}
			}
		}
	}
	return best
}

// EffectiveTraits is the per-decision, gene-regulated view of an agent's
// speed/sensing/reproductive-investment (spec §4.4 GRN step).
type EffectiveTraits struct {
	Speed          float64
	Sensing        float64
	ReproInvest    float64
}

// ApplyRegulatoryRules multiplies effective traits by each triggered rule's
// modifier (spec §3, §4.4).
func ApplyRegulatoryRules(g *Genotype, inputs [NumInputs]float64, tick uint64) EffectiveTraits {
	eff := EffectiveTraits{Speed: g.MaxSpeed, Sensing: g.SensingRange, ReproInvest: g.ReproductiveInvest}
	sensorValue := func(s SensorKind) float64 {
		switch s {
		case SensorOxygen:
			return inputs[27] // lineage population proxy placeholder removed below
		case SensorCarbon:
			return inputs[26]
		case SensorEnergyRatio:
			return inputs[2]
		case SensorNearbyKin:
			return inputs[3]
		case SensorAgeRatio:
			return inputs[13]
		case SensorClock:
			return float64(tick % 1000) / 1000
		}
		return 0
	}
	for _, rule := range g.Rules {
		v := sensorValue(rule.Sensor)
		if !rule.Triggered(v) {
			continue
		}
		switch rule.Target {
		case TargetSpeed:
			eff.Speed *= rule.Modifier
		case TargetSensing:
			eff.Sensing *= rule.Modifier
		case TargetReproInvest:
			eff.ReproInvest *= rule.Modifier
		}
	}
	eff.Speed = Clamp(eff.Speed, 0, 10)
	eff.Sensing = Clamp(eff.Sensing, 0, 30)
	eff.ReproInvest = Clamp(eff.ReproInvest, 0, 1)
	return eff
}

// Decide runs P5 for one agent: GRN, neural forward, pathogen manipulation,
// and writes only the agent's own private hidden state/last-activations.
// It must not touch any other agent's state (spec §4.4).
func Decide(a *Agent, snap *Snapshot, in *DecisionInputs) (outputs [NumOutputs]float64, eff EffectiveTraits) {
	inputs := GatherInputs(a, snap, in)
	g := a.Intel.Genotype.Get()
	eff = ApplyRegulatoryRules(g, inputs, in.Tick)

	outputs, nextHidden := g.Brain.Forward(inputs, a.Intel.Hidden)
	if a.Health.Infection != nil {
		a.Health.Infection.Pathogen.ApplyManipulation(&outputs)
	}

	a.Intel.LastInputs = inputs
	a.Intel.LastActivations = outputs
	a.Intel.Hidden = nextHidden
	return outputs, eff
}
