package primordium

import "math"

// Season names one quarter of the year cycle.
type Season int

const (
	SeasonSpring Season = iota
	SeasonSummer
	SeasonAutumn
	SeasonWinter
)

// Era is a long-horizon epoch marker (civilization-level gating).
type Era int

const (
	EraPrimordial Era = iota
	EraTribal
	EraIndustrial
)

// Environment is the single owner of global scalar state: CPU/RAM telemetry
// for the host UI, world clock, season/era, climate override, the global
// available-energy pool, and the dynamic-difficulty (DDA) multipliers.
// Grounded on the teacher's time_cycles.go and environmental_pressures.go.
type Environment struct {
	CPUUsage        float64
	RAMUsagePercent float64
	WorldTime       uint64
	Season          Season
	Era             Era
	ClimateOverride *float64 // nil = no override

	AvailableEnergy float64

	DDASolarMultiplier     float64
	DDABaseIdleMultiplier  float64

	Oxygen float64 // [0,1]
	Carbon float64

	HeatWave  bool
	Abundance float64 // [0,2], resource-state multiplier
}

func NewEnvironment() *Environment {
	return &Environment{
		WorldTime:             0,
		AvailableEnergy:       100000,
		DDASolarMultiplier:    1.0,
		DDABaseIdleMultiplier: 1.0,
		Oxygen:                1.0,
		Carbon:                0.3,
		Abundance:             1.0,
	}
}

// climateFactor returns the active climate multiplier, honoring an override.
func (e *Environment) climateFactor() float64 {
	if e.ClimateOverride != nil {
		return *e.ClimateOverride
	}
	switch e.Season {
	case SeasonWinter:
		return 0.7
	case SeasonSummer:
		return 1.2
	default:
		return 1.0
	}
}

func (e *Environment) circadianFactor() float64 {
	phase := float64(e.WorldTime%1000) / 1000.0 * 2 * math.Pi
	return 1 + 0.1*math.Sin(phase)
}

func (e *Environment) hypoxiaPenalty() float64 {
	if e.Oxygen >= 0.8 {
		return 1.0
	}
	return 1.0 + (0.8-e.Oxygen)*2
}

// MetabolismMultiplier is the product of climate, era, circadian, seasonal,
// and hypoxia factors (spec §4.9).
func (e *Environment) MetabolismMultiplier() float64 {
	eraFactor := 1.0
	switch e.Era {
	case EraTribal:
		eraFactor = 1.05
	case EraIndustrial:
		eraFactor = 1.15
	}
	return e.climateFactor() * eraFactor * e.circadianFactor() * e.hypoxiaPenalty()
}

// FoodSpawnMultiplier multiplies resource state, heat-wave, abundance, and
// season factors.
func (e *Environment) FoodSpawnMultiplier() float64 {
	m := e.Abundance
	if e.HeatWave {
		m *= 0.6
	}
	switch e.Season {
	case SeasonSpring:
		m *= 1.3
	case SeasonWinter:
		m *= 0.5
	}
	return m
}

// AdvanceClock ticks the world clock, the season cadence (Era is left as
// is), and the
// oxygen/carbon backdrop (P1, serial; spec §4.1 "Advance climate, seasons,
// oxygen/carbon, DDA, food spawn"). Oxygen slowly recovers toward 1.0 as
// carbon dissipates, a crude photosynthesis-vs-respiration balance that P6's
// per-agent activity drain (DrainOxygen) pulls against every tick.
func (e *Environment) AdvanceClock(ticksPerDay, daysPerSeason uint64) {
	e.WorldTime++
	ticksPerSeason := ticksPerDay * daysPerSeason
	if ticksPerSeason == 0 {
		return
	}
	e.Season = Season((e.WorldTime / ticksPerSeason) % 4)

	e.Oxygen = Clamp(e.Oxygen+0.0005*(1-e.Carbon), 0, 1)
	e.Carbon = Clamp(e.Carbon*0.999, 0, 1)
}

// DrainOxygen applies P6/P7's aggregate activity-based oxygen consumption
// (spec §4.5 "activity-based oxygen drain") and its carbon byproduct. Called
// once per tick from the serial apply pass, never per-agent, to keep the
// global pool update's floating-point order reproducible.
func (e *Environment) DrainOxygen(totalDrain float64) {
	e.Oxygen = Clamp(e.Oxygen-totalDrain, 0, 1)
	e.Carbon = Clamp(e.Carbon+totalDrain*0.5, 0, 1)
}

// ApplyDDA is the dynamic-difficulty step (spec §4.9): every tick with
// population >= 10, nudge solar/idle multipliers toward the target fitness
// ratio by a fixed step, each clamped to [0.5, 2.0].
func (e *Environment) ApplyDDA(population int, averageFitnessRatio float64) {
	if population < 10 {
		return
	}
	const step = 0.001
	switch {
	case averageFitnessRatio > 1.1:
		e.DDASolarMultiplier = Clamp(e.DDASolarMultiplier-step, 0.5, 2.0)
		e.DDABaseIdleMultiplier = Clamp(e.DDABaseIdleMultiplier+step, 0.5, 2.0)
	case averageFitnessRatio < 0.9:
		e.DDASolarMultiplier = Clamp(e.DDASolarMultiplier+step, 0.5, 2.0)
		e.DDABaseIdleMultiplier = Clamp(e.DDABaseIdleMultiplier-step, 0.5, 2.0)
	}
}
