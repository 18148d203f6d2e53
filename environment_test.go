package primordium

import "testing"

func TestAdvanceClockIncrementsWorldTime(t *testing.T) {
	e := NewEnvironment()
	e.AdvanceClock(100, 10)
	if e.WorldTime != 1 {
		t.Errorf("expected world time to advance by 1 tick, got %v", e.WorldTime)
	}
}

func TestAdvanceClockRotatesSeasons(t *testing.T) {
	e := NewEnvironment()
	const ticksPerDay, daysPerSeason = 10, 10
	for i := 0; i < ticksPerDay*daysPerSeason; i++ {
		e.AdvanceClock(ticksPerDay, daysPerSeason)
	}
	if e.Season != SeasonSummer {
		t.Errorf("expected one season elapsed to roll over to summer, got %v", e.Season)
	}
}

func TestClimateFactorHonorsOverride(t *testing.T) {
	e := NewEnvironment()
	e.Season = SeasonWinter
	override := 5.0
	e.ClimateOverride = &override
	if f := e.climateFactor(); f != 5.0 {
		t.Errorf("expected override to replace the seasonal factor, got %v", f)
	}
}

func TestClimateFactorWinterIsColderThanSummer(t *testing.T) {
	e := NewEnvironment()
	e.Season = SeasonWinter
	winter := e.climateFactor()
	e.Season = SeasonSummer
	summer := e.climateFactor()
	if winter >= summer {
		t.Errorf("expected winter factor (%v) below summer factor (%v)", winter, summer)
	}
}

func TestHypoxiaPenaltyKicksInBelowThreshold(t *testing.T) {
	e := NewEnvironment()
	e.Oxygen = 1.0
	if e.hypoxiaPenalty() != 1.0 {
		t.Errorf("expected no penalty at full oxygen, got %v", e.hypoxiaPenalty())
	}
	e.Oxygen = 0.5
	if e.hypoxiaPenalty() <= 1.0 {
		t.Errorf("expected a penalty above 1.0 under hypoxia, got %v", e.hypoxiaPenalty())
	}
}

func TestFoodSpawnMultiplierReducedByHeatWave(t *testing.T) {
	e := NewEnvironment()
	e.Abundance = 1.0
	e.Season = SeasonSummer
	withoutHeat := e.FoodSpawnMultiplier()
	e.HeatWave = true
	withHeat := e.FoodSpawnMultiplier()
	if withHeat >= withoutHeat {
		t.Errorf("expected a heat wave to reduce the food spawn multiplier, got %v vs %v", withHeat, withoutHeat)
	}
}

func TestApplyDDANoopsBelowMinimumPopulation(t *testing.T) {
	e := NewEnvironment()
	before := e.DDASolarMultiplier
	e.ApplyDDA(5, 2.0)
	if e.DDASolarMultiplier != before {
		t.Errorf("expected DDA to skip adjustment below population 10, got %v", e.DDASolarMultiplier)
	}
}

func TestApplyDDALowersTargetsWhenFitnessTooHigh(t *testing.T) {
	e := NewEnvironment()
	before := e.DDASolarMultiplier
	e.ApplyDDA(20, 2.0)
	if e.DDASolarMultiplier >= before {
		t.Errorf("expected solar multiplier to decrease when fitness ratio is above target, got %v", e.DDASolarMultiplier)
	}
}

func TestApplyDDAClampsWithinBounds(t *testing.T) {
	e := NewEnvironment()
	e.DDASolarMultiplier = 0.5
	for i := 0; i < 10000; i++ {
		e.ApplyDDA(20, 2.0)
	}
	if e.DDASolarMultiplier < 0.5 {
		t.Errorf("expected solar multiplier clamped at a floor of 0.5, got %v", e.DDASolarMultiplier)
	}
}

func TestAdvanceClockRecoversOxygenTowardFull(t *testing.T) {
	e := NewEnvironment()
	e.Oxygen = 0.5
	e.AdvanceClock(100, 10)
	if e.Oxygen <= 0.5 {
		t.Errorf("expected oxygen to drift back toward 1.0 each tick, got %v", e.Oxygen)
	}
}

func TestDrainOxygenLowersPoolAndRaisesCarbon(t *testing.T) {
	e := NewEnvironment()
	startCarbon := e.Carbon
	e.DrainOxygen(0.1)
	if e.Oxygen != 0.9 {
		t.Errorf("expected oxygen reduced by the drain amount, got %v", e.Oxygen)
	}
	if e.Carbon <= startCarbon {
		t.Errorf("expected carbon to rise as a drain byproduct, got %v", e.Carbon)
	}
}

func TestDrainOxygenClampsAtZero(t *testing.T) {
	e := NewEnvironment()
	e.Oxygen = 0.05
	e.DrainOxygen(1.0)
	if e.Oxygen != 0 {
		t.Errorf("expected oxygen clamped at 0, got %v", e.Oxygen)
	}
}
