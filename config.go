package primordium

// SimulationConfig holds every tunable of the engine, grouped the way the
// teacher's config.go groups its own settings. Loading configuration from a
// file is explicitly out of scope (spec §1); callers construct this struct
// directly or start from DefaultConfig().
type SimulationConfig struct {
	World      WorldSettings      `json:"world"`
	Time       TimeSettings       `json:"time"`
	Energy     EnergySettings     `json:"energy"`
	Population PopulationSettings `json:"population"`
	Mutation   MutationSettings   `json:"mutation"`
	Terrain    TerrainSettings    `json:"terrain"`
	Finalize   FinalizeSettings   `json:"finalize"`
}

type WorldSettings struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	CellSize float64 `json:"cell_size"`
	Seed     uint64  `json:"seed"`
}

type TimeSettings struct {
	TicksPerDay   uint64 `json:"ticks_per_day"`
	DaysPerSeason uint64 `json:"days_per_season"`
}

type EnergySettings struct {
	CorpseFertilityMult float64 `json:"corpse_fertility_mult"`
	GlobalRecoveryRate  float64 `json:"global_recovery_rate"`
}

type PopulationSettings struct {
	MaturityAgeBase          uint64 `json:"maturity_age_base"`
	SpawnRateLimitEnabled    bool   `json:"spawn_rate_limit_enabled"`
	MaxEntitiesPerTick       int    `json:"max_entities_per_tick"`
	BottleneckThreshold      int    `json:"bottleneck_threshold"`
	StasisThreshold          int    `json:"stasis_threshold"`
	LineageAgeThreshold      int    `json:"lineage_age_threshold"`
	LineageCountCap          int    `json:"lineage_count_cap"`
}

type MutationSettings struct {
	BaseRate         float64 `json:"base_rate"`
	BaseAmount       float64 `json:"base_amount"`
	PruningThreshold float64 `json:"pruning_threshold"`
}

type TerrainSettings struct {
	GlobalRecoveryRate float64 `json:"global_recovery_rate"`
}

type FinalizeSettings struct {
	FossilInterval     uint64 `json:"fossil_interval"`
	PowerGridInterval  uint64 `json:"power_grid_interval"`
	StatsInterval      uint64 `json:"stats_interval"`
	RankGridInterval   uint64 `json:"rank_grid_interval"`
}

// DefaultConfig mirrors the teacher's config.go defaults, adapted to the
// spec's named quantities.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		World: WorldSettings{Width: 200, Height: 200, CellSize: 5, Seed: 1},
		Time:  TimeSettings{TicksPerDay: 1000, DaysPerSeason: 30},
		Energy: EnergySettings{
			CorpseFertilityMult: 0.05,
			GlobalRecoveryRate:  0.001,
		},
		Population: PopulationSettings{
			MaturityAgeBase:       100,
			SpawnRateLimitEnabled: true,
			MaxEntitiesPerTick:    200,
			BottleneckThreshold:   20,
			StasisThreshold:       2000,
			LineageAgeThreshold:   5000,
			LineageCountCap:       500,
		},
		Mutation: MutationSettings{
			BaseRate:         0.05,
			BaseAmount:       0.3,
			PruningThreshold: 0.05,
		},
		Terrain: TerrainSettings{GlobalRecoveryRate: 0.001},
		Finalize: FinalizeSettings{
			FossilInterval:    1000,
			PowerGridInterval: 50,
			StatsInterval:     60,
			RankGridInterval:  10,
		},
	}
}
