package ga

import "time"

// Config holds the engine parameters. Zero values for the optional fields
// are filled in by applyDefaults before validation.
type Config struct {
	Generations    int
	PopulationSize int
	VehicleCount   int // gene domain is [0, VehicleCount)

	ElitismCount   int
	TournamentSize int
	MutationRate   float64
	CrossoverRate  float64

	Seed     int64 // 0 means derive from wall clock
	Patience int   // early stop after this many generations without improvement; 0 disables

	TimeBudget time.Duration // cooperative deadline, checked between generations; 0 disables
}

// DefaultConfig returns the engine defaults; capacity limits for the
// reference evaluator live in CapacityLimits, not here.
func DefaultConfig() Config {
	return Config{
		TournamentSize: 3,
		MutationRate:   0.05,
		CrossoverRate:  0.8,
	}
}

func (c *Config) applyDefaults() {
	if c.TournamentSize == 0 {
		c.TournamentSize = 3
	}
	if c.ElitismCount == 0 && c.PopulationSize > 0 {
		c.ElitismCount = c.PopulationSize / 10
		if c.ElitismCount < 1 {
			c.ElitismCount = 1
		}
	}
}

func (c Config) validate(seedLen int) error {
	if c.PopulationSize < 2 {
		return configErrf("populationSize", "must be >= 2 (got %d)", c.PopulationSize)
	}
	if c.Generations < 1 {
		return configErrf("generations", "must be >= 1 (got %d)", c.Generations)
	}
	if c.VehicleCount < 1 {
		return configErrf("vehicleCount", "must be >= 1 (got %d)", c.VehicleCount)
	}
	if c.ElitismCount < 0 || c.ElitismCount >= c.PopulationSize {
		return configErrf("elitismCount", "must be in [0, populationSize) (got %d)", c.ElitismCount)
	}
	if c.TournamentSize < 1 {
		// sampling is with replacement, so k may exceed the population
		return configErrf("tournamentSize", "must be >= 1 (got %d)", c.TournamentSize)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return configErrf("mutationRate", "must be in [0,1] (got %g)", c.MutationRate)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return configErrf("crossoverRate", "must be in [0,1] (got %g)", c.CrossoverRate)
	}
	if c.Patience < 0 {
		return configErrf("patience", "must be >= 0 (got %d)", c.Patience)
	}
	if c.TimeBudget < 0 {
		return configErrf("timeBudget", "must be >= 0 (got %s)", c.TimeBudget)
	}
	if seedLen == 0 {
		return configErrf("firstIndividual", "must not be empty")
	}
	return nil
}
