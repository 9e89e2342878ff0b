package api

import (
	"fmt"

	"routega/internal/config"
	"routega/internal/model"
)

// validateOptimizeRequest checks request shape and server limits. The
// engine re-validates semantics (matrix squareness, gene domain, seed
// length) at construction; this keeps obviously bad payloads off the store.
func validateOptimizeRequest(req *model.OptimizeRequest, cfg config.Config) error {
	if len(req.Demand) == 0 {
		return fmt.Errorf("demand must not be empty")
	}
	if len(req.Demand) > cfg.MaxDemandRecords {
		return fmt.Errorf("demand has %d records, limit is %d", len(req.Demand), cfg.MaxDemandRecords)
	}
	if len(req.DistanceMatrix) == 0 {
		return fmt.Errorf("distanceMatrix is required")
	}
	if len(req.Lookup) == 0 {
		return fmt.Errorf("lookup is required")
	}
	if len(req.FirstIndividual) == 0 {
		return fmt.Errorf("firstIndividual is required")
	}
	if req.VehicleCount < 1 {
		return fmt.Errorf("vehicleCount must be >= 1")
	}
	if req.Generations < 0 || req.Generations > cfg.MaxGenerations {
		return fmt.Errorf("generations must be in [0,%d]", cfg.MaxGenerations)
	}
	if req.PopulationSize < 0 || req.PopulationSize > cfg.MaxPopulation {
		return fmt.Errorf("populationSize must be in [0,%d]", cfg.MaxPopulation)
	}
	if req.MutationRate < 0 || req.MutationRate > 1 {
		return fmt.Errorf("mutationRate must be in [0,1]")
	}
	if req.CrossoverRate < 0 || req.CrossoverRate > 1 {
		return fmt.Errorf("crossoverRate must be in [0,1]")
	}
	if req.ConvergencePatience < 0 {
		return fmt.Errorf("convergencePatience must be >= 0")
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if req.MaxWeight < 0 || req.MaxPallets < 0 {
		return fmt.Errorf("capacity limits must be >= 0")
	}
	return nil
}

// applyDefaults fills zero-valued engine parameters from server config.
func applyDefaults(req *model.OptimizeRequest, d config.EngineDefaults) {
	if req.Generations == 0 {
		req.Generations = d.Generations
	}
	if req.PopulationSize == 0 {
		req.PopulationSize = d.PopulationSize
	}
	if req.MutationRate == 0 {
		req.MutationRate = d.MutationRate
	}
	if req.CrossoverRate == 0 {
		req.CrossoverRate = d.CrossoverRate
	}
	if req.TournamentSize == 0 {
		req.TournamentSize = d.TournamentSize
	}
	if req.MaxWeight == 0 {
		req.MaxWeight = d.MaxWeight
	}
	if req.MaxPallets == 0 {
		req.MaxPallets = d.MaxPallets
	}
	if req.TimeBudgetMs == 0 && d.TimeBudget > 0 {
		req.TimeBudgetMs = int(d.TimeBudget.Milliseconds())
	}
}
