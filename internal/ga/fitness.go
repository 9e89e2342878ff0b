package ga

import (
	"math"
	"sort"
)

// Evaluator scores an individual against the environment. Lower is better.
// Implementations must be deterministic and side-effect free: given the same
// individual and environment the score is identical on every call. A
// returned error aborts the run.
type Evaluator func(ind Individual, env *Environment) (float64, error)

// CapacityLimits configures the reference evaluator.
type CapacityLimits struct {
	MaxWeight  float64
	MaxPallets float64
}

// DefaultCapacityLimits mirrors a full truckload: 45000 lb, 25 pallets.
func DefaultCapacityLimits() CapacityLimits {
	return CapacityLimits{MaxWeight: 45000, MaxPallets: 25}
}

// NewCapacityEvaluator returns the reference penalty evaluator. For every
// distinct route id present in the individual it sums
//
//	|MaxWeight - route weight| + |MaxPallets - route pallets|
//
// plus the distances between consecutive stops on the same route. Stops are
// ordered by (route id, original record index) with a stable sort, so
// tie-breaking is deterministic run to run. A boundary between two route
// ids contributes no distance. No depot leg is added; callers that want one
// include the depot as a demand record.
func NewCapacityEvaluator(limits CapacityLimits) Evaluator {
	return func(ind Individual, env *Environment) (float64, error) {
		if len(ind) != env.Len() {
			return 0, dataErrf("individual length %d does not match %d demand records", len(ind), env.Len())
		}
		order := make([]int, len(ind))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return ind[order[a]] < ind[order[b]]
		})

		total := 0.0
		routeWeight := 0.0
		routePallets := 0.0
		closeRoute := func() {
			total += math.Abs(limits.MaxWeight - routeWeight)
			total += math.Abs(limits.MaxPallets - routePallets)
			routeWeight, routePallets = 0, 0
		}
		for k, idx := range order {
			rec := env.Record(idx)
			routeWeight += rec.Weight
			routePallets += float64(rec.Pallets)
			if k+1 < len(order) && ind[order[k+1]] == ind[idx] {
				next := env.Record(order[k+1])
				d, err := env.Distance(rec.ExternalID, next.ExternalID)
				if err != nil {
					return 0, err
				}
				total += d
			} else {
				closeRoute()
			}
		}
		return total, nil
	}
}
