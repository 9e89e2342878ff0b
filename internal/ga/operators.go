package ga

import "math/rand"

// Operators are stateless strategies over chromosome sequences. Each takes
// the random generator explicitly so runs are reproducible from a seed.

// Selector picks one parent from a scored population.
type Selector interface {
	Select(pop *Population, rng *rand.Rand) Individual
}

// Crossover combines two parents into a child of the same length.
type Crossover interface {
	Cross(a, b Individual, rng *rand.Rand) Individual
}

// Mutator mutates an individual in place. It must never change the length
// or produce a gene outside [0, routes).
type Mutator interface {
	Mutate(ind Individual, rng *rand.Rand)
}

// TournamentSelector samples K individuals uniformly and returns the best.
type TournamentSelector struct {
	K int
}

func (s TournamentSelector) Select(pop *Population, rng *rand.Rand) Individual {
	best := rng.Intn(len(pop.Individuals))
	for i := 1; i < s.K; i++ {
		cand := rng.Intn(len(pop.Individuals))
		if pop.Scores[cand] < pop.Scores[best] {
			best = cand
		}
	}
	return pop.Individuals[best]
}

// UniformCrossover applies locus-wise uniform crossover with probability
// Rate; otherwise the child is a clone of parent a. Each inherited gene
// comes from either parent with equal probability.
type UniformCrossover struct {
	Rate float64
}

func (c UniformCrossover) Cross(a, b Individual, rng *rand.Rand) Individual {
	child := a.Clone()
	if rng.Float64() >= c.Rate {
		return child
	}
	for i := range child {
		if rng.Intn(2) == 1 {
			child[i] = b[i]
		}
	}
	return child
}

// UniformMutator independently rewrites each locus with probability Rate,
// drawing a uniformly random route id from [0, Routes).
type UniformMutator struct {
	Rate   float64
	Routes int
}

func (m UniformMutator) Mutate(ind Individual, rng *rand.Rand) {
	for i := range ind {
		if rng.Float64() < m.Rate {
			ind[i] = rng.Intn(m.Routes)
		}
	}
}

// eliteIndexes returns the indexes of the n best-scoring individuals in
// ascending score order, without reordering the population.
func eliteIndexes(scores []float64, n int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	// partial selection sort; n is small relative to the population
	for e := 0; e < n && e < len(idx); e++ {
		min := e
		for j := e + 1; j < len(idx); j++ {
			if scores[idx[j]] < scores[idx[min]] {
				min = j
			}
		}
		idx[e], idx[min] = idx[min], idx[e]
	}
	return idx[:n]
}
