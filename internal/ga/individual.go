package ga

// Individual is a candidate route assignment: one route id per demand
// record, position-aligned with the environment's records.
type Individual []int

// Clone returns an independent copy.
func (ind Individual) Clone() Individual {
	out := make(Individual, len(ind))
	copy(out, ind)
	return out
}

// Population pairs individuals with their fitness scores for one
// generation. Scores are recomputed every generation; operators mutate
// genes, so nothing is cached across generations.
type Population struct {
	Individuals []Individual
	Scores      []float64
}

// Best returns the index of the lowest-scoring individual.
func (p *Population) Best() int {
	best := 0
	for i := 1; i < len(p.Scores); i++ {
		if p.Scores[i] < p.Scores[best] {
			best = i
		}
	}
	return best
}
