package ga

import "routega/internal/model"

// Environment is the immutable problem context handed to fitness evaluation:
// the demand records, a square distance matrix indexed by position, and a
// lookup translating external identifiers to matrix positions. It is built
// once, validated eagerly, and never mutated afterwards.
type Environment struct {
	records   []model.DemandRecord
	matrix    [][]float64
	positions map[string]int
}

// NewEnvironment validates and snapshots the inputs. The matrix must be
// square with dimension equal to the lookup size, and every record's
// external id must resolve to a matrix position. Inputs are copied so later
// caller mutation cannot reach the environment.
func NewEnvironment(records []model.DemandRecord, matrix [][]float64, lookup map[string]int) (*Environment, error) {
	if len(records) == 0 {
		return nil, dataErrf("no demand records")
	}
	n := len(lookup)
	if len(matrix) != n {
		return nil, dataErrf("distance matrix has %d rows, lookup has %d positions", len(matrix), n)
	}
	for i, row := range matrix {
		if len(row) != n {
			return nil, dataErrf("distance matrix row %d has %d columns, want %d", i, len(row), n)
		}
	}
	positions := make(map[string]int, n)
	for id, pos := range lookup {
		if pos < 0 || pos >= n {
			return nil, dataErrf("lookup position %d for %q out of range [0,%d)", pos, id, n)
		}
		positions[id] = pos
	}
	for _, r := range records {
		if _, ok := positions[r.ExternalID]; !ok {
			return nil, dataErrf("demand record %q has no position in lookup", r.ExternalID)
		}
	}
	recs := make([]model.DemandRecord, len(records))
	copy(recs, records)
	m := make([][]float64, n)
	for i := range matrix {
		m[i] = make([]float64, n)
		copy(m[i], matrix[i])
	}
	return &Environment{records: recs, matrix: m, positions: positions}, nil
}

// Len returns the number of demand records; every Individual must have
// exactly this length.
func (e *Environment) Len() int { return len(e.records) }

// Record returns the demand record at index i.
func (e *Environment) Record(i int) model.DemandRecord { return e.records[i] }

// Distance returns the matrix distance between two external identifiers.
func (e *Environment) Distance(fromID, toID string) (float64, error) {
	i, ok := e.positions[fromID]
	if !ok {
		return 0, dataErrf("unknown identifier %q in distance lookup", fromID)
	}
	j, ok := e.positions[toID]
	if !ok {
		return 0, dataErrf("unknown identifier %q in distance lookup", toID)
	}
	return e.matrix[i][j], nil
}
