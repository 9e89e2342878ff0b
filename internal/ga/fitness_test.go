package ga

import (
	"testing"
)

func TestCapacityEvaluatorKnownScore(t *testing.T) {
	// Two stops on the same route, 7 miles apart.
	m := zeroMatrix(2)
	m[0][1], m[1][0] = 7, 7
	env, err := NewEnvironment(testRecords(2), m, testLookup(2))
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	eval := NewCapacityEvaluator(CapacityLimits{MaxWeight: 45000, MaxPallets: 25})
	got, err := eval(Individual{0, 0}, env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	// |45000-20000| + |25-10| + 7
	if want := 25000.0 + 15 + 7; got != want {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestCapacityEvaluatorRouteBoundaryContributesNothing(t *testing.T) {
	m := zeroMatrix(2)
	m[0][1], m[1][0] = 7, 7
	env, err := NewEnvironment(testRecords(2), m, testLookup(2))
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	eval := NewCapacityEvaluator(CapacityLimits{MaxWeight: 45000, MaxPallets: 25})
	got, err := eval(Individual{0, 1}, env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	// two singleton routes: 2*(|45000-10000| + |25-5|), no distance term
	if want := 2 * (35000.0 + 20); got != want {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestCapacityEvaluatorDeterministic(t *testing.T) {
	n := 6
	m := zeroMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				m[i][j] = float64(i*n + j)
			}
		}
	}
	env, err := NewEnvironment(testRecords(n), m, testLookup(n))
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	eval := NewCapacityEvaluator(DefaultCapacityLimits())
	ind := Individual{1, 0, 1, 2, 0, 1}
	first, err := eval(ind, env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := eval(ind, env)
		if err != nil || got != first {
			t.Fatalf("call %d: score = %v, %v; want %v", i, got, err, first)
		}
	}
}

func TestCapacityEvaluatorStableTieBreak(t *testing.T) {
	// Stops sharing a route id must chain in original record order, so the
	// distance term follows A->C->E for individual [0,1,0,1,0].
	n := 5
	m := zeroMatrix(n)
	m[0][2], m[2][4] = 3, 4 // A->C, C->E
	m[2][0], m[4][2] = 100, 100
	env, err := NewEnvironment(testRecords(n), m, testLookup(n))
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	eval := NewCapacityEvaluator(CapacityLimits{MaxWeight: 30000, MaxPallets: 15})
	got, err := eval(Individual{0, 1, 0, 1, 0}, env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	// route 0: 3 stops, w 30000 p 15 -> 0 capacity penalty, distance 3+4
	// route 1: 2 stops, w 20000 p 10 -> 10000+5, no distance (zero matrix there)
	if want := 7.0 + 10005; got != want {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestCapacityEvaluatorLengthMismatch(t *testing.T) {
	env, err := NewEnvironment(testRecords(3), zeroMatrix(3), testLookup(3))
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	eval := NewCapacityEvaluator(DefaultCapacityLimits())
	if _, err := eval(Individual{0, 0}, env); err == nil {
		t.Fatal("short individual accepted")
	}
}
