package ga

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func testEnv(t *testing.T, n int) *Environment {
	t.Helper()
	env, err := NewEnvironment(testRecords(n), zeroMatrix(n), testLookup(n))
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	return env
}

// countNonZero scores an individual by how many genes differ from zero; the
// all-zero assignment is the unique optimum.
func countNonZero(ind Individual, _ *Environment) (float64, error) {
	n := 0.0
	for _, g := range ind {
		if g != 0 {
			n++
		}
	}
	return n, nil
}

func TestRunSmallInstance(t *testing.T) {
	env := testEnv(t, 4)
	cfg := DefaultConfig()
	cfg.Generations = 1
	cfg.PopulationSize = 4
	cfg.VehicleCount = 2
	cfg.Seed = 42
	e, err := NewEngine(cfg, Individual{0, 1, 0, 1}, env, NewCapacityEvaluator(DefaultCapacityLimits()))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.BestIndividual) != 4 {
		t.Fatalf("best individual length %d, want 4", len(res.BestIndividual))
	}
	if math.IsNaN(res.BestScore) || math.IsInf(res.BestScore, 0) || res.BestScore < 0 {
		t.Fatalf("best score %v not finite and >= 0", res.BestScore)
	}
	if res.Generations != 1 || len(res.Trace) != 1 {
		t.Fatalf("generations %d trace %d, want 1/1", res.Generations, len(res.Trace))
	}
}

func TestConfigValidation(t *testing.T) {
	env := testEnv(t, 2)
	eval := NewCapacityEvaluator(DefaultCapacityLimits())
	base := func() Config {
		cfg := DefaultConfig()
		cfg.Generations = 1
		cfg.PopulationSize = 4
		cfg.VehicleCount = 2
		return cfg
	}
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"populationOne", func(c *Config) { c.PopulationSize = 1 }},
		{"zeroGenerations", func(c *Config) { c.Generations = 0 }},
		{"badMutationRate", func(c *Config) { c.MutationRate = 1.5 }},
		{"badCrossoverRate", func(c *Config) { c.CrossoverRate = -0.1 }},
		{"elitismTooLarge", func(c *Config) { c.ElitismCount = 4 }},
		{"zeroVehicles", func(c *Config) { c.VehicleCount = 0 }},
	}
	for _, tc := range cases {
		cfg := base()
		tc.mod(&cfg)
		_, err := NewEngine(cfg, Individual{0, 1}, env, eval)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: want ConfigError, got %v", tc.name, err)
		}
	}
}

func TestSeedLengthMismatch(t *testing.T) {
	env := testEnv(t, 3)
	cfg := DefaultConfig()
	cfg.Generations = 1
	cfg.PopulationSize = 2
	cfg.VehicleCount = 2
	_, err := NewEngine(cfg, Individual{0, 1}, env, countNonZero)
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("want DataError, got %v", err)
	}
}

func TestSeedGeneOutOfDomain(t *testing.T) {
	env := testEnv(t, 2)
	cfg := DefaultConfig()
	cfg.Generations = 1
	cfg.PopulationSize = 2
	cfg.VehicleCount = 2
	if _, err := NewEngine(cfg, Individual{0, 5}, env, countNonZero); err == nil {
		t.Fatal("gene outside route-id domain accepted")
	}
}

func TestFitnessErrorAbortsRun(t *testing.T) {
	env := testEnv(t, 3)
	cfg := DefaultConfig()
	cfg.Generations = 5
	cfg.PopulationSize = 4
	cfg.VehicleCount = 2
	cfg.Seed = 7
	sentinel := func(ind Individual, _ *Environment) (float64, error) {
		if ind[0] == 0 {
			return 0, fmt.Errorf("sentinel gene")
		}
		return 1, nil
	}
	// seed individual starts with the sentinel value, so generation 0 fails
	e, err := NewEngine(cfg, Individual{0, 0, 0}, env, sentinel)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	_, err = e.Run(context.Background())
	var fe *FitnessError
	if !errors.As(err, &fe) {
		t.Fatalf("want FitnessError, got %v", err)
	}
}

func TestConvergencePatience(t *testing.T) {
	env := testEnv(t, 8)
	cfg := DefaultConfig()
	cfg.Generations = 50
	cfg.PopulationSize = 10
	cfg.VehicleCount = 2
	cfg.Patience = 5
	cfg.Seed = 11
	// seed at the global optimum: no later generation can improve, so the
	// run must stop once 5 generations pass without improvement
	e, err := NewEngine(cfg, make(Individual, 8), env, countNonZero)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Notice == nil || res.Notice.Reason != NoticeConverged {
		t.Fatalf("notice = %v, want converged", res.Notice)
	}
	if res.BestScore != 0 {
		t.Fatalf("best score %v, want optimum 0", res.BestScore)
	}
	if res.Generations >= 50 {
		t.Fatalf("ran %d generations, expected early stop", res.Generations)
	}
}

func TestExhaustedBudgetWithoutImprovement(t *testing.T) {
	env := testEnv(t, 4)
	cfg := DefaultConfig()
	cfg.Generations = 20
	cfg.PopulationSize = 4
	cfg.VehicleCount = 2
	cfg.Seed = 17
	// flat landscape: every individual scores the same, so the run spends
	// its whole budget without ever improving on generation 0
	flat := func(Individual, *Environment) (float64, error) { return 1, nil }
	e, err := NewEngine(cfg, Individual{0, 1, 0, 1}, env, flat)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Generations != 20 {
		t.Fatalf("generations %d, want full budget 20", res.Generations)
	}
	if res.Notice == nil || res.Notice.Reason != NoticeExhausted {
		t.Fatalf("notice = %v, want exhausted", res.Notice)
	}
	if res.Notice.Generation != 19 {
		t.Fatalf("notice generation %d, want 19", res.Notice.Generation)
	}
	if len(res.BestIndividual) != 4 || res.BestScore != 1 {
		t.Fatalf("no usable best result: %+v", res)
	}
}

func TestTimeBudgetDeadline(t *testing.T) {
	env := testEnv(t, 4)
	cfg := DefaultConfig()
	cfg.Generations = 1000
	cfg.PopulationSize = 4
	cfg.VehicleCount = 2
	cfg.Seed = 21
	cfg.TimeBudget = time.Millisecond
	slow := func(ind Individual, e *Environment) (float64, error) {
		time.Sleep(2 * time.Millisecond)
		return countNonZero(ind, e)
	}
	e, err := NewEngine(cfg, Individual{0, 1, 0, 1}, env, slow)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("deadline must not be an error: %v", err)
	}
	if res.Notice == nil || res.Notice.Reason != NoticeDeadline {
		t.Fatalf("notice = %v, want deadline", res.Notice)
	}
	if res.Generations < 1 || res.Generations >= 1000 {
		t.Fatalf("generations %d, want early stop after at least one", res.Generations)
	}
	if len(res.BestIndividual) != 4 || len(res.Trace) != res.Generations {
		t.Fatalf("no usable best-so-far result: %+v", res)
	}
}

func TestBestScoreMonotone(t *testing.T) {
	env := testEnv(t, 10)
	cfg := DefaultConfig()
	cfg.Generations = 30
	cfg.PopulationSize = 12
	cfg.VehicleCount = 3
	cfg.Seed = 99
	seed := Individual{0, 1, 2, 0, 1, 2, 0, 1, 2, 0}
	e, err := NewEngine(cfg, seed, env, NewCapacityEvaluator(DefaultCapacityLimits()))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := 1; i < len(res.Trace); i++ {
		if res.Trace[i].BestScore > res.Trace[i-1].BestScore {
			t.Fatalf("best worsened at generation %d: %v -> %v", i, res.Trace[i-1].BestScore, res.Trace[i].BestScore)
		}
	}
}

func TestEveryIndividualKeepsLengthAndDomain(t *testing.T) {
	env := testEnv(t, 6)
	cfg := DefaultConfig()
	cfg.Generations = 15
	cfg.PopulationSize = 8
	cfg.VehicleCount = 3
	cfg.MutationRate = 0.5
	cfg.Seed = 5
	checking := func(ind Individual, e *Environment) (float64, error) {
		if len(ind) != e.Len() {
			return 0, fmt.Errorf("length %d != %d", len(ind), e.Len())
		}
		for i, g := range ind {
			if g < 0 || g >= 3 {
				return 0, fmt.Errorf("gene %d = %d out of domain", i, g)
			}
		}
		return countNonZero(ind, e)
	}
	e, err := NewEngine(cfg, Individual{0, 1, 2, 0, 1, 2}, env, checking)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("invariant violated during run: %v", err)
	}
}

func TestReproducibleWithSeed(t *testing.T) {
	run := func() Result {
		env := testEnv(t, 6)
		cfg := DefaultConfig()
		cfg.Generations = 10
		cfg.PopulationSize = 6
		cfg.VehicleCount = 2
		cfg.Seed = 1234
		e, err := NewEngine(cfg, Individual{0, 1, 0, 1, 0, 1}, env, NewCapacityEvaluator(DefaultCapacityLimits()))
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		res, err := e.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res
	}
	a, b := run(), run()
	if a.BestScore != b.BestScore {
		t.Fatalf("scores differ: %v vs %v", a.BestScore, b.BestScore)
	}
	for i := range a.BestIndividual {
		if a.BestIndividual[i] != b.BestIndividual[i] {
			t.Fatalf("individuals differ at %d", i)
		}
	}
	for i := range a.Trace {
		if a.Trace[i] != b.Trace[i] {
			t.Fatalf("traces differ at %d", i)
		}
	}
}

func TestCancellationReturnsBestSoFar(t *testing.T) {
	env := testEnv(t, 4)
	cfg := DefaultConfig()
	cfg.Generations = 1000
	cfg.PopulationSize = 4
	cfg.VehicleCount = 2
	cfg.Seed = 3
	e, err := NewEngine(cfg, Individual{0, 1, 0, 1}, env, countNonZero)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("cancellation must not be an error: %v", err)
	}
	if res.Notice == nil || res.Notice.Reason != NoticeCancelled {
		t.Fatalf("notice = %v, want cancelled", res.Notice)
	}
	if res.Generations < 1 || len(res.BestIndividual) != 4 {
		t.Fatalf("no usable best-so-far result: %+v", res)
	}
}

func TestEngineSingleUse(t *testing.T) {
	env := testEnv(t, 2)
	cfg := DefaultConfig()
	cfg.Generations = 1
	cfg.PopulationSize = 2
	cfg.VehicleCount = 2
	cfg.Seed = 1
	e, err := NewEngine(cfg, Individual{0, 1}, env, countNonZero)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := e.Run(context.Background()); err == nil {
		t.Fatal("second run on the same engine succeeded")
	}
}

func TestOnGenerationHook(t *testing.T) {
	env := testEnv(t, 3)
	cfg := DefaultConfig()
	cfg.Generations = 4
	cfg.PopulationSize = 3
	cfg.VehicleCount = 2
	cfg.Seed = 8
	e, err := NewEngine(cfg, Individual{0, 1, 0}, env, countNonZero)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	var gens []int
	e.OnGeneration = func(gen int, _ float64) { gens = append(gens, gen) }
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(gens) != 4 || gens[0] != 0 || gens[3] != 3 {
		t.Fatalf("hook calls = %v", gens)
	}
}
