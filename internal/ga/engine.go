package ga

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond"

	"routega/internal/model"
)

type engineState int

const (
	stateInitialized engineState = iota
	stateRunning
	stateTerminated
)

// Result is the outcome of a completed run.
type Result struct {
	BestIndividual Individual
	BestScore      float64
	Trace          []model.TracePoint
	Generations    int // generations actually executed
	Evaluations    int
	Duration       time.Duration
	Notice         *ConvergenceNotice // non-fatal early-stop or no-improvement diagnostic, nil otherwise
}

// Engine drives the generational loop: evaluate, track best, apply
// elitism + selection + crossover + mutation, swap populations. It owns its
// populations exclusively; the environment is read-only for the whole run.
type Engine struct {
	cfg  Config
	env  *Environment
	eval Evaluator
	seed Individual
	rng  *rand.Rand

	// Operator strategies. NewEngine installs the defaults; callers may
	// replace them before Run.
	Selector  Selector
	Crossover Crossover
	Mutator   Mutator

	// OnGeneration, when set, is called after each generation with the
	// zero-based generation index and the best score seen so far. It runs on
	// the engine's goroutine; keep it cheap.
	OnGeneration func(generation int, bestScore float64)

	mu    sync.Mutex
	state engineState
}

// NewEngine validates the configuration and the seed individual against the
// environment. Violations are reported here, before any generation executes.
func NewEngine(cfg Config, first Individual, env *Environment, eval Evaluator) (*Engine, error) {
	if env == nil {
		return nil, dataErrf("environment is nil")
	}
	if eval == nil {
		return nil, configErrf("fitnessFunc", "must not be nil")
	}
	cfg.applyDefaults()
	if err := cfg.validate(len(first)); err != nil {
		return nil, err
	}
	if len(first) != env.Len() {
		return nil, dataErrf("first individual length %d does not match %d demand records", len(first), env.Len())
	}
	for i, g := range first {
		if g < 0 || g >= cfg.VehicleCount {
			return nil, configErrf("firstIndividual", "gene %d is %d, outside [0,%d)", i, g, cfg.VehicleCount)
		}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		cfg:       cfg,
		env:       env,
		eval:      eval,
		seed:      first.Clone(),
		rng:       rand.New(rand.NewSource(seed)),
		Selector:  TournamentSelector{K: cfg.TournamentSize},
		Crossover: UniformCrossover{Rate: cfg.CrossoverRate},
		Mutator:   UniformMutator{Rate: cfg.MutationRate, Routes: cfg.VehicleCount},
	}
	return e, nil
}

// Run executes the evolution loop until the generation budget, the
// convergence patience, or the context/time budget stops it. Cancellation is
// checked only between generations and yields the best-so-far result with a
// notice rather than an error. A fitness evaluator error aborts the run.
// The engine is single-use; a second Run returns a ConfigError.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	e.mu.Lock()
	if e.state != stateInitialized {
		e.mu.Unlock()
		return Result{}, configErrf("engine", "already run; build a new engine for another run")
	}
	e.state = stateRunning
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.state = stateTerminated
		e.mu.Unlock()
	}()

	start := time.Now()
	var deadline time.Time
	if e.cfg.TimeBudget > 0 {
		deadline = start.Add(e.cfg.TimeBudget)
	}

	n := e.env.Len()
	popSize := e.cfg.PopulationSize
	curr := newPopulation(popSize, n)
	next := newPopulation(popSize, n)

	// Initial population: the caller's seed plus perturbed copies of it.
	copy(curr.Individuals[0], e.seed)
	for i := 1; i < popSize; i++ {
		copy(curr.Individuals[i], e.seed)
		perturb(curr.Individuals[i], e.cfg.VehicleCount, e.rng)
	}

	pool := pond.New(runtime.NumCPU(), popSize)
	defer pool.StopAndWait()

	res := Result{BestIndividual: make(Individual, n)}
	best := Individual(res.BestIndividual)
	bestScore := 0.0
	sinceImprove := 0
	improved := false // any improvement past the initial evaluation

	for gen := 0; gen < e.cfg.Generations; gen++ {
		if gen > 0 {
			// cancellation and time budget, generation boundaries only
			if err := ctx.Err(); err != nil {
				res.Notice = &ConvergenceNotice{Reason: NoticeCancelled, Generation: gen}
				break
			}
			if !deadline.IsZero() && !time.Now().Before(deadline) {
				res.Notice = &ConvergenceNotice{Reason: NoticeDeadline, Generation: gen}
				break
			}
		}

		if err := e.scorePopulation(pool, curr); err != nil {
			return Result{}, &FitnessError{Generation: gen, Err: err}
		}
		res.Evaluations += popSize

		bi := curr.Best()
		if gen == 0 || curr.Scores[bi] < bestScore {
			bestScore = curr.Scores[bi]
			copy(best, curr.Individuals[bi])
			sinceImprove = 0
			if gen > 0 {
				improved = true
			}
		} else {
			sinceImprove++
		}
		res.Trace = append(res.Trace, model.TracePoint{Generation: gen, BestScore: bestScore})
		res.Generations = gen + 1
		if e.OnGeneration != nil {
			e.OnGeneration(gen, bestScore)
		}

		if e.cfg.Patience > 0 && sinceImprove >= e.cfg.Patience {
			res.Notice = &ConvergenceNotice{Reason: NoticeConverged, Generation: gen}
			break
		}
		if gen+1 == e.cfg.Generations {
			break
		}

		e.breed(curr, next)
		curr, next = next, curr
	}

	// spending the whole generation budget without a single improvement is
	// worth surfacing to the caller just like a patience stop
	if res.Notice == nil && !improved && res.Generations > 1 {
		res.Notice = &ConvergenceNotice{Reason: NoticeExhausted, Generation: res.Generations - 1}
	}

	res.BestScore = bestScore
	res.Duration = time.Since(start)
	return res, nil
}

// scorePopulation evaluates every individual on the worker pool. The
// environment is read-only and individuals are independent, so no
// synchronization is needed beyond the group wait.
func (e *Engine) scorePopulation(pool *pond.WorkerPool, pop *Population) error {
	errs := make([]error, len(pop.Individuals))
	group := pool.Group()
	for i := range pop.Individuals {
		i := i
		group.Submit(func() {
			score, err := e.eval(pop.Individuals[i], e.env)
			if err != nil {
				errs[i] = err
				return
			}
			pop.Scores[i] = score
		})
	}
	group.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// breed fills next from curr: elites copied unchanged, the remainder via
// selection + crossover + mutation. next always ends up holding exactly
// PopulationSize individuals of unchanged length.
func (e *Engine) breed(curr, next *Population) {
	write := 0
	for _, src := range eliteIndexes(curr.Scores, e.cfg.ElitismCount) {
		copy(next.Individuals[write], curr.Individuals[src])
		write++
	}
	for write < len(next.Individuals) {
		a := e.Selector.Select(curr, e.rng)
		b := e.Selector.Select(curr, e.rng)
		child := e.Crossover.Cross(a, b, e.rng)
		e.Mutator.Mutate(child, e.rng)
		copy(next.Individuals[write], child)
		write++
	}
}

func newPopulation(size, genes int) *Population {
	backing := make([]int, size*genes)
	p := &Population{
		Individuals: make([]Individual, size),
		Scores:      make([]float64, size),
	}
	for i := 0; i < size; i++ {
		p.Individuals[i] = backing[i*genes : (i+1)*genes]
	}
	return p
}

// perturb reassigns roughly a quarter of the genes to random route ids to
// establish diversity around the seed individual.
func perturb(ind Individual, routes int, rng *rand.Rand) {
	for i := range ind {
		if rng.Float64() < 0.25 {
			ind[i] = rng.Intn(routes)
		}
	}
}
