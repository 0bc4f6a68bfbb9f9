// Package de implements Differential Evolution (DE/rand/1/bin) over a
// cost.Function.
//
// An Engine is driven incrementally: InitializePopulation once, then any
// number of OptimizeStep calls, which accumulate generations on the same
// population. All randomness comes from one seeded Stream owned by the
// engine, and every generation reads only a snapshot of the previous one, so
// the outcome for a given seed does not depend on evaluation order or on the
// number of workers.
package de

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/diffevo/internal/optimization"
	"github.com/copyleftdev/diffevo/internal/optimization/cost"
)

const component = "differential_evolution"

// State is the lifecycle state of an Engine.
type State int

const (
	// StateUninitialized is the state before InitializePopulation.
	StateUninitialized State = iota
	// StateInitialized follows a successful InitializePopulation.
	StateInitialized
	// StateStepping is held for the duration of an OptimizeStep call.
	StateStepping
	// StateIdle follows an OptimizeStep call that ran to completion or failed.
	StateIdle
	// StateTerminated follows an OptimizeStep call stopped by the
	// termination condition. Stepping again is allowed.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateStepping:
		return "stepping"
	case StateIdle:
		return "idle"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MaxHistory bounds the number of improvements an Engine remembers.
const MaxHistory = 1000

// Engine runs Differential Evolution on a cost function.
//
// An Engine is not safe for concurrent use; callers sharing one must
// serialize access.
type Engine struct {
	fn          cost.Function
	config      Config
	dim         int
	constraints []cost.Constraint

	stream *Stream
	pop    *population
	best   bestTracker

	state       State
	generation  int
	evaluations int
	history     []optimization.Evaluation

	logger *zap.Logger
}

// New creates an Engine minimizing fn. The cost function is referenced, not
// owned; it must outlive the engine.
func New(fn cost.Function, config Config) (*Engine, error) {
	const op = "New"

	if fn == nil {
		return nil, optimization.ConfigurationError("cost function must not be nil").
			WithOperation(op).WithComponent(component)
	}
	if err := config.validate(); err != nil {
		return nil, withContext(err, op)
	}

	dim := fn.NumberOfParameters()
	if dim < 1 {
		return nil, optimization.ConfigurationError("cost function must have at least 1 parameter, got %d", dim).
			WithOperation(op).WithComponent(component)
	}

	constraints := fn.GetConstraints()
	switch len(constraints) {
	case 0:
		constraints = make([]cost.Constraint, dim)
		for i := range constraints {
			constraints[i] = cost.Unconstrained()
		}
	case dim:
		constraints = append([]cost.Constraint(nil), constraints...)
		for i, c := range constraints {
			if err := c.Validate(); err != nil {
				return nil, optimization.WrapError(err, fmt.Sprintf("parameter %d", i)).
					WithOperation(op).WithComponent(component)
			}
		}
	default:
		return nil, optimization.ConfigurationError("cost function returned %d constraints for %d parameters",
			len(constraints), dim).WithOperation(op).WithComponent(component)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		fn:          fn,
		config:      config,
		dim:         dim,
		constraints: constraints,
		stream:      NewStream(config.RandomSeed),
		best:        newBestTracker(),
		state:       StateUninitialized,
		logger:      logger.Named(component),
	}, nil
}

// InitializePopulation samples every gene of every individual uniformly
// within its constraint range and evaluates the population. Calling it again
// discards the current population, best record, and history; the random
// stream continues where it left off.
func (e *Engine) InitializePopulation() error {
	const op = "InitializePopulation"

	n := e.config.PopulationSize
	agents := make([][]float64, n)
	for i := range agents {
		agent := make([]float64, e.dim)
		for j, c := range e.constraints {
			lo, hi := c.Range()
			agent[j] = e.stream.Uniform(lo, hi)
		}
		agents[i] = agent
	}

	costs, err := e.evaluate(context.Background(), agents)
	if err != nil {
		return withContext(err, op)
	}

	e.pop = &population{agents: agents, costs: costs}
	e.best = newBestTracker()
	for i, a := range agents {
		e.best.offer(a, costs[i])
	}
	e.generation = 0
	e.evaluations = n
	e.history = nil
	e.state = StateInitialized

	e.logger.Debug("Initialized population",
		zap.Int("population_size", n),
		zap.Int("dimension", e.dim),
		zap.Float64("best_cost", e.best.cost),
	)
	return nil
}

// OptimizeStep runs up to iterations generations. After each generation the
// callback is invoked and the termination condition consulted; when it holds,
// the call returns early and the engine is Terminated. verbose only controls
// progress logging.
//
// The context is checked between generations, never within one. A failed
// cost evaluation aborts the call and leaves the population and best record
// as they were before the failing generation.
func (e *Engine) OptimizeStep(ctx context.Context, iterations int, verbose bool) error {
	const op = "OptimizeStep"

	if e.pop == nil {
		return optimization.UninitializedStateError(op).WithComponent(component)
	}
	if iterations <= 0 {
		return nil
	}

	start := time.Now()
	startGeneration := e.generation
	e.state = StateStepping

	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			e.state = StateIdle
			return optimization.WrapError(err, "stopped between generations").
				WithOperation(op).WithComponent(component)
		}

		if err := e.nextGeneration(ctx); err != nil {
			e.state = StateIdle
			return withContext(err, op)
		}

		if verbose {
			stats := e.pop.stats()
			e.logger.Info("Generation complete",
				zap.Int("generation", e.generation),
				zap.Float64("best_cost", e.best.cost),
				zap.Float64s("best_agent", e.best.agent),
				zap.Float64("mean_cost", stats.Mean),
				zap.Float64("cost_stddev", stats.StdDev),
			)
		}

		if e.config.Callback != nil {
			e.config.Callback(e)
		}

		if e.config.TerminationCondition != nil && e.config.TerminationCondition(e) {
			e.state = StateTerminated
			e.logger.Info("Termination condition met",
				zap.Int("generation", e.generation),
				zap.Float64("best_cost", e.best.cost),
			)
			return nil
		}
	}

	e.state = StateIdle
	e.logger.Debug("Step complete",
		zap.Int("generations", e.generation-startGeneration),
		zap.Int("total_generations", e.generation),
		zap.Float64("best_cost", e.best.cost),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// nextGeneration builds one trial per target from the current population,
// evaluates them, and only then applies selection and best tracking in index
// order.
func (e *Engine) nextGeneration(ctx context.Context) error {
	n := e.pop.size()
	trials := make([][]float64, n)
	for i := range trials {
		trials[i] = e.trial(i)
	}

	costs, err := e.evaluate(ctx, trials)
	if err != nil {
		return err
	}
	e.evaluations += n

	improved := false
	for i, t := range trials {
		e.pop.replace(i, t, costs[i])
		if e.best.offer(t, costs[i]) {
			improved = true
		}
	}
	e.generation++

	if improved {
		e.record()
	}
	return nil
}

// record appends the current best to the history, dropping the oldest entry
// once MaxHistory entries are held.
func (e *Engine) record() {
	entry := optimization.Evaluation{
		Iteration: e.generation,
		Solution: &optimization.Solution{
			Parameters: append([]float64(nil), e.best.agent...),
			Value:      e.best.cost,
		},
	}
	if len(e.history) < MaxHistory {
		e.history = append(e.history, entry)
		return
	}
	copy(e.history, e.history[1:])
	e.history[len(e.history)-1] = entry
}

// trial forms the trial vector for target i: mutant = a + F·(b − c) from
// three random donors, binomial crossover with the target (one forced gene
// index always taken from the mutant), then clamping when constraints are
// enforced.
func (e *Engine) trial(i int) []float64 {
	agents := e.pop.agents
	r1, r2, r3 := e.stream.Donors(len(agents), i)

	t := make([]float64, e.dim)
	floats.SubTo(t, agents[r2], agents[r3])
	floats.AddScaledTo(t, agents[r1], e.config.F, t)

	forced := e.stream.Intn(e.dim)
	target := agents[i]
	for j := range t {
		if e.stream.Float64() < e.config.CR || j == forced {
			continue
		}
		t[j] = target[j]
	}

	if e.config.ShouldCheckConstraint {
		for j, c := range e.constraints {
			t[j] = c.Clamp(t[j])
		}
	}
	return t
}

// evaluate computes the cost of every vector in xs. With more than one
// worker the evaluations run concurrently; results are stored by index, so
// the outcome is the same as a sequential pass.
func (e *Engine) evaluate(ctx context.Context, xs [][]float64) ([]float64, error) {
	costs := make([]float64, len(xs))

	if e.config.Workers <= 1 {
		for i, x := range xs {
			c, err := e.fn.Evaluate(x)
			if err != nil {
				return nil, evaluationError(i, err)
			}
			costs[i] = c
		}
		return costs, nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i, x := range xs {
		i, x := i, x
		g.Go(func() error {
			c, err := e.fn.Evaluate(x)
			if err != nil {
				return evaluationError(i, err)
			}
			costs[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return costs, nil
}

// GetPopulation returns a copy of the current population in index order, or
// nil before initialization.
func (e *Engine) GetPopulation() [][]float64 {
	if e.pop == nil {
		return nil
	}
	return e.pop.snapshot()
}

// GetPopulationCost returns a copy of every individual with its cost.
func (e *Engine) GetPopulationCost() []Member {
	if e.pop == nil {
		return nil
	}
	return e.pop.members()
}

// PopulationStats summarizes the current population's costs.
func (e *Engine) PopulationStats() (PopulationStats, error) {
	if e.pop == nil {
		return PopulationStats{}, optimization.UninitializedStateError("PopulationStats").WithComponent(component)
	}
	return e.pop.stats(), nil
}

// GetBestCost returns the lowest cost evaluated so far, +Inf before
// initialization.
func (e *Engine) GetBestCost() float64 {
	return e.best.cost
}

// GetBestAgent returns a copy of the individual with the lowest cost, nil
// before initialization.
func (e *Engine) GetBestAgent() []float64 {
	if e.best.agent == nil {
		return nil
	}
	return append([]float64(nil), e.best.agent...)
}

// GetHistory returns the best solution recorded after each generation that
// improved it, oldest first. At most MaxHistory entries are kept.
func (e *Engine) GetHistory() []optimization.Evaluation {
	return append([]optimization.Evaluation(nil), e.history...)
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Generation returns the number of generations run since initialization.
func (e *Engine) Generation() int {
	return e.generation
}

// Evaluations returns the number of cost evaluations since initialization.
func (e *Engine) Evaluations() int {
	return e.evaluations
}

// NumberOfParameters returns the dimension of the cost function.
func (e *Engine) NumberOfParameters() int {
	return e.dim
}

// Constraints returns the effective per-parameter constraints.
func (e *Engine) Constraints() []cost.Constraint {
	return append([]cost.Constraint(nil), e.constraints...)
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

func evaluationError(i int, err error) *optimization.Error {
	return optimization.WrapError(err, fmt.Sprintf("evaluating individual %d", i)).
		WithOperation("Evaluate").WithComponent(component)
}

// withContext tags err with op unless it already carries an operation.
func withContext(err error, op string) error {
	if e, ok := err.(*optimization.Error); ok {
		if e.Op == "" {
			e.Op = op
		}
		if e.Component == "" {
			e.Component = component
		}
		return e
	}
	return optimization.WrapError(err, op).WithOperation(op).WithComponent(component)
}
