package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/diffevo/internal/optimization"
	"github.com/copyleftdev/diffevo/internal/optimization/cost"
	"github.com/copyleftdev/diffevo/internal/optimization/de"
	"github.com/copyleftdev/diffevo/internal/optimization/reference"
)

var (
	errRunNotFound    = errors.New("run not found")
	errInvalidRequest = errors.New("invalid request")
	errTooManyRuns    = errors.New("run limit reached")
)

// Run is an engine held in memory between requests. The engine is guarded by
// mu; a step holds it for its whole duration.
type Run struct {
	ID        string
	Function  string
	Seed      int64
	CreatedAt time.Time

	mu     sync.Mutex
	fn     cost.Function
	engine *de.Engine
}

// CreateRunRequest describes a new run. Zero or absent fields take the
// server's defaults.
type CreateRunRequest struct {
	Function         string   `json:"function"`
	Dimension        int      `json:"dimension"`
	Lower            *float64 `json:"lower,omitempty"`
	Upper            *float64 `json:"upper,omitempty"`
	PopulationSize   int      `json:"population_size,omitempty"`
	F                *float64 `json:"f,omitempty"`
	CR               *float64 `json:"cr,omitempty"`
	Seed             *int64   `json:"seed,omitempty"`
	CheckConstraints *bool    `json:"check_constraints,omitempty"`
	Workers          *int     `json:"workers,omitempty"`
	TargetCost       *float64 `json:"target_cost,omitempty"`
}

// StepRequest asks for more generations on a run.
type StepRequest struct {
	ID         string `json:"id,omitempty"`
	Iterations int    `json:"iterations"`
	Verbose    bool   `json:"verbose"`
}

// RunStatus is the externally visible state of a run.
type RunStatus struct {
	ID             string            `json:"id"`
	Function       string            `json:"function"`
	State          string            `json:"state"`
	Dimension      int               `json:"dimension"`
	PopulationSize int               `json:"population_size"`
	Generation     int               `json:"generation"`
	Evaluations    int               `json:"evaluations"`
	BestCost       Float             `json:"best_cost"`
	BestAgent      []Float           `json:"best_agent"`
	Stats          PopulationSummary `json:"stats"`
	CreatedAt      time.Time         `json:"created_at"`
}

// PopulationSummary summarizes the costs of a run's population.
type PopulationSummary struct {
	Mean   Float `json:"mean"`
	StdDev Float `json:"std_dev"`
	Min    Float `json:"min"`
	Max    Float `json:"max"`
}

// Individual is one member of a population listing.
type Individual struct {
	Agent []Float `json:"agent"`
	Cost  Float   `json:"cost"`
}

// PopulationResponse lists a run's population in index order.
type PopulationResponse struct {
	ID         string       `json:"id"`
	Generation int          `json:"generation"`
	Members    []Individual `json:"members"`
}

// OptimizerSummary reports the outcome of one optimizer in a comparison.
type OptimizerSummary struct {
	Optimizer   string    `json:"optimizer"`
	BestCost    Float   `json:"best_cost"`
	BestAgent   []Float `json:"best_agent"`
	Evaluations int     `json:"evaluations"`
	Converged   bool    `json:"converged"`
}

// CompareResponse puts a run next to a Nelder-Mead search on the same
// landscape and bounds.
type CompareResponse struct {
	ID        string           `json:"id"`
	Function  string           `json:"function"`
	Evolution OptimizerSummary `json:"differential_evolution"`
	Reference OptimizerSummary `json:"nelder_mead"`
}

// createRun builds, initializes, and registers a run.
func (s *Server) createRun(req CreateRunRequest) (*RunStatus, error) {
	opts := s.cfg.Optimization

	name := req.Function
	if name == "" {
		name = "default"
	}
	landscape, ok := cost.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown function %q, want one of %v", errInvalidRequest, name, cost.Names())
	}
	if req.Dimension < 1 || req.Dimension > opts.MaxDimension {
		return nil, fmt.Errorf("%w: dimension must be in [1, %d], got %d", errInvalidRequest, opts.MaxDimension, req.Dimension)
	}

	lower, upper := landscape.Lower, landscape.Upper
	if req.Lower != nil {
		lower = *req.Lower
	}
	if req.Upper != nil {
		upper = *req.Upper
	}
	fn, err := landscape.Build(req.Dimension, lower, upper)
	if err != nil {
		return nil, err
	}

	config := de.Config{
		PopulationSize:        opts.DefaultPopulation,
		F:                     opts.DefaultF,
		CR:                    opts.DefaultCR,
		RandomSeed:            opts.DefaultSeed,
		ShouldCheckConstraint: true,
		Workers:               opts.WorkerCount,
	}
	if req.PopulationSize != 0 {
		config.PopulationSize = req.PopulationSize
	}
	if req.F != nil {
		config.F = *req.F
	}
	if req.CR != nil {
		config.CR = *req.CR
	}
	if req.Seed != nil {
		config.RandomSeed = *req.Seed
	}
	if req.CheckConstraints != nil {
		config.ShouldCheckConstraint = *req.CheckConstraints
	}
	if req.Workers != nil {
		config.Workers = *req.Workers
	}

	run := &Run{
		ID:        uuid.NewString(),
		Function:  name,
		Seed:      config.RandomSeed,
		CreatedAt: time.Now().UTC(),
		fn:        fn,
	}
	config.Logger = s.logger.With(zap.String("run_id", run.ID), zap.String("function", name))
	config.Callback = func(e *de.Engine) {
		s.metrics.GenerationCompleted(run.ID, run.Function, e.GetBestCost())
	}
	if req.TargetCost != nil {
		target := *req.TargetCost
		config.TerminationCondition = func(e *de.Engine) bool {
			return e.GetBestCost() <= target
		}
	}

	engine, err := de.New(fn, config)
	if err != nil {
		return nil, err
	}
	if err := engine.InitializePopulation(); err != nil {
		return nil, err
	}
	run.engine = engine

	// The run is not visible to other requests until it is registered, so
	// its status can be taken without holding run.mu.
	status, err := run.status()
	if err != nil {
		return nil, err
	}

	s.runsMu.Lock()
	if len(s.runs) >= opts.MaxRuns {
		s.runsMu.Unlock()
		return nil, fmt.Errorf("%w: %d runs held", errTooManyRuns, opts.MaxRuns)
	}
	s.runs[run.ID] = run
	s.runsMu.Unlock()

	s.metrics.RunCreated(run.ID, run.Function, engine.GetBestCost(), engine.Evaluations())
	s.logger.Info("Run created",
		zap.String("run_id", run.ID),
		zap.String("function", name),
		zap.Int("dimension", req.Dimension),
		zap.Int("population_size", config.PopulationSize),
		zap.Int64("seed", config.RandomSeed),
	)
	return status, nil
}

// stepRun advances a run by up to req.Iterations generations, capped at the
// configured maximum. The context is honored between generations.
func (s *Server) stepRun(ctx context.Context, id string, req StepRequest) (*RunStatus, error) {
	run, err := s.getRun(id)
	if err != nil {
		return nil, err
	}

	iterations := req.Iterations
	if limit := s.cfg.Optimization.MaxGenerationsPerStep; iterations > limit {
		s.logger.Warn("Capping step iterations",
			zap.String("run_id", id),
			zap.Int("requested", iterations),
			zap.Int("max", limit),
		)
		iterations = limit
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	before := run.engine.Evaluations()
	start := time.Now()
	err = run.engine.OptimizeStep(ctx, iterations, req.Verbose)
	s.metrics.StepCompleted(run.Function, time.Since(start), run.engine.Evaluations()-before,
		run.engine.State() == de.StateTerminated)
	if err != nil {
		s.logger.Error("Step failed", zap.String("run_id", id), zap.Error(err))
		return nil, err
	}
	return run.status()
}

func (s *Server) runStatus(id string) (*RunStatus, error) {
	run, err := s.getRun(id)
	if err != nil {
		return nil, err
	}
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.status()
}

func (s *Server) runPopulation(id string) (*PopulationResponse, error) {
	run, err := s.getRun(id)
	if err != nil {
		return nil, err
	}
	run.mu.Lock()
	defer run.mu.Unlock()

	members := run.engine.GetPopulationCost()
	resp := &PopulationResponse{
		ID:         run.ID,
		Generation: run.engine.Generation(),
		Members:    make([]Individual, len(members)),
	}
	for i, m := range members {
		resp.Members[i] = Individual{Agent: floatsOf(m.Agent), Cost: Float(m.Cost)}
	}
	return resp, nil
}

// compareRun runs a multi-start Nelder-Mead search on the run's landscape,
// bounds, and seed, and reports it next to the run's current best.
func (s *Server) compareRun(ctx context.Context, id string) (*CompareResponse, error) {
	run, err := s.getRun(id)
	if err != nil {
		return nil, err
	}

	run.mu.Lock()
	evolution := OptimizerSummary{
		Optimizer:   "differential_evolution",
		BestCost:    Float(run.engine.GetBestCost()),
		BestAgent:   floatsOf(run.engine.GetBestAgent()),
		Evaluations: run.engine.Evaluations(),
		Converged:   run.engine.State() == de.StateTerminated,
	}
	constraints := run.engine.Constraints()
	run.mu.Unlock()

	bounds := make([][2]float64, len(constraints))
	for i, c := range constraints {
		lo, hi := c.Range()
		bounds[i] = [2]float64{lo, hi}
	}

	nm := reference.NewNelderMead(reference.Config{
		RandomSeed: run.Seed,
		Logger:     s.logger.With(zap.String("run_id", run.ID)),
	})
	result, err := nm.Optimize(ctx, optimization.OptimizerConfig{
		Objective:     run.fn.Evaluate,
		Bounds:        bounds,
		MaxIterations: s.cfg.Optimization.MaxGenerationsPerStep,
		RandomSeed:    run.Seed,
	})
	if err != nil {
		return nil, err
	}

	return &CompareResponse{
		ID:        run.ID,
		Function:  run.Function,
		Evolution: evolution,
		Reference: OptimizerSummary{
			Optimizer:   "nelder_mead",
			BestCost:    Float(result.BestSolution.Value),
			BestAgent:   floatsOf(result.BestSolution.Parameters),
			Evaluations: result.Evaluations,
			Converged:   result.Converged,
		},
	}, nil
}

func (s *Server) deleteRun(id string) error {
	s.runsMu.Lock()
	_, ok := s.runs[id]
	delete(s.runs, id)
	s.runsMu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", errRunNotFound, id)
	}
	s.metrics.RunDeleted(id)
	s.logger.Info("Run deleted", zap.String("run_id", id))
	return nil
}

func (s *Server) getRun(id string) (*Run, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errRunNotFound, id)
	}
	return run, nil
}

// status must be called with r.mu held.
func (r *Run) status() (*RunStatus, error) {
	stats, err := r.engine.PopulationStats()
	if err != nil {
		return nil, err
	}
	return &RunStatus{
		ID:             r.ID,
		Function:       r.Function,
		State:          r.engine.State().String(),
		Dimension:      r.engine.NumberOfParameters(),
		PopulationSize: r.engine.Config().PopulationSize,
		Generation:     r.engine.Generation(),
		Evaluations:    r.engine.Evaluations(),
		BestCost:       Float(r.engine.GetBestCost()),
		BestAgent:      floatsOf(r.engine.GetBestAgent()),
		Stats: PopulationSummary{
			Mean:   Float(stats.Mean),
			StdDev: Float(stats.StdDev),
			Min:    Float(stats.Min),
			Max:    Float(stats.Max),
		},
		CreatedAt: r.CreatedAt,
	}, nil
}
