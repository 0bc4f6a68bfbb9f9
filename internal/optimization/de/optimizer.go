package de

import (
	"context"
	"sync"

	"github.com/copyleftdev/diffevo/internal/optimization"
	"github.com/copyleftdev/diffevo/internal/optimization/cost"
)

// DefaultGenerations is used when OptimizerConfig.MaxIterations is not set.
const DefaultGenerations = 100

// Optimizer runs an Engine to completion behind the optimization.Optimizer
// interface.
type Optimizer struct {
	config Config

	mu     sync.Mutex
	engine *Engine
	cancel context.CancelFunc
}

var _ optimization.Optimizer = (*Optimizer)(nil)

// NewOptimizer creates an Optimizer whose engines use config.
func NewOptimizer(config Config) *Optimizer {
	return &Optimizer{config: config}
}

// Optimize minimizes config.Objective within config.Bounds for
// config.MaxIterations generations. A non-zero RandomSeed overrides the
// engine configuration's seed.
func (o *Optimizer) Optimize(ctx context.Context, config optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	fn, err := cost.NewObjective(config.Objective, config.Bounds)
	if err != nil {
		return nil, err
	}

	engineConfig := o.config
	if config.RandomSeed != 0 {
		engineConfig.RandomSeed = config.RandomSeed
	}
	generations := config.MaxIterations
	if generations < 1 {
		generations = DefaultGenerations
	}

	engine, err := New(fn, engineConfig)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.engine = engine
	o.cancel = cancel
	o.mu.Unlock()

	if err := engine.InitializePopulation(); err != nil {
		return nil, err
	}
	if err := engine.OptimizeStep(ctx, generations, config.Verbose); err != nil {
		return nil, err
	}

	return &optimization.OptimizationResult{
		BestSolution: o.GetBestSolution(),
		History:      engine.GetHistory(),
		Iterations:   engine.Generation(),
		Evaluations:  engine.Evaluations(),
		Converged:    engine.State() == StateTerminated,
	}, nil
}

// GetBestSolution returns the best solution of the last run, or nil. It must
// not be called while Optimize is running.
func (o *Optimizer) GetBestSolution() *optimization.Solution {
	engine := o.currentEngine()
	if engine == nil || engine.GetBestAgent() == nil {
		return nil
	}
	return &optimization.Solution{
		Parameters: engine.GetBestAgent(),
		Value:      engine.GetBestCost(),
	}
}

// GetHistory returns the improvements of the best solution in the last run. It
// must not be called while Optimize is running.
func (o *Optimizer) GetHistory() []optimization.Evaluation {
	engine := o.currentEngine()
	if engine == nil {
		return nil
	}
	return engine.GetHistory()
}

// Stop ends a running Optimize call at the next generation boundary.
func (o *Optimizer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

func (o *Optimizer) currentEngine() *Engine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.engine
}
