// Package reference provides a local-search baseline used to compare
// Differential Evolution runs against.
package reference

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/diffevo/internal/optimization"
	"github.com/copyleftdev/diffevo/internal/optimization/cost"
)

const component = "nelder_mead"

// Config contains configuration for NelderMead
type Config struct {
	// Number of restarts; 0 picks 5 + 5·sqrt(d)
	Starts int

	// Seed for the random start points
	RandomSeed int64

	// Logger for per-start progress; nil disables logging.
	Logger *zap.Logger
}

// NelderMead minimizes an objective by running gonum's Nelder-Mead simplex
// from several random start points inside the bounds and keeping the best
// result. Points proposed outside the bounds are clamped before evaluation.
type NelderMead struct {
	config Config
	logger *zap.Logger

	mu           sync.Mutex
	bestSolution *optimization.Solution
	history      []optimization.Evaluation
	cancel       context.CancelFunc
}

var _ optimization.Optimizer = (*NelderMead)(nil)

// NewNelderMead creates a new NelderMead optimizer
func NewNelderMead(config Config) *NelderMead {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NelderMead{config: config, logger: logger.Named(component)}
}

// Optimize runs every start and returns the best location found.
// MaxIterations bounds the major iterations of each start; 0 leaves gonum's
// convergence test as the only limit. The context is checked between starts.
func (nm *NelderMead) Optimize(ctx context.Context, config optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	const op = "Optimize"

	if config.Objective == nil {
		return nil, optimization.ConfigurationError("objective must not be nil").
			WithOperation(op).WithComponent(component)
	}
	nDims := len(config.Bounds)
	if nDims == 0 {
		return nil, optimization.ConfigurationError("at least one bound is required").
			WithOperation(op).WithComponent(component)
	}
	for i, b := range config.Bounds {
		if _, err := cost.NewConstraint(b[0], b[1], true); err != nil {
			return nil, optimization.ConfigurationError("invalid bounds %v for parameter %d: %v", b, i, err).
				WithOperation(op).WithComponent(component)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	nm.mu.Lock()
	nm.bestSolution = nil
	nm.history = nil
	nm.cancel = cancel
	nm.mu.Unlock()

	starts := nm.startPoints(config)

	var (
		evalErr     error
		evaluations int
		point       = make([]float64, nDims)
	)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			for i := range x {
				point[i] = math.Max(config.Bounds[i][0], math.Min(x[i], config.Bounds[i][1]))
			}
			evaluations++
			value, err := config.Objective(point)
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			return value
		},
	}

	settings := &optimize.Settings{
		MajorIterations: config.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	iterations := 0
	converged := false
	for i, start := range starts {
		if err := ctx.Err(); err != nil {
			return nil, optimization.WrapError(err, "stopped between starts").
				WithOperation(op).WithComponent(component)
		}

		method := &optimize.NelderMead{SimplexSize: 0.05 * span(config.Bounds)}
		result, err := optimize.Minimize(problem, start, settings, method)
		if evalErr != nil {
			return nil, optimization.WrapError(evalErr, "evaluating objective").
				WithOperation(op).WithComponent(component)
		}
		// IterationLimit is reported as an error alongside a usable result.
		if result == nil {
			return nil, optimization.WrapError(err, "minimizing").
				WithOperation(op).WithComponent(component)
		}

		iterations += result.MajorIterations
		if result.Status == optimize.FunctionConvergence || result.Status == optimize.MethodConverge {
			converged = true
		}

		x := clamp(result.X, config.Bounds)
		nm.record(i, x, result.F)
		if config.Verbose {
			nm.logger.Info("Start complete",
				zap.Int("start", i),
				zap.Float64("value", result.F),
				zap.Stringer("status", result.Status),
				zap.Int("iterations", result.MajorIterations),
			)
		}
	}

	return &optimization.OptimizationResult{
		BestSolution: nm.GetBestSolution(),
		History:      nm.GetHistory(),
		Iterations:   iterations,
		Evaluations:  evaluations,
		Converged:    converged,
	}, nil
}

// GetBestSolution returns the best solution of the last run, or nil.
func (nm *NelderMead) GetBestSolution() *optimization.Solution {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if nm.bestSolution == nil {
		return nil
	}
	s := *nm.bestSolution
	s.Parameters = append([]float64(nil), s.Parameters...)
	return &s
}

// GetHistory returns the result of every start of the last run.
func (nm *NelderMead) GetHistory() []optimization.Evaluation {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	return append([]optimization.Evaluation(nil), nm.history...)
}

// Stop ends a running Optimize call before its next start.
func (nm *NelderMead) Stop() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if nm.cancel != nil {
		nm.cancel()
	}
}

func (nm *NelderMead) record(start int, x []float64, value float64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	solution := &optimization.Solution{Parameters: x, Value: value}
	nm.history = append(nm.history, optimization.Evaluation{Iteration: start, Solution: solution})
	if nm.bestSolution == nil || value < nm.bestSolution.Value {
		nm.bestSolution = solution
	}
}

// startPoints draws the start locations uniformly inside the bounds.
func (nm *NelderMead) startPoints(config optimization.OptimizerConfig) [][]float64 {
	nDims := len(config.Bounds)
	n := nm.config.Starts
	if n < 1 {
		n = 5 + int(5*math.Sqrt(float64(nDims)))
	}

	seed := nm.config.RandomSeed
	if config.RandomSeed != 0 {
		seed = config.RandomSeed
	}
	rng := rand.New(rand.NewSource(seed))

	starts := make([][]float64, n)
	for i := range starts {
		starts[i] = make([]float64, nDims)
		for j, b := range config.Bounds {
			starts[i][j] = b[0] + rng.Float64()*(b[1]-b[0])
		}
	}
	return starts
}

func clamp(x []float64, bounds [][2]float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(bounds[i][0], math.Min(v, bounds[i][1]))
	}
	return out
}

// span returns the mean width of the bounds, or 1 when all are degenerate.
func span(bounds [][2]float64) float64 {
	total := 0.0
	for _, b := range bounds {
		total += b[1] - b[0]
	}
	if total == 0 {
		return 1
	}
	return total / float64(len(bounds))
}
