// Package cost defines the cost functions minimized by the optimizers: the
// Function capability, per-parameter constraints, and the built-in landscapes.
package cost

import (
	"math"

	"github.com/copyleftdev/diffevo/internal/optimization"
)

// Function is a scalar cost over a fixed-dimension parameter vector.
//
// Implementations must be safe for repeated and, when an engine evaluates in
// parallel, concurrent calls to Evaluate.
type Function interface {
	// Evaluate computes the cost of x. It fails with a dimension mismatch
	// when len(x) != NumberOfParameters().
	Evaluate(x []float64) (float64, error)

	// NumberOfParameters returns the dimension, fixed for the lifetime of
	// the function.
	NumberOfParameters() int

	// GetConstraints returns either no constraints or exactly one per
	// parameter, in parameter order.
	GetConstraints() []Constraint
}

func checkDimension(x []float64, d int) error {
	if len(x) != d {
		return optimization.DimensionMismatch(len(x), d).
			WithOperation("Evaluate").
			WithComponent("cost")
	}
	return nil
}

// Default is the built-in landscape
//
//	f(x) = Σ (x_i² − 100·cos²(x_i) − 100·cos(x_i²/30)) + 1400
//
// with every parameter constrained to [DefaultLowerBound, DefaultUpperBound].
type Default struct {
	dim         int
	constraints []Constraint
}

// NewDefault creates the built-in landscape over dim parameters.
func NewDefault(dim int) (*Default, error) {
	if dim < 1 {
		return nil, optimization.ConfigurationError("dimension must be at least 1, got %d", dim).
			WithComponent("cost")
	}
	cs, err := Uniform(dim, DefaultLowerBound, DefaultUpperBound)
	if err != nil {
		return nil, err
	}
	return &Default{dim: dim, constraints: cs}, nil
}

// Evaluate computes the landscape value at x.
func (f *Default) Evaluate(x []float64) (float64, error) {
	if err := checkDimension(x, f.dim); err != nil {
		return 0, err
	}
	return ShiftedCosine(x), nil
}

// NumberOfParameters returns the dimension.
func (f *Default) NumberOfParameters() int {
	return f.dim
}

// GetConstraints returns [DefaultLowerBound, DefaultUpperBound] for every parameter.
func (f *Default) GetConstraints() []Constraint {
	return append([]Constraint(nil), f.constraints...)
}

// Wrapped adapts an external scalar function with one (lower, upper) pair
// applied to every parameter. Evaluate is a pure pass-through.
type Wrapped struct {
	fn          func([]float64) float64
	dim         int
	constraints []Constraint
}

// NewWrapped wraps fn as a Function of dim parameters bounded by [lower, upper].
func NewWrapped(fn func([]float64) float64, dim int, lower, upper float64) (*Wrapped, error) {
	if fn == nil {
		return nil, optimization.ConfigurationError("function must not be nil").WithComponent("cost")
	}
	if dim < 1 {
		return nil, optimization.ConfigurationError("dimension must be at least 1, got %d", dim).
			WithComponent("cost")
	}
	cs, err := Uniform(dim, lower, upper)
	if err != nil {
		return nil, err
	}
	return &Wrapped{fn: fn, dim: dim, constraints: cs}, nil
}

// Evaluate returns fn(x).
func (w *Wrapped) Evaluate(x []float64) (float64, error) {
	if err := checkDimension(x, w.dim); err != nil {
		return 0, err
	}
	return w.fn(x), nil
}

// NumberOfParameters returns the dimension.
func (w *Wrapped) NumberOfParameters() int {
	return w.dim
}

// GetConstraints returns a copy of the shared bounds, one per parameter.
func (w *Wrapped) GetConstraints() []Constraint {
	return append([]Constraint(nil), w.constraints...)
}

// Objective adapts an error-returning objective with per-parameter bounds.
type Objective struct {
	fn     optimization.ObjectiveFunction
	bounds []Constraint
}

// NewObjective wraps fn with one enforced constraint per entry of bounds.
func NewObjective(fn optimization.ObjectiveFunction, bounds [][2]float64) (*Objective, error) {
	if fn == nil {
		return nil, optimization.ConfigurationError("objective must not be nil").WithComponent("cost")
	}
	if len(bounds) == 0 {
		return nil, optimization.ConfigurationError("at least one bound is required").WithComponent("cost")
	}
	cs := make([]Constraint, len(bounds))
	for i, b := range bounds {
		c, err := NewConstraint(b[0], b[1], true)
		if err != nil {
			return nil, err
		}
		cs[i] = c
	}
	return &Objective{fn: fn, bounds: cs}, nil
}

// Evaluate calls the objective; its errors are returned unchanged.
func (o *Objective) Evaluate(x []float64) (float64, error) {
	if err := checkDimension(x, len(o.bounds)); err != nil {
		return 0, err
	}
	return o.fn(x)
}

// NumberOfParameters returns the number of bounds.
func (o *Objective) NumberOfParameters() int {
	return len(o.bounds)
}

// GetConstraints returns a copy of the per-parameter bounds.
func (o *Objective) GetConstraints() []Constraint {
	return append([]Constraint(nil), o.bounds...)
}

// ShiftedCosine is the landscape used by Default, as a plain function.
func ShiftedCosine(x []float64) float64 {
	val := 0.0
	for _, v := range x {
		c := math.Cos(v)
		val += v*v - 100*c*c - 100*math.Cos(v*v/30)
	}
	return val + 1400
}
