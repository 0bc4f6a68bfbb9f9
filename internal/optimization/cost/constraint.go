package cost

import (
	"math"

	"github.com/copyleftdev/diffevo/internal/optimization"
)

const (
	// DefaultLowerBound is the sampling range lower edge for parameters
	// without an enforced constraint.
	DefaultLowerBound = -100.0
	// DefaultUpperBound is the sampling range upper edge for parameters
	// without an enforced constraint.
	DefaultUpperBound = 100.0
)

// Constraint is the admissible range of a single parameter.
type Constraint struct {
	Lower         float64
	Upper         float64
	IsConstrained bool
}

// NewConstraint creates a Constraint, rejecting inverted bounds when the
// constraint is enforced.
func NewConstraint(lower, upper float64, constrained bool) (Constraint, error) {
	c := Constraint{Lower: lower, Upper: upper, IsConstrained: constrained}
	if err := c.Validate(); err != nil {
		return Constraint{}, err
	}
	return c, nil
}

// Unconstrained returns a Constraint that admits every value.
func Unconstrained() Constraint {
	return Constraint{Lower: DefaultLowerBound, Upper: DefaultUpperBound}
}

// Check reports whether v is admissible.
func (c Constraint) Check(v float64) bool {
	if !c.IsConstrained {
		return true
	}
	return v >= c.Lower && v <= c.Upper
}

// Clamp returns v moved onto the nearest bound if it violates the constraint.
func (c Constraint) Clamp(v float64) float64 {
	if !c.IsConstrained {
		return v
	}
	return math.Max(c.Lower, math.Min(v, c.Upper))
}

// Range returns the interval initial values are sampled from.
func (c Constraint) Range() (float64, float64) {
	if !c.IsConstrained {
		return DefaultLowerBound, DefaultUpperBound
	}
	return c.Lower, c.Upper
}

// Validate reports inverted or non-finite bounds on an enforced constraint.
// The width Upper-Lower must also be finite so that sampling stays inside
// the range.
func (c Constraint) Validate() error {
	if !c.IsConstrained {
		return nil
	}
	if math.IsNaN(c.Lower) || math.IsNaN(c.Upper) {
		return optimization.ConfigurationError("constraint bounds must not be NaN").
			WithComponent("constraint")
	}
	if math.IsInf(c.Lower, 0) || math.IsInf(c.Upper, 0) {
		return optimization.ConfigurationError("constraint bounds must be finite, got [%v, %v]", c.Lower, c.Upper).
			WithComponent("constraint")
	}
	if c.Lower > c.Upper {
		return optimization.ConfigurationError("lower bound %v exceeds upper bound %v", c.Lower, c.Upper).
			WithComponent("constraint")
	}
	if math.IsInf(c.Upper-c.Lower, 0) {
		return optimization.ConfigurationError("constraint range [%v, %v] overflows", c.Lower, c.Upper).
			WithComponent("constraint")
	}
	return nil
}

// Uniform returns d identical enforced constraints on [lower, upper].
func Uniform(d int, lower, upper float64) ([]Constraint, error) {
	c, err := NewConstraint(lower, upper, true)
	if err != nil {
		return nil, err
	}
	cs := make([]Constraint, d)
	for i := range cs {
		cs[i] = c
	}
	return cs, nil
}
