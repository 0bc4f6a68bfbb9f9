package de

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/diffevo/internal/optimization/cost"
)

// newSphere returns the sum-of-squares landscape wrapped with uniform bounds.
func newSphere(t testing.TB, dim int, lower, upper float64) cost.Function {
	t.Helper()
	fn, err := cost.NewWrapped(cost.Sphere, dim, lower, upper)
	require.NoError(t, err)
	return fn
}

// newEngine builds and initializes an engine, failing the test on error.
func newEngine(t testing.TB, fn cost.Function, config Config) *Engine {
	t.Helper()
	e, err := New(fn, config)
	require.NoError(t, err)
	require.NoError(t, e.InitializePopulation())
	return e
}

// flakyFunction fails every evaluation once failFrom calls have been made.
type flakyFunction struct {
	cost.Function
	calls    int
	failFrom int
	err      error
}

func (f *flakyFunction) Evaluate(x []float64) (float64, error) {
	f.calls++
	if f.failFrom > 0 && f.calls >= f.failFrom {
		return 0, f.err
	}
	return f.Function.Evaluate(x)
}

// fixedConstraints overrides the constraints reported by a function.
type fixedConstraints struct {
	cost.Function
	constraints []cost.Constraint
}

func (f fixedConstraints) GetConstraints() []cost.Constraint {
	return f.constraints
}

// assertWithin fails unless every gene of agent lies in [lower, upper].
func assertWithin(t *testing.T, agent []float64, lower, upper float64) {
	t.Helper()
	for j, v := range agent {
		if v < lower || v > upper || math.IsNaN(v) {
			t.Fatalf("gene %d = %v outside [%v, %v]", j, v, lower, upper)
		}
	}
}
