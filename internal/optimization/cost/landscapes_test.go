package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLandscapeMinima(t *testing.T) {
	origin := []float64{0, 0, 0}

	assert.Equal(t, 0.0, Sphere(origin))
	assert.InDelta(t, 0.0, Rastrigin(origin), 1e-12)
	assert.InDelta(t, 0.0, Ackley(origin), 1e-12)
	assert.InDelta(t, 800.0, ShiftedCosine(origin), 1e-12)

	assert.Equal(t, 14.0, Sphere([]float64{1, 2, 3}))
	assert.InDelta(t, 2.0, Rastrigin([]float64{1, 1}), 1e-12)
	assert.Greater(t, Ackley([]float64{1, 1}), 0.0)
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"ackley", "default", "rastrigin", "sphere"}, Names())

	l, ok := Lookup("rastrigin")
	require.True(t, ok)
	assert.Equal(t, -5.12, l.Lower)
	assert.Equal(t, 5.12, l.Upper)

	_, ok = Lookup("himmelblau")
	assert.False(t, ok)
}

func TestLandscapeBuild(t *testing.T) {
	def, _ := Lookup("default")
	fn, err := def.Build(3, DefaultLowerBound, DefaultUpperBound)
	require.NoError(t, err)
	assert.IsType(t, &Default{}, fn)

	fn, err = def.Build(3, -10, 10)
	require.NoError(t, err)
	assert.IsType(t, &Wrapped{}, fn)
	v, err := fn.Evaluate([]float64{0, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 800.0, v, 1e-12)

	sphere, _ := Lookup("sphere")
	fn, err = sphere.Build(2, -5, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, fn.NumberOfParameters())
	assert.Equal(t, Constraint{-5, 5, true}, fn.GetConstraints()[1])

	_, err = sphere.Build(0, -5, 5)
	assert.Error(t, err)
}
