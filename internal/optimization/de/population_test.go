package de

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulationReplace(t *testing.T) {
	tests := []struct {
		name      string
		target    float64
		trial     float64
		wantSwap  bool
		wantAfter float64
	}{
		{"better trial survives", 5, 3, true, 3},
		{"equal cost trial survives", 5, 5, true, 5},
		{"worse trial discarded", 5, 7, false, 5},
		{"NaN trial discarded", 5, math.NaN(), false, 5},
		{"NaN target replaced", math.NaN(), 1e9, true, 1e9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &population{
				agents: [][]float64{{1, 1}},
				costs:  []float64{tt.target},
			}
			trial := []float64{2, 2}

			assert.Equal(t, tt.wantSwap, p.replace(0, trial, tt.trial))
			assert.Equal(t, tt.wantAfter, p.costs[0])
			if tt.wantSwap {
				assert.Equal(t, trial, p.agents[0])
			} else {
				assert.Equal(t, []float64{1, 1}, p.agents[0])
			}
		})
	}
}

func TestPopulationStats(t *testing.T) {
	p := &population{
		agents: [][]float64{{0}, {1}, {2}, {3}},
		costs:  []float64{2, 4, 4, 6},
	}
	stats := p.stats()
	assert.Equal(t, 4.0, stats.Mean)
	assert.InDelta(t, math.Sqrt(8.0/3.0), stats.StdDev, 1e-12)
	assert.Equal(t, 2.0, stats.Min)
	assert.Equal(t, 6.0, stats.Max)
}

func TestPopulationSnapshotIsDeep(t *testing.T) {
	p := &population{agents: [][]float64{{1, 2}}, costs: []float64{3}}

	snap := p.snapshot()
	snap[0][0] = 100
	assert.Equal(t, 1.0, p.agents[0][0])

	members := p.members()
	require.Len(t, members, 1)
	members[0].Agent[1] = 100
	assert.Equal(t, 2.0, p.agents[0][1])
	assert.Equal(t, 3.0, members[0].Cost)
}

func TestBestTracker(t *testing.T) {
	b := newBestTracker()
	assert.True(t, math.IsInf(b.cost, 1))
	assert.Nil(t, b.agent)

	// Even a +Inf cost is recorded when nothing has been seen yet.
	assert.False(t, b.offer([]float64{9}, math.NaN()))
	assert.True(t, b.offer([]float64{8}, math.Inf(1)))
	assert.Equal(t, []float64{8}, b.agent)

	agent := []float64{1, 2}
	assert.True(t, b.offer(agent, 10))
	agent[0] = 50
	assert.Equal(t, []float64{1, 2}, b.agent)

	assert.False(t, b.offer([]float64{3, 3}, 10), "ties keep the earlier record")
	assert.False(t, b.offer([]float64{3, 3}, 11))
	assert.True(t, b.offer([]float64{0, 0}, -1))
	assert.Equal(t, -1.0, b.cost)
	assert.Equal(t, []float64{0, 0}, b.agent)
}
