package de

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Member is an individual together with its cost.
type Member struct {
	Agent []float64
	Cost  float64
}

// PopulationStats summarizes the costs of the current population.
type PopulationStats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// population holds the individuals and their cached costs, index-aligned.
type population struct {
	agents [][]float64
	costs  []float64
}

func (p *population) size() int {
	return len(p.agents)
}

func (p *population) snapshot() [][]float64 {
	out := make([][]float64, len(p.agents))
	for i, a := range p.agents {
		out[i] = append([]float64(nil), a...)
	}
	return out
}

func (p *population) members() []Member {
	out := make([]Member, len(p.agents))
	for i, a := range p.agents {
		out[i] = Member{Agent: append([]float64(nil), a...), Cost: p.costs[i]}
	}
	return out
}

func (p *population) stats() PopulationStats {
	mean, std := stat.MeanStdDev(p.costs, nil)
	return PopulationStats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(p.costs),
		Max:    floats.Max(p.costs),
	}
}

// replace applies greedy selection for target i: the trial survives when it
// costs no more than the target. A NaN trial never survives; a NaN target is
// always replaced by a non-NaN trial.
func (p *population) replace(i int, trial []float64, c float64) bool {
	if math.IsNaN(c) {
		return false
	}
	if c <= p.costs[i] || math.IsNaN(p.costs[i]) {
		p.agents[i] = trial
		p.costs[i] = c
		return true
	}
	return false
}

// bestTracker records the lowest cost ever evaluated and its individual.
type bestTracker struct {
	cost  float64
	agent []float64
}

func newBestTracker() bestTracker {
	return bestTracker{cost: math.Inf(1)}
}

// offer records agent if it strictly improves on the best so far.
func (b *bestTracker) offer(agent []float64, c float64) bool {
	if math.IsNaN(c) {
		return false
	}
	if b.agent == nil || c < b.cost {
		b.cost = c
		b.agent = append([]float64(nil), agent...)
		return true
	}
	return false
}
