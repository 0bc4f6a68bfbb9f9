package de

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/diffevo/internal/optimization"
)

// MinPopulationSize is the smallest population that can supply three
// distinct donors besides the target.
const MinPopulationSize = 4

// Config contains configuration for the Engine
type Config struct {
	// Number of individuals
	PopulationSize int

	// Mutation scale applied to the donor difference vector
	F float64

	// Crossover probability in [0, 1]
	CR float64

	// Seed of the engine's random stream
	RandomSeed int64

	// Clamp trial genes into their constraints before evaluation
	ShouldCheckConstraint bool

	// Callback is invoked after every generation. It must not step the engine.
	Callback func(*Engine)

	// TerminationCondition is consulted after every generation; returning
	// true ends the current OptimizeStep call. It is expected to be free of
	// side effects. Nil means never terminate.
	TerminationCondition func(*Engine) bool

	// Number of concurrent cost evaluations per generation; 0 or 1 evaluates
	// sequentially.
	Workers int

	// Logger for progress and diagnostics; nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns the configuration used when callers have no
// preference.
func DefaultConfig() Config {
	return Config{
		PopulationSize:        50,
		F:                     0.8,
		CR:                    0.9,
		RandomSeed:            123,
		ShouldCheckConstraint: true,
	}
}

func (c Config) validate() error {
	if c.PopulationSize < MinPopulationSize {
		return optimization.ConfigurationError("population size must be at least %d, got %d",
			MinPopulationSize, c.PopulationSize)
	}
	if math.IsNaN(c.CR) || c.CR < 0 || c.CR > 1 {
		return optimization.ConfigurationError("crossover rate must be in [0, 1], got %v", c.CR)
	}
	if math.IsNaN(c.F) || math.IsInf(c.F, 0) {
		return optimization.ConfigurationError("mutation factor must be finite, got %v", c.F)
	}
	if c.Workers < 0 {
		return optimization.ConfigurationError("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
