package de

import (
	"context"
	"fmt"
	"testing"

	"github.com/copyleftdev/diffevo/internal/optimization/cost"
)

func BenchmarkOptimizeStep(b *testing.B) {
	for _, dim := range []int{2, 10, 30} {
		for _, workers := range []int{0, 4} {
			b.Run(fmt.Sprintf("dim=%d/workers=%d", dim, workers), func(b *testing.B) {
				fn, err := cost.NewWrapped(cost.Rastrigin, dim, -5.12, 5.12)
				if err != nil {
					b.Fatal(err)
				}
				config := DefaultConfig()
				config.Workers = workers
				engine := newEngine(b, fn, config)

				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := engine.OptimizeStep(context.Background(), 1, false); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
