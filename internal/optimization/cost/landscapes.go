package cost

import (
	"math"
	"sort"
)

// Sphere computes Σ x_i². Minimum 0 at the origin.
func Sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// Rastrigin computes 10·n + Σ (x_i² − 10·cos(2π·x_i)). Minimum 0 at the origin.
func Rastrigin(x []float64) float64 {
	const a = 10.0
	sum := a * float64(len(x))
	for _, v := range x {
		sum += v*v - a*math.Cos(2*math.Pi*v)
	}
	return sum
}

// Ackley computes the Ackley function with a=20, b=0.2, c=2π. Minimum 0 at the origin.
func Ackley(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	n := float64(len(x))
	sumSq, sumCos := 0.0, 0.0
	for _, v := range x {
		sumSq += v * v
		sumCos += math.Cos(2 * math.Pi * v)
	}
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E
}

// Landscape is a named benchmark function with its conventional bounds.
type Landscape struct {
	Name  string
	Func  func([]float64) float64
	Lower float64
	Upper float64
}

var landscapes = map[string]Landscape{
	"default":   {Name: "default", Func: ShiftedCosine, Lower: DefaultLowerBound, Upper: DefaultUpperBound},
	"sphere":    {Name: "sphere", Func: Sphere, Lower: -100, Upper: 100},
	"rastrigin": {Name: "rastrigin", Func: Rastrigin, Lower: -5.12, Upper: 5.12},
	"ackley":    {Name: "ackley", Func: Ackley, Lower: -32.768, Upper: 32.768},
}

// Lookup returns the landscape registered under name.
func Lookup(name string) (Landscape, bool) {
	l, ok := landscapes[name]
	return l, ok
}

// Names returns the registered landscape names in sorted order.
func Names() []string {
	names := make([]string, 0, len(landscapes))
	for name := range landscapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build returns a Function for the landscape over dim parameters. The
// "default" landscape yields the built-in Default function when bounds match
// its fixed range; everything else is Wrapped.
func (l Landscape) Build(dim int, lower, upper float64) (Function, error) {
	if l.Name == "default" && lower == DefaultLowerBound && upper == DefaultUpperBound {
		return NewDefault(dim)
	}
	return NewWrapped(l.Func, dim, lower, upper)
}
