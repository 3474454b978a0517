// Package quadrature implements the adaptive trapezoid integrator used for
// the radial coupling integrals.
package quadrature

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoConvergence is returned when the refinement cap is reached.
var ErrNoConvergence = errors.New("quadrature: too many refinement steps")

// Integrand is a real function of one variable.
type Integrand func(x float64) float64

// Integrator integrates an integrand over a closed interval.
type Integrator interface {
	Integrate(f Integrand, a, b float64) (float64, error)
}

// Trapezoid is the successive-halving trapezoid rule. Each refinement
// doubles the number of interior points; iteration stops when two
// successive estimates differ by less than Eps relative or Floor absolute,
// but never before MinSteps refinements.
type Trapezoid struct {
	Eps      float64
	MaxSteps int
	MinSteps int
	Floor    float64
}

// NewTrapezoid returns the integrator with the default accuracy settings.
func NewTrapezoid() Trapezoid {
	return Trapezoid{
		Eps:      1e-3,
		MaxSteps: 20,
		MinSteps: 5,
	}
}

// WithFloor returns a copy of t with the absolute tolerance set.
func (t Trapezoid) WithFloor(floor float64) Trapezoid {
	t.Floor = floor
	return t
}

// refine performs the n-th stage of refinement given the previous
// estimate s.
func refine(f Integrand, a, b, s float64, n int) float64 {
	if n == 1 {
		return 0.5 * (b - a) * (f(a) + f(b))
	}
	it := 1 << uint(n-2)
	tnm := float64(it)
	del := (b - a) / tnm
	x := a + 0.5*del
	sum := 0.0
	for j := 0; j < it; j++ {
		sum += f(x)
		x += del
	}
	return 0.5 * (s + (b-a)*sum/tnm)
}

// Integrate integrates f over [a, b].
func (t Trapezoid) Integrate(f Integrand, a, b float64) (float64, error) {
	if a == b {
		return 0, nil
	}
	s, olds := 0.0, 0.0
	for n := 1; n <= t.MaxSteps; n++ {
		s = refine(f, a, b, s, n)
		if math.IsNaN(s) {
			return s, fmt.Errorf("quadrature: integrand is NaN on [%g, %g]", a, b)
		}
		if n > 1 && n >= t.MinSteps {
			d := math.Abs(s - olds)
			if d <= t.Eps*math.Abs(olds) || d <= t.Floor {
				return s, nil
			}
		}
		olds = s
	}
	return s, fmt.Errorf("%w: %d steps on [%g, %g], last estimate %g",
		ErrNoConvergence, t.MaxSteps, a, b, s)
}
