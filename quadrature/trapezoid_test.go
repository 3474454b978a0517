package quadrature

import (
	"errors"
	"math"
	"testing"
)

func TestPolynomial(tst *testing.T) {
	t := NewTrapezoid()
	v, err := t.Integrate(func(x float64) float64 { return x * x }, 0, 1)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if math.Abs(v-1./3) > 1e-3/3 {
		tst.Error("Expected 1/3, got", v)
	}
}

func TestSine(tst *testing.T) {
	t := NewTrapezoid()
	t.Eps = 1e-8
	v, err := t.Integrate(math.Sin, 0, math.Pi)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if math.Abs(v-2) > 1e-7 {
		tst.Error("Expected 2, got", v)
	}
}

func TestZeroIntegrand(tst *testing.T) {
	t := NewTrapezoid()
	v, err := t.Integrate(func(float64) float64 { return 0 }, 0, 1)
	if err != nil || v != 0 {
		tst.Error("Expected 0 and no error, got", v, err)
	}
}

func TestFloor(tst *testing.T) {
	// The estimates approach zero geometrically, which the relative test
	// alone never accepts.
	f := func(x float64) float64 { return x*x - 1./3 }
	t := NewTrapezoid()
	t.MaxSteps = 12
	if _, err := t.Integrate(f, 0, 1); !errors.Is(err, ErrNoConvergence) {
		tst.Error("Expected no convergence without floor, got", err)
	}
	v, err := t.WithFloor(1e-6).Integrate(f, 0, 1)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if math.Abs(v) > 1e-6 {
		tst.Error("Expected 0, got", v)
	}
}

func TestMinSteps(tst *testing.T) {
	calls := 0
	f := func(x float64) float64 {
		calls++
		return 1
	}
	t := NewTrapezoid()
	if _, err := t.Integrate(f, 0, 1); err != nil {
		tst.Fatal("Error:", err)
	}
	// 2 + 1 + 2 + 4 + 8 evaluations for five stages.
	if calls != 17 {
		tst.Error("Expected 17 evaluations, got", calls)
	}
}

func TestCap(tst *testing.T) {
	t := Trapezoid{Eps: 1e-15, MaxSteps: 6, MinSteps: 2}
	_, err := t.Integrate(math.Sqrt, 0, 1)
	if !errors.Is(err, ErrNoConvergence) {
		tst.Error("Expected ErrNoConvergence, got", err)
	}
}
