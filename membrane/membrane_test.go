package membrane

import (
	"errors"
	"math"
	"testing"

	"github.com/op/go-logging"

	"bitbucket.org/dmlab/mirrorstab/bessel"
)

const (
	radius = 7.5e-3
	// smallDiff is the orthonormality tolerance.
	smallDiff = 1e-3
)

func init() {
	logging.SetLevel(logging.WARNING, "membrane")
}

func TestParameters(tst *testing.T) {
	p := DefaultParameters()
	if math.Abs(p.Tension()-3) > 1e-12 {
		tst.Error("Expected tension 3 N/m, got", p.Tension())
	}
	if math.Abs(p.Radius()-radius) > 1e-15 {
		tst.Error("Expected radius 7.5 mm, got", p.Radius())
	}
	if err := p.Validate(); err != nil {
		tst.Error("Unexpected error:", err)
	}
	p.ThicknessUm = 0
	if err := p.Validate(); !errors.Is(err, ErrInvalidParameters) {
		tst.Error("Expected ErrInvalidParameters, got", err)
	}
}

func TestBasisSize(tst *testing.T) {
	for _, n := range []int{0, 55} {
		if _, err := NewBasis(n, radius); !errors.Is(err, ErrBasisIndex) {
			tst.Error("Expected ErrBasisIndex for n =", n, ", got", err)
		}
	}
	if _, err := NewBasis(3, -1); !errors.Is(err, ErrInvalidParameters) {
		tst.Error("Expected ErrInvalidParameters, got", err)
	}
}

func TestOrthonormality(tst *testing.T) {
	b, err := NewBasis(bessel.Len(), radius)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	g := b.Gram(64, 32)
	n := b.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			exp := 0.0
			if i == j {
				exp = 1
			}
			if d := math.Abs(g.At(i, j) - exp); d > smallDiff {
				tst.Errorf("Gram[%d][%d] = %v, expected %v", i, j, g.At(i, j), exp)
			}
		}
	}
}

func TestZeros(tst *testing.T) {
	b, _ := NewBasis(27, radius)
	z := b.Zeros()
	if len(z) != 27 {
		tst.Fatal("Expected 27 zeros, got", len(z))
	}
	for j, x := range z {
		if x != b.Zero(j) {
			tst.Error("Zero mismatch at", j, ":", x, b.Zero(j))
		}
	}
	// 9v + n - 1: v = 3, n = 1 is outside the default basis.
	if z[26] != 30.569204495516399 {
		tst.Error("Expected the ninth zero of J_2 last, got", z[26])
	}
}

func TestEvaluate(tst *testing.T) {
	b, _ := NewBasis(12, radius)

	// J_1 cos(phi) changes sign across phi = pi/2.
	j := 9
	m, ph := b.Evaluate(j, radius/2, 0)
	if m <= 0 || ph != 0 {
		tst.Error("Expected positive value, got", m, ph)
	}
	m2, ph2 := b.Evaluate(j, radius/2, math.Pi)
	if math.Abs(m2-m) > 1e-9*m || ph2 != math.Pi {
		tst.Error("Expected mirrored negative value, got", m2, ph2)
	}
	if m, _ := b.Evaluate(j, radius*1.01, 0); m != 0 {
		tst.Error("Expected zero outside of membrane, got", m)
	}
	// Clamped edge.
	for k := 0; k < b.Len(); k++ {
		if v := b.Value(k, radius, 0.3); math.Abs(v) > 1e-8*b.Norm(k) {
			tst.Error("Expected zero at edge for", k, ", got", v)
		}
	}
}

func TestAzimuthalOverlap(tst *testing.T) {
	b, _ := NewBasis(20, radius)
	data := []struct {
		i, j int
		exp  float64
	}{
		{0, 0, 2 * math.Pi},
		{0, 3, 2 * math.Pi},
		{9, 10, math.Pi},
		{18, 18, math.Pi},
		{0, 9, 0},
		{9, 18, 0},
	}
	for _, d := range data {
		if v := b.AzimuthalOverlap(d.i, d.j); v != d.exp {
			tst.Errorf("Overlap(%d, %d) = %v, expected %v", d.i, d.j, v, d.exp)
		}
	}
}

// laplacian computes the polar Laplacian by central differences.
func laplacian(s Shape, r, phi float64) float64 {
	h := radius * 1e-4
	hp := 1e-4
	f := s.Deflection(r, phi)
	frr := (s.Deflection(r+h, phi) - 2*f + s.Deflection(r-h, phi)) / (h * h)
	fr := (s.Deflection(r+h, phi) - s.Deflection(r-h, phi)) / (2 * h)
	fpp := (s.Deflection(r, phi+hp) - 2*f + s.Deflection(r, phi-hp)) / (hp * hp)
	return frr + fr/r + fpp/(r*r)
}

func TestShapes(tst *testing.T) {
	b, _ := NewBasis(30, radius)
	bm, err := NewBesselMode(b, 28, 2e-6)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	ex, err := NewExpansion(b, []float64{1e-8, 0, 0, 0, 0, 0, 0, 0, 0, 2e-8, 0, 0, 0, 0, 0, 0, 0, 0, -1e-8})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	shapes := []Shape{
		Parabolic{Peak: -3e-6, Radius: radius},
		bm,
		ex,
	}
	for _, s := range shapes {
		scale := 0.0
		for _, r := range []float64{0.2, 0.45, 0.7, 0.9} {
			for _, phi := range []float64{0, 0.4, 2.1} {
				a := math.Abs(s.Laplacian(r*radius, phi))
				if a > scale {
					scale = a
				}
			}
		}
		for _, r := range []float64{0.2, 0.45, 0.7, 0.9} {
			for _, phi := range []float64{0, 0.4, 2.1} {
				an := s.Laplacian(r*radius, phi)
				num := laplacian(s, r*radius, phi)
				if math.Abs(an-num) > 1e-4*scale {
					tst.Errorf("%v: Laplacian(%v, %v) = %v, numeric %v", s, r, phi, an, num)
				}
			}
		}
		if d := s.Deflection(radius*1.5, 0); d != 0 {
			tst.Error(s, ": expected zero outside, got", d)
		}
		if l := s.Laplacian(radius*1.5, 0); l != 0 {
			tst.Error(s, ": expected zero Laplacian outside, got", l)
		}
	}
}

func TestBesselModePeak(tst *testing.T) {
	b, _ := NewBasis(30, radius)
	s, _ := NewBesselMode(b, 0, 5e-6)
	if d := s.Deflection(0, 0); math.Abs(d-5e-6) > 1e-15 {
		tst.Error("Expected peak at the center, got", d)
	}
	s, _ = NewBesselMode(b, 27, 5e-6)
	prof := Profile(s, radius, 4001)
	m := 0.0
	for i := 0; i < 4001; i++ {
		m = math.Max(m, math.Abs(prof.At(i, 1)))
	}
	if math.Abs(m-5e-6) > 1e-3*5e-6 {
		tst.Error("Expected max deflection 5e-6, got", m)
	}
	if _, err := NewBesselMode(b, 30, 1); !errors.Is(err, ErrBasisIndex) {
		tst.Error("Expected ErrBasisIndex, got", err)
	}
	if _, err := NewExpansion(b, make([]float64, 31)); !errors.Is(err, ErrBasisIndex) {
		tst.Error("Expected ErrBasisIndex, got", err)
	}
}
