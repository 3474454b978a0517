package membrane

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/bessel"
)

// Shape is a static membrane deflection xi(r, phi) in meters together with
// its Laplacian. Both are zero outside of the membrane.
type Shape interface {
	Deflection(r, phi float64) float64
	Laplacian(r, phi float64) float64
	String() string
}

// Parabolic is the rotationally symmetric paraboloid
// xi = Peak (1 - r^2/R^2).
type Parabolic struct {
	Peak   float64
	Radius float64
}

// Flat returns the undeflected membrane.
func Flat(radius float64) Parabolic {
	return Parabolic{Radius: radius}
}

// Deflection implements Shape.
func (p Parabolic) Deflection(r, phi float64) float64 {
	if r > p.Radius {
		return 0
	}
	return p.Peak * (1 - r*r/(p.Radius*p.Radius))
}

// Laplacian implements Shape.
func (p Parabolic) Laplacian(r, phi float64) float64 {
	if r > p.Radius {
		return 0
	}
	return -4 * p.Peak / (p.Radius * p.Radius)
}

func (p Parabolic) String() string {
	return fmt.Sprintf("parabolic(peak=%g m)", p.Peak)
}

// maxAbsSamples is the number of intervals used to locate max|J_v|.
const maxAbsSamples = 2000

// BesselMode is a single eigenfunction scaled so that the largest
// deflection magnitude on the membrane equals |Peak|.
type BesselMode struct {
	basis *Basis
	j     int
	peak  float64
	scale float64
}

// NewBesselMode creates the shape of eigenfunction j with the given peak
// deflection in meters.
func NewBesselMode(b *Basis, j int, peak float64) (*BesselMode, error) {
	if j < 0 || j >= b.Len() {
		return nil, fmt.Errorf("%w: j=%d, basis size %d", ErrBasisIndex, j, b.Len())
	}
	m := bessel.MaxAbs(b.Order(j), b.Zero(j), maxAbsSamples)
	return &BesselMode{
		basis: b,
		j:     j,
		peak:  peak,
		scale: peak / m,
	}, nil
}

// Index returns the eigenfunction index.
func (s *BesselMode) Index() int {
	return s.j
}

// Peak returns the peak deflection.
func (s *BesselMode) Peak() float64 {
	return s.peak
}

// Deflection implements Shape.
func (s *BesselMode) Deflection(r, phi float64) float64 {
	R := s.basis.Radius()
	if r > R {
		return 0
	}
	v := s.basis.Order(s.j)
	return s.scale * bessel.Jn(v, s.basis.Zero(s.j)*r/R) * math.Cos(float64(v)*phi)
}

// Laplacian implements Shape.
func (s *BesselMode) Laplacian(r, phi float64) float64 {
	return -s.basis.Kappa2(s.j) * s.Deflection(r, phi)
}

func (s *BesselMode) String() string {
	e, _ := bessel.Lookup(s.j)
	return fmt.Sprintf("bessel(j=%d, v=%d, n=%d, peak=%g m)", s.j, e.V, e.N, s.peak)
}

// Expansion is a linear combination of the basis eigenfunctions,
// xi = sum_j c_j f_j.
type Expansion struct {
	basis  *Basis
	coeffs []float64
}

// NewExpansion creates an expansion shape. There can be fewer coefficients
// than basis functions, the rest are zero.
func NewExpansion(b *Basis, coeffs []float64) (*Expansion, error) {
	if len(coeffs) > b.Len() {
		return nil, fmt.Errorf("%w: %d coefficients, basis size %d",
			ErrBasisIndex, len(coeffs), b.Len())
	}
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Expansion{basis: b, coeffs: c}, nil
}

// Coefficients returns a copy of the expansion coefficients.
func (s *Expansion) Coefficients() []float64 {
	c := make([]float64, len(s.coeffs))
	copy(c, s.coeffs)
	return c
}

// Deflection implements Shape.
func (s *Expansion) Deflection(r, phi float64) float64 {
	xi := 0.0
	for j, c := range s.coeffs {
		if c != 0 {
			xi += c * s.basis.Value(j, r, phi)
		}
	}
	return xi
}

// Laplacian implements Shape.
func (s *Expansion) Laplacian(r, phi float64) float64 {
	l := 0.0
	for j, c := range s.coeffs {
		if c != 0 {
			l -= c * s.basis.Kappa2(j) * s.basis.Value(j, r, phi)
		}
	}
	return l
}

func (s *Expansion) String() string {
	return fmt.Sprintf("expansion(%v)", s.coeffs)
}

// Profile samples the deflection along the phi = 0 radius. The result has
// one row per point with columns r and xi.
func Profile(s Shape, radius float64, points int) *mat.Dense {
	if points < 2 {
		points = 2
	}
	m := mat.NewDense(points, 2, nil)
	for i := 0; i < points; i++ {
		r := radius * float64(i) / float64(points-1)
		m.Set(i, 0, r)
		m.Set(i, 1, s.Deflection(r, 0))
	}
	return m
}
