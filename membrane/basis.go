package membrane

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/bessel"
)

// Basis is the set of the first N normalized eigenfunctions of a clamped
// disk of radius R,
//
//	f_j(r, phi) = N_j J_v(x_j r/R) cos(v phi),
//
// where x_j is the j-th tabulated Bessel zero and v its order. The
// normalization makes the functions orthonormal over the disk.
type Basis struct {
	radius  float64
	entries []bessel.Entry
	norm    []float64
}

// NewBasis creates a basis of n eigenfunctions for a membrane of the given
// radius in meters.
func NewBasis(n int, radius float64) (*Basis, error) {
	if n < 1 || n > bessel.Len() {
		return nil, fmt.Errorf("%w: basis size %d, must be in 1..%d",
			ErrBasisIndex, n, bessel.Len())
	}
	if radius <= 0 {
		return nil, fmt.Errorf("%w: radius=%v", ErrInvalidParameters, radius)
	}
	b := &Basis{
		radius:  radius,
		entries: make([]bessel.Entry, n),
		norm:    make([]float64, n),
	}
	for j := range b.entries {
		e, err := bessel.Lookup(j)
		if err != nil {
			return nil, err
		}
		b.entries[j] = e
		eps := 1.0
		if e.V == 0 {
			eps = 2
		}
		jv1 := bessel.Jn(e.V+1, e.X)
		b.norm[j] = 1 / math.Sqrt(eps*math.Pi*radius*radius/2*jv1*jv1)
	}
	log.Debugf("Basis of %d eigenfunctions, R=%v m", n, radius)
	return b, nil
}

// Len returns the number of active eigenfunctions.
func (b *Basis) Len() int {
	return len(b.entries)
}

// Radius returns the membrane radius in meters.
func (b *Basis) Radius() float64 {
	return b.radius
}

// Order returns the Bessel order v of eigenfunction j.
func (b *Basis) Order(j int) int {
	return b.entries[j].V
}

// Zero returns the Bessel zero x_j.
func (b *Basis) Zero(j int) float64 {
	return b.entries[j].X
}

// Zeros returns all the active Bessel zeros.
func (b *Basis) Zeros() []float64 {
	res, err := bessel.Zeros(len(b.entries))
	if err != nil {
		log.Panic(err)
	}
	return res
}

// Norm returns the normalization constant N_j.
func (b *Basis) Norm(j int) float64 {
	return b.norm[j]
}

// Kappa2 returns (x_j/R)^2, so that the Laplacian of f_j is -Kappa2(j) f_j.
func (b *Basis) Kappa2(j int) float64 {
	k := b.entries[j].X / b.radius
	return k * k
}

// Radial returns the radial part N_j J_v(x_j r/R), zero outside of the
// membrane.
func (b *Basis) Radial(j int, r float64) float64 {
	if r > b.radius {
		return 0
	}
	e := b.entries[j]
	return b.norm[j] * bessel.Jn(e.V, e.X*r/b.radius)
}

// Value returns f_j(r, phi).
func (b *Basis) Value(j int, r, phi float64) float64 {
	v := b.entries[j].V
	return b.Radial(j, r) * math.Cos(float64(v)*phi)
}

// Evaluate returns the magnitude and phase of f_j(r, phi). The phase is 0
// for non-negative values and pi otherwise.
func (b *Basis) Evaluate(j int, r, phi float64) (magn, phase float64) {
	val := b.Value(j, r, phi)
	if val < 0 {
		return -val, math.Pi
	}
	return val, 0
}

// AzimuthalOverlap returns the integral of cos(v_i phi) cos(v_j phi) over
// the full circle: 2pi for v = 0, pi for equal non-zero orders and zero
// otherwise.
func (b *Basis) AzimuthalOverlap(i, j int) float64 {
	vi, vj := b.entries[i].V, b.entries[j].V
	switch {
	case vi != vj:
		return 0
	case vi == 0:
		return 2 * math.Pi
	}
	return math.Pi
}

// Gram returns the matrix of inner products of the eigenfunctions over the
// disk. The radial integral uses nr-point Gauss-Legendre quadrature and
// the angular one nphi uniform samples.
func (b *Basis) Gram(nr, nphi int) *mat.Dense {
	n := b.Len()
	g := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			ang := 0.0
			vi, vj := float64(b.entries[i].V), float64(b.entries[j].V)
			dphi := 2 * math.Pi / float64(nphi)
			for k := 0; k < nphi; k++ {
				phi := dphi * float64(k)
				ang += math.Cos(vi*phi) * math.Cos(vj*phi)
			}
			ang *= dphi
			if math.Abs(ang) < 1e-12 {
				continue
			}
			rad := quad.Fixed(func(r float64) float64 {
				return b.Radial(i, r) * b.Radial(j, r) * r
			}, 0, b.radius, nr, quad.Legendre{}, 0)
			g.Set(i, j, rad*ang)
			g.Set(j, i, rad*ang)
		}
	}
	return g
}
