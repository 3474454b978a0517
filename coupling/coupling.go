// Package coupling computes the electrostatic coupling matrix A between
// membrane eigenmodes. A_ij is the second variation of the electrostatic
// energy projected on f_i and f_j; it softens the membrane.
package coupling

import (
	"errors"
	"fmt"
	"math"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/electrode"
	"bitbucket.org/dmlab/mirrorstab/membrane"
	"bitbucket.org/dmlab/mirrorstab/quadrature"
)

var log = logging.MustGetLogger("coupling")

// DefaultImagThreshold is the imaginary residual above which the discrete
// model warns.
const DefaultImagThreshold = 100

// ErrIncomplete is returned when a builder is missing its inputs.
var ErrIncomplete = errors.New("coupling: builder is not fully configured")

// Builder builds the N x N coupling matrix.
type Builder interface {
	Matrix() (*mat.Dense, error)
}

// Continuous treats the array as a single electrode at VoltageA. Modes of
// different angular order do not couple; for equal orders
//
//	A_ij = overlap(v) * integral_0^R W(r) R_i(r) R_j(r) r dr,
//
// with the weight evaluated at phi = 0.
type Continuous struct {
	Basis      *membrane.Basis
	Shape      membrane.Shape
	Gap        electrode.Gap
	Integrator quadrature.Trapezoid
}

// NewContinuous creates the continuous model with the default integrator.
func NewContinuous(b *membrane.Basis, s membrane.Shape, g electrode.Gap) *Continuous {
	return &Continuous{
		Basis:      b,
		Shape:      s,
		Gap:        g,
		Integrator: quadrature.NewTrapezoid(),
	}
}

// integrand returns the radial integrand for modes i and j. The first
// weight error is stored in werr and NaN is returned, which stops the
// integration.
func (c *Continuous) integrand(i, j int, werr *error) quadrature.Integrand {
	return func(r float64) float64 {
		w, err := c.Gap.Weight(c.Shape.Deflection(r, 0), c.Gap.VoltageA)
		if err != nil {
			if *werr == nil {
				*werr = err
			}
			return math.NaN()
		}
		return w * c.Basis.Radial(i, r) * c.Basis.Radial(j, r) * r
	}
}

func (c *Continuous) element(i, j int, integ quadrature.Integrator) (float64, error) {
	var werr error
	v, err := integ.Integrate(c.integrand(i, j, &werr), 0, c.Basis.Radius())
	if werr != nil {
		return 0, werr
	}
	if err != nil {
		return 0, fmt.Errorf("A[%d][%d]: %w", i, j, err)
	}
	return v * c.Basis.AzimuthalOverlap(i, j), nil
}

// Matrix implements Builder. Diagonal elements are integrated first; the
// off-diagonal ones accept an absolute error relative to sqrt(A_ii A_jj).
func (c *Continuous) Matrix() (*mat.Dense, error) {
	if c.Basis == nil || c.Shape == nil {
		return nil, ErrIncomplete
	}
	if err := c.Gap.Validate(); err != nil {
		return nil, err
	}
	n := c.Basis.Len()
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		v, err := c.element(i, i, c.Integrator)
		if err != nil {
			return nil, err
		}
		a.Set(i, i, v)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ang := c.Basis.AzimuthalOverlap(i, j)
			if ang == 0 {
				continue
			}
			floor := c.Integrator.Eps * math.Sqrt(math.Abs(a.At(i, i)*a.At(j, j))) / ang
			v, err := c.element(i, j, c.Integrator.WithFloor(floor))
			if err != nil {
				return nil, err
			}
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
	}
	log.Debugf("Continuous coupling matrix %dx%d for %v", n, n, c.Shape)
	return a, nil
}

// Residual is an imaginary part left in a discrete coupling element.
type Residual struct {
	I, J int
	Imag float64
}

// Discrete sums the coupling over the electrode pixels, each at its own
// voltage. The per-pixel contribution is the product of the mode
// magnitudes times the weight and pixel area, with phase
// phase_i - phase_j. Only the real part is kept.
type Discrete struct {
	Basis         *membrane.Basis
	Shape         membrane.Shape
	Gap           electrode.Gap
	Voltages      *electrode.Voltages
	ImagThreshold float64

	// Residuals lists the elements whose imaginary part exceeded
	// ImagThreshold during the last Matrix call.
	Residuals []Residual
}

// NewDiscrete creates the discrete model with the default threshold.
func NewDiscrete(b *membrane.Basis, s membrane.Shape, g electrode.Gap, v *electrode.Voltages) *Discrete {
	return &Discrete{
		Basis:         b,
		Shape:         s,
		Gap:           g,
		Voltages:      v,
		ImagThreshold: DefaultImagThreshold,
	}
}

// Matrix implements Builder.
func (d *Discrete) Matrix() (*mat.Dense, error) {
	if d.Basis == nil || d.Shape == nil || d.Voltages == nil {
		return nil, ErrIncomplete
	}
	arr := d.Voltages.Array()
	sites := arr.Sites()
	area := arr.PixelArea()
	n := d.Basis.Len()

	w := make([]float64, len(sites))
	for k, s := range sites {
		var err error
		w[k], err = d.Gap.Weight(d.Shape.Deflection(s.R, s.Phi), d.Voltages.At(k))
		if err != nil {
			return nil, fmt.Errorf("electrode %d: %w", k, err)
		}
		w[k] *= area
	}

	magn := make([][]float64, n)
	phase := make([][]float64, n)
	for j := 0; j < n; j++ {
		magn[j] = make([]float64, len(sites))
		phase[j] = make([]float64, len(sites))
		for k, s := range sites {
			magn[j][k], phase[j][k] = d.Basis.Evaluate(j, s.R, s.Phi)
		}
	}

	d.Residuals = d.Residuals[:0]
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			re, im := 0.0, 0.0
			for k := range sites {
				p := magn[i][k] * magn[j][k] * w[k]
				if p == 0 {
					continue
				}
				dph := phase[i][k] - phase[j][k]
				re += p * math.Cos(dph)
				im += p * math.Sin(dph)
			}
			if math.Abs(im) > d.ImagThreshold {
				log.Warningf("Large imaginary residual in A[%d][%d]: %g", i, j, im)
				d.Residuals = append(d.Residuals, Residual{I: i, J: j, Imag: im})
			}
			a.Set(i, j, re)
			a.Set(j, i, re)
		}
	}
	log.Debugf("Discrete coupling matrix %dx%d over %d electrodes", n, n, len(sites))
	return a, nil
}
