package stability

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/membrane"
)

// Validation holds the self-tests of a session.
type Validation struct {
	// Gram is the eigenfunction inner product matrix.
	Gram *mat.Dense
	// GramError is max |Gram - I|.
	GramError float64
	// EigenProduct is V^T V for the current operating point.
	EigenProduct *mat.Dense
	// EigenError is max |V^T V - I|.
	EigenError float64
	// CouplingError is the largest difference between the continuous and
	// discrete coupling matrices of a flat, uniformly driven membrane,
	// relative to the largest diagonal element.
	CouplingError float64
}

// multiply returns a b.
func multiply(a, b mat.Matrix) (*mat.Dense, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil, fmt.Errorf("%w: cannot multiply %dx%d by %dx%d", ErrDimension, ar, ac, br, bc)
	}
	var m mat.Dense
	m.Mul(a, b)
	return &m, nil
}

// identityDeviation returns max |m - I|.
func identityDeviation(m mat.Matrix) float64 {
	r, c := m.Dims()
	res := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if i == j {
				v -= 1
			}
			res = math.Max(res, math.Abs(v))
		}
	}
	return res
}

// Validate checks the orthonormality of the basis (Gram matrix sampled with
// nr radial and nphi angular points), the orthonormality of the
// eigenvectors at the current operating point and the agreement of the two
// coupling models for a flat membrane at VoltageA.
func (s *Session) Validate(nr, nphi int) (*Validation, error) {
	v := &Validation{}

	v.Gram = s.basis.Gram(nr, nphi)
	v.GramError = identityDeviation(v.Gram)
	s.Sink.Matrix("Eigenfunction Product Matrix", v.Gram)

	ev, err := s.Evaluate(Fast)
	if err != nil {
		return nil, err
	}
	v.EigenProduct, err = multiply(ev.Eigen.Vectors.T(), ev.Eigen.Vectors)
	if err != nil {
		return nil, err
	}
	v.EigenError = identityDeviation(v.EigenProduct)
	s.Sink.Matrix("Eigenvector Product Matrix", v.EigenProduct)

	flat := s.Clone()
	flat.SetShape(membrane.Flat(s.basis.Radius()))
	flat.SetUniformVoltage(s.device.VoltageA)
	ac, err := flat.Continuous()
	if err != nil {
		return nil, err
	}
	ad, _, err := flat.Discrete()
	if err != nil {
		return nil, err
	}
	var diff mat.Dense
	diff.Sub(ac, ad)
	s.Sink.Matrix("MatrixA Difference (Integral - Discrete)", &diff)
	scale := 0.0
	n, _ := ac.Dims()
	for i := 0; i < n; i++ {
		scale = math.Max(scale, math.Abs(ac.At(i, i)))
	}
	if scale > 0 {
		v.CouplingError = maxAbs(&diff) / scale
	}

	log.Infof("Validation: Gram error %g, eigenvector error %g, coupling error %g",
		v.GramError, v.EigenError, v.CouplingError)
	return v, nil
}

func maxAbs(m mat.Matrix) float64 {
	r, c := m.Dims()
	res := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			res = math.Max(res, math.Abs(m.At(i, j)))
		}
	}
	return res
}
