package stability

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// BuildOmega returns the stiffness matrix
//
//	Omega_ij = T (x_j/R)^2 delta_ij - A_ij
//
// for tension T in N/m, radius R in meters and the Bessel zeros of the
// active eigenfunctions. The inputs are not modified.
func BuildOmega(a mat.Matrix, tension, radius float64, zeros []float64) (*mat.Dense, error) {
	r, c := a.Dims()
	if r != c || r != len(zeros) {
		return nil, fmt.Errorf("%w: matrix %dx%d, %d zeros", ErrDimension, r, c, len(zeros))
	}
	if radius <= 0 {
		return nil, fmt.Errorf("%w: radius=%v", ErrInvalidDevice, radius)
	}
	omega := mat.NewDense(r, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			v := -a.At(i, j)
			if i == j {
				k := zeros[j] / radius
				v += tension * k * k
			}
			omega.Set(i, j, v)
		}
	}
	return omega, nil
}
