// Package eigen diagonalizes real symmetric matrices by Householder
// tridiagonalization followed by the implicit-shift QL algorithm.
//
// A Solver works in place: the matrix passed to NewSolver is consumed and
// ends up holding the eigenvectors. Use Decompose to keep the input
// intact.
package eigen

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"
)

var log = logging.MustGetLogger("eigen")

// DefaultMaxIter is the number of QL iterations allowed per eigenvalue.
const DefaultMaxIter = 30

var (
	// ErrNotSquare is returned for a non-square or empty matrix.
	ErrNotSquare = errors.New("eigen: matrix is not square")
	// ErrNotSymmetric is returned for an asymmetric matrix.
	ErrNotSymmetric = errors.New("eigen: matrix is not symmetric")
	// ErrState is returned when a step is called out of order.
	ErrState = errors.New("eigen: operation not allowed in current state")
	// ErrNoConvergence is wrapped by ConvergenceError.
	ErrNoConvergence = errors.New("eigen: too many iterations")
)

// ConvergenceError reports the eigenvalue for which QL iteration failed.
type ConvergenceError struct {
	Index int
	Iter  int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("eigen: no convergence for eigenvalue %d after %d iterations", e.Index, e.Iter)
}

// Unwrap makes errors.Is(err, ErrNoConvergence) true.
func (e *ConvergenceError) Unwrap() error {
	return ErrNoConvergence
}

// State is the solver progress.
type State int

const (
	// Constructed solver holds the input matrix.
	Constructed State = iota
	// Tridiagonalized solver holds the orthogonal reduction matrix and
	// the tridiagonal form.
	Tridiagonalized
	// Diagonalized solver holds unsorted eigenvalues and eigenvectors.
	Diagonalized
	// Done solver holds sorted results.
	Done
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Tridiagonalized:
		return "tridiagonalized"
	case Diagonalized:
		return "diagonalized"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// symTol is the relative asymmetry accepted by NewSolver.
const symTol = 1e-9

// Solver is the in-place symmetric eigen solver.
type Solver struct {
	// MaxIter is the iteration cap per eigenvalue.
	MaxIter int

	n     int
	z     *mat.Dense
	a     [][]float64
	d     []float64
	e     []float64
	state State
}

// NewSolver takes ownership of a. After diagonalization a holds the
// eigenvectors in its columns; its original content is lost.
func NewSolver(a *mat.Dense) (*Solver, error) {
	if a == nil || a.IsEmpty() {
		return nil, ErrNotSquare
	}
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}
	raw := a.RawMatrix()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = raw.Data[i*raw.Stride : i*raw.Stride+c]
	}
	scale := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			scale = math.Max(scale, math.Abs(rows[i][j]))
		}
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			if math.Abs(rows[i][j]-rows[j][i]) > symTol*scale {
				return nil, fmt.Errorf("%w: [%d][%d]=%g, [%d][%d]=%g",
					ErrNotSymmetric, i, j, rows[i][j], j, i, rows[j][i])
			}
		}
	}
	return &Solver{
		MaxIter: DefaultMaxIter,
		n:       r,
		z:       a,
		a:       rows,
		d:       make([]float64, r),
		e:       make([]float64, r),
		state:   Constructed,
	}, nil
}

// State returns the current solver state.
func (s *Solver) State() State {
	return s.state
}

// Diagonal returns the current diagonal: the tridiagonal diagonal after
// Tridiagonalize and the eigenvalues afterwards.
func (s *Solver) Diagonal() []float64 {
	res := make([]float64, s.n)
	copy(res, s.d)
	return res
}

// OffDiagonal returns the current off-diagonal. After Tridiagonalize
// element i couples rows i-1 and i; element 0 is zero.
func (s *Solver) OffDiagonal() []float64 {
	res := make([]float64, s.n)
	copy(res, s.e)
	return res
}

// Tridiagonalize reduces the matrix to tridiagonal form by Householder
// reflections, accumulating the orthogonal transformation in place.
func (s *Solver) Tridiagonalize() error {
	if s.state != Constructed {
		return fmt.Errorf("%w: tridiagonalize in state %v", ErrState, s.state)
	}
	a, d, e, n := s.a, s.d, s.e, s.n
	for i := n - 1; i > 0; i-- {
		l := i - 1
		h, scale := 0.0, 0.0
		if l > 0 {
			for k := 0; k <= l; k++ {
				scale += math.Abs(a[i][k])
			}
			if scale == 0 {
				e[i] = a[i][l]
			} else {
				for k := 0; k <= l; k++ {
					a[i][k] /= scale
					h += a[i][k] * a[i][k]
				}
				f := a[i][l]
				g := math.Sqrt(h)
				if f >= 0 {
					g = -g
				}
				e[i] = scale * g
				h -= f * g
				a[i][l] = f - g
				f = 0
				for j := 0; j <= l; j++ {
					a[j][i] = a[i][j] / h
					g = 0
					for k := 0; k <= j; k++ {
						g += a[j][k] * a[i][k]
					}
					for k := j + 1; k <= l; k++ {
						g += a[k][j] * a[i][k]
					}
					e[j] = g / h
					f += e[j] * a[i][j]
				}
				hh := f / (h + h)
				for j := 0; j <= l; j++ {
					f = a[i][j]
					g = e[j] - hh*f
					e[j] = g
					for k := 0; k <= j; k++ {
						a[j][k] -= f*e[k] + g*a[i][k]
					}
				}
			}
		} else {
			e[i] = a[i][l]
		}
		d[i] = h
	}
	d[0] = 0
	e[0] = 0
	for i := 0; i < n; i++ {
		l := i - 1
		if d[i] != 0 {
			for j := 0; j <= l; j++ {
				g := 0.0
				for k := 0; k <= l; k++ {
					g += a[i][k] * a[k][j]
				}
				for k := 0; k <= l; k++ {
					a[k][j] -= g * a[k][i]
				}
			}
		}
		d[i] = a[i][i]
		a[i][i] = 1
		for j := 0; j <= l; j++ {
			a[j][i] = 0
			a[i][j] = 0
		}
	}
	s.state = Tridiagonalized
	return nil
}

// Diagonalize runs implicit-shift QL iteration on the tridiagonal form,
// rotating the accumulated transformation into the eigenvectors.
func (s *Solver) Diagonalize() error {
	if s.state != Tridiagonalized {
		return fmt.Errorf("%w: diagonalize in state %v", ErrState, s.state)
	}
	z, d, e, n := s.a, s.d, s.e, s.n
	for i := 1; i < n; i++ {
		e[i-1] = e[i]
	}
	e[n-1] = 0
	for l := 0; l < n; l++ {
		iter := 0
		for {
			m := l
			for ; m < n-1; m++ {
				dd := math.Abs(d[m]) + math.Abs(d[m+1])
				if math.Abs(e[m])+dd == dd {
					break
				}
			}
			if m == l {
				break
			}
			if iter == s.MaxIter {
				return &ConvergenceError{Index: l, Iter: iter}
			}
			iter++
			g := (d[l+1] - d[l]) / (2 * e[l])
			r := math.Hypot(g, 1)
			g = d[m] - d[l] + e[l]/(g+math.Copysign(r, g))
			sn, c, p := 1.0, 1.0, 0.0
			i := m - 1
			for ; i >= l; i-- {
				f := sn * e[i]
				b := c * e[i]
				r = math.Hypot(f, g)
				e[i+1] = r
				if r == 0 {
					d[i+1] -= p
					e[m] = 0
					break
				}
				sn = f / r
				c = g / r
				g = d[i+1] - p
				r = (d[i]-g)*sn + 2*c*b
				p = sn * r
				d[i+1] = g + p
				g = c*r - b
				for k := 0; k < n; k++ {
					f = z[k][i+1]
					z[k][i+1] = sn*z[k][i] + c*f
					z[k][i] = c*z[k][i] - sn*f
				}
			}
			if r == 0 && i >= l {
				continue
			}
			d[l] -= p
			e[l] = g
			e[m] = 0
		}
	}
	s.state = Diagonalized
	return nil
}

// Sort orders the eigenvalues ascending, permuting the eigenvector columns
// accordingly, and returns the result. The result shares storage with the
// matrix given to NewSolver.
func (s *Solver) Sort() (*Result, error) {
	if s.state != Diagonalized {
		return nil, fmt.Errorf("%w: sort in state %v", ErrState, s.state)
	}
	perm := make([]int, s.n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return s.d[perm[i]] < s.d[perm[j]]
	})
	vals := make([]float64, s.n)
	vecs := mat.NewDense(s.n, s.n, nil)
	for c, p := range perm {
		vals[c] = s.d[p]
		for k := 0; k < s.n; k++ {
			vecs.Set(k, c, s.a[k][p])
		}
	}
	copy(s.d, vals)
	s.z.Copy(vecs)
	s.state = Done
	log.Debugf("Eigenvalues in [%g, %g]", vals[0], vals[s.n-1])
	return &Result{Values: vals, Vectors: s.z}, nil
}

// Solve runs all the steps.
func (s *Solver) Solve() (*Result, error) {
	if err := s.Tridiagonalize(); err != nil {
		return nil, err
	}
	if err := s.Diagonalize(); err != nil {
		return nil, err
	}
	return s.Sort()
}

// Decompose diagonalizes a copy of m.
func Decompose(m mat.Matrix) (*Result, error) {
	var a mat.Dense
	a.CloneFrom(m)
	s, err := NewSolver(&a)
	if err != nil {
		return nil, err
	}
	return s.Solve()
}

// Result holds the eigenvalues in ascending order and the corresponding
// unit eigenvectors in columns.
type Result struct {
	Values  []float64
	Vectors *mat.Dense
}

// Min returns the smallest eigenvalue.
func (r *Result) Min() float64 {
	return r.Values[0]
}

// Stable reports whether all the eigenvalues are positive.
func (r *Result) Stable() bool {
	return r.Min() > 0
}

// Reconstruct returns V diag(values) V^T.
func (r *Result) Reconstruct() *mat.Dense {
	n := len(r.Values)
	var vd, res mat.Dense
	vd.Mul(r.Vectors, mat.NewDiagDense(n, r.Values))
	res.Mul(&vd, r.Vectors.T())
	return &res
}

// Orthonormality returns V^T V, which is the identity for orthonormal
// eigenvectors.
func (r *Result) Orthonormality() *mat.Dense {
	var res mat.Dense
	res.Mul(r.Vectors.T(), r.Vectors)
	return &res
}
