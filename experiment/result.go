package experiment

import (
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/tabular"
)

// Result is the table of a sweep. Every row holds the swept value followed
// by the Omega eigenvalues in ascending order.
type Result struct {
	Name string      `json:"name"`
	Kind Kind        `json:"kind"`
	Rows [][]float64 `json:"rows"`
}

// NewResult creates an empty result for the sweep.
func NewResult(sw Sweep) *Result {
	return &Result{Name: sw.Key(), Kind: sw.Kind}
}

// Append adds a row.
func (r *Result) Append(row []float64) error {
	if len(r.Rows) >= MaxRows {
		return fmt.Errorf("%w: cannot append row %d", ErrTooManyRows, len(r.Rows)+1)
	}
	if len(r.Rows) > 0 && len(row) != len(r.Rows[0]) {
		return fmt.Errorf("experiment: row of length %d, expected %d", len(row), len(r.Rows[0]))
	}
	r.Rows = append(r.Rows, row)
	return nil
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// Column returns a copy of column c.
func (r *Result) Column(c int) []float64 {
	col := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		col[i] = row[c]
	}
	return col
}

// Values returns the swept values.
func (r *Result) Values() []float64 {
	return r.Column(0)
}

// Minimums returns the minimum eigenvalue of every row.
func (r *Result) Minimums() []float64 {
	return r.Column(1)
}

// Lowest returns the row with the smallest minimum eigenvalue.
func (r *Result) Lowest() (x, min float64) {
	m := r.Minimums()
	if len(m) == 0 {
		return 0, 0
	}
	i := floats.MinIdx(m)
	return r.Rows[i][0], m[i]
}

// Threshold returns the swept value of the first stability change, by
// linear interpolation of the minimum eigenvalue between neighbouring rows.
func (r *Result) Threshold() (float64, bool) {
	m := r.Minimums()
	for i := 1; i < len(m); i++ {
		if (m[i-1] > 0) == (m[i] > 0) {
			continue
		}
		x0, x1 := r.Rows[i-1][0], r.Rows[i][0]
		return x0 + (x1-x0)*m[i-1]/(m[i-1]-m[i]), true
	}
	return 0, false
}

// Matrix returns the result as a dense matrix.
func (r *Result) Matrix() *mat.Dense {
	if len(r.Rows) == 0 {
		return nil
	}
	m := mat.NewDense(len(r.Rows), len(r.Rows[0]), nil)
	for i, row := range r.Rows {
		m.SetRow(i, row)
	}
	return m
}

// Write exports the result as a tab-delimited table.
func (r *Result) Write(w io.Writer) error {
	m := r.Matrix()
	if m == nil {
		_, err := fmt.Fprintf(w, "%s\t(empty)\n", r.Name)
		return err
	}
	_, c := m.Dims()
	cols := make([]string, c)
	cols[0] = r.Kind.Label()
	for j := 1; j < c; j++ {
		cols[j] = "lambda" + strconv.Itoa(j)
	}
	rows := make([]string, len(r.Rows))
	for i := range rows {
		rows[i] = strconv.Itoa(i + 1)
	}
	return tabular.Write(w, r.Name, m, rows, cols)
}
