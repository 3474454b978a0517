// Package bessel provides zeros and values of the Bessel functions of
// the first kind used by the circular membrane eigenmodes.
package bessel

import (
	"errors"
	"fmt"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("bessel")

const (
	// MaxOrder is the highest tabulated Bessel order v.
	MaxOrder = 5
	// ZerosPerOrder is the number of tabulated zeros for each order.
	ZerosPerOrder = 9
)

// ErrOutOfTable is returned for an index or (v, n) pair outside the table.
var ErrOutOfTable = errors.New("bessel: index outside of zero table")

// Entry is a single row of the zero table: the n-th positive zero X of
// the Bessel function J_v.
type Entry struct {
	V int
	N int
	X float64
}

// zeros is ordered by v, then by n, so that j = 9v + n - 1.
var zeros = [...]Entry{
	{0, 1, 2.404825557695773},
	{0, 2, 5.520078110286311},
	{0, 3, 8.653727912911013},
	{0, 4, 11.791534439014281},
	{0, 5, 14.930917708487787},
	{0, 6, 18.071063967910924},
	{0, 7, 21.211636629879258},
	{0, 8, 24.352471530749302},
	{0, 9, 27.493479132040253},
	{1, 1, 3.831705970207512},
	{1, 2, 7.015586669815619},
	{1, 3, 10.173468135062722},
	{1, 4, 13.323691936314223},
	{1, 5, 16.470630050877634},
	{1, 6, 19.615858510468243},
	{1, 7, 22.760084380592772},
	{1, 8, 25.903672087618382},
	{1, 9, 29.046828534916855},
	{2, 1, 5.135622301840683},
	{2, 2, 8.417244140399864},
	{2, 3, 11.619841172149059},
	{2, 4, 14.795951782351262},
	{2, 5, 17.959819494987826},
	{2, 6, 21.116997053021844},
	{2, 7, 24.270112313573101},
	{2, 8, 27.420573549984557},
	{2, 9, 30.569204495516399},
	{3, 1, 6.380161895923983},
	{3, 2, 9.761023129981670},
	{3, 3, 13.015200721698434},
	{3, 4, 16.223466160318768},
	{3, 5, 19.409415226435012},
	{3, 6, 22.582729593104443},
	{3, 7, 25.748166699294977},
	{3, 8, 28.908350780921758},
	{3, 9, 32.064852407097710},
	{4, 1, 7.588342434503804},
	{4, 2, 11.064709488501185},
	{4, 3, 14.372536671617590},
	{4, 4, 17.615966049804832},
	{4, 5, 20.826932956962388},
	{4, 6, 24.019019524771110},
	{4, 7, 27.199087765981250},
	{4, 8, 30.371007667117247},
	{4, 9, 33.537137711819220},
	{5, 1, 8.771483815959954},
	{5, 2, 12.338604197466944},
	{5, 3, 15.700174079711671},
	{5, 4, 18.980133875179920},
	{5, 5, 22.217799896561267},
	{5, 6, 25.430341154222706},
	{5, 7, 28.626618307291139},
	{5, 8, 31.811716724047763},
	{5, 9, 34.988781294559296},
}

// Len returns the number of table entries.
func Len() int {
	return len(zeros)
}

// Lookup returns the entry with index j.
func Lookup(j int) (Entry, error) {
	if j < 0 || j >= len(zeros) {
		log.Debugf("Zero table lookup out of range: j=%d", j)
		return Entry{}, fmt.Errorf("%w: j=%d", ErrOutOfTable, j)
	}
	return zeros[j], nil
}

// Zero returns x_j.
func Zero(j int) (float64, error) {
	e, err := Lookup(j)
	if err != nil {
		return 0, err
	}
	return e.X, nil
}

// Index returns the table index of the n-th zero of J_v.
func Index(v, n int) (int, error) {
	if v < 0 || v > MaxOrder || n < 1 || n > ZerosPerOrder {
		log.Debugf("Zero table index out of range: v=%d, n=%d", v, n)
		return -1, fmt.Errorf("%w: v=%d, n=%d", ErrOutOfTable, v, n)
	}
	return ZerosPerOrder*v + n - 1, nil
}

// Zeros returns x_0 ... x_{n-1}.
func Zeros(n int) ([]float64, error) {
	if n < 0 || n > len(zeros) {
		log.Debugf("Zero table holds %d zeros, %d requested", len(zeros), n)
		return nil, fmt.Errorf("%w: n=%d", ErrOutOfTable, n)
	}
	res := make([]float64, n)
	for j := range res {
		res[j] = zeros[j].X
	}
	return res, nil
}
