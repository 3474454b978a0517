package experiment

import (
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/membrane"
	"bitbucket.org/dmlab/mirrorstab/stability"
	"bitbucket.org/dmlab/mirrorstab/tabular"
)

// SmallAmplitude describes a stability test of the flat membrane over a grid
// of array and top electrode voltages. The array is driven uniformly, so a
// point is self-consistent only where Va^2/dA^3 = Vt^2/dT^3.
type SmallAmplitude struct {
	VaLow  float64 `json:"valow"`
	VaHigh float64 `json:"vahigh"`
	VtLow  float64 `json:"vtlow"`
	VtHigh float64 `json:"vthigh"`
	// Points is the number of grid points per axis.
	Points int `json:"points"`
}

func (sa SmallAmplitude) String() string {
	return fmt.Sprintf("small amplitude test Va %g..%g V, Vt %g..%g V, %dx%d",
		sa.VaLow, sa.VaHigh, sa.VtLow, sa.VtHigh, sa.Points, sa.Points)
}

func axis(low, high float64, n int) []float64 {
	res := make([]float64, n)
	mesh := (high - low) / float64(n-1)
	for i := range res {
		res[i] = low + float64(i)*mesh
	}
	return res
}

// Grid is the result of a small amplitude test. Vt varies down a column, Va
// across a row.
type Grid struct {
	Va, Vt []float64
	// X and Y are Va^2/dA^3 and Vt^2/dT^3 with the distances in um.
	X, Y []float64
	// Min holds the minimum eigenvalue of every (Vt, Va) pair.
	Min *mat.Dense
}

// Stable returns the number of stable grid points.
func (g *Grid) Stable() int {
	r, c := g.Min.Dims()
	n := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if g.Min.At(i, j) > 0 {
				n++
			}
		}
	}
	return n
}

// Matrix returns the grid with Y in the leading column and X in the top row.
func (g *Grid) Matrix() *mat.Dense {
	r, c := g.Min.Dims()
	m := mat.NewDense(r+1, c+1, nil)
	for j, x := range g.X {
		m.Set(0, j+1, x)
	}
	for i, y := range g.Y {
		m.Set(i+1, 0, y)
	}
	m.Slice(1, r+1, 1, c+1).(*mat.Dense).Copy(g.Min)
	return m
}

// Write exports the grid with voltage headers.
func (g *Grid) Write(w io.Writer) error {
	rows := make([]string, len(g.Vt))
	for i, v := range g.Vt {
		rows[i] = "Vt=" + strconv.FormatFloat(v, 'g', 6, 64)
	}
	cols := make([]string, len(g.Va))
	for j, v := range g.Va {
		cols[j] = "Va=" + strconv.FormatFloat(v, 'g', 6, 64)
	}
	return tabular.Write(w, "Small Amplitude Stability", g.Min, rows, cols)
}

// SmallAmplitude runs the small amplitude test.
func (d *Driver) SmallAmplitude(sa SmallAmplitude) (*Grid, error) {
	if sa.Points < 2 || sa.Points > MaxRows {
		return nil, fmt.Errorf("%w: %d grid points", ErrInvalidRange, sa.Points)
	}
	if sa.VaHigh < sa.VaLow || sa.VtHigh < sa.VtLow {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, sa)
	}
	base := d.Session.Device()
	n := sa.Points
	g := &Grid{
		Va:  axis(sa.VaLow, sa.VaHigh, n),
		Vt:  axis(sa.VtLow, sa.VtHigh, n),
		X:   make([]float64, n),
		Y:   make([]float64, n),
		Min: mat.NewDense(n, n, nil),
	}
	for j, va := range g.Va {
		g.X[j] = va * va / (base.DistAUm * base.DistAUm * base.DistAUm)
	}
	for i, vt := range g.Vt {
		g.Y[i] = vt * vt / (base.DistTUm * base.DistTUm * base.DistTUm)
	}

	sink := d.Session.Sink
	sink.Message("--- Begin %v ---", sa)
	for i, vt := range g.Vt {
		jobs := make([]job, n)
		for j, va := range g.Va {
			jobs[j] = smallAmplitudePoint(base, vt, va)
		}
		rows, err := d.run(jobs)
		if err != nil {
			return nil, err
		}
		for j, row := range rows {
			g.Min.Set(i, j, row[0])
		}
		log.Infof("Small amplitude test: row %d of %d done", i+1, n)
	}
	sink.Message("TE varies down a column; EA varies across a row")
	sink.Matrix("Result", g.Matrix())
	sink.Message("--- End %v ---", sa)
	return g, nil
}

func smallAmplitudePoint(base stability.Device, vt, va float64) job {
	return func(s *stability.Session) ([]float64, error) {
		d := base
		d.VoltageT = vt
		d.VoltageA = va
		if err := s.SetDevice(d); err != nil {
			return nil, err
		}
		s.SetShape(membrane.Flat(s.Basis().Radius()))
		s.SetUniformVoltage(va)
		s.Sink.Message("Vt = %g V, Va = %g V", vt, va)
		m, err := s.Stability()
		if err != nil {
			return nil, err
		}
		return []float64{m}, nil
	}
}
