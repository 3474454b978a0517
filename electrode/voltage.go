package electrode

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/membrane"
)

// Epsilon0 is the vacuum permittivity in F/m, at the precision used by the
// reference device model.
const Epsilon0 = 8.85e-12

// ErrGapClosed is returned when the membrane deflection reaches an
// electrode.
var ErrGapClosed = errors.New("electrode: membrane touches electrode")

// Gap is the electrostatic configuration of the device in SI units. The
// transparent top electrode sits DistT above the membrane, the array
// DistA below it. VoltageA is the uniform array voltage used when the
// array is treated as a continuous electrode.
type Gap struct {
	VoltageT float64
	VoltageA float64
	DistT    float64
	DistA    float64
}

// Validate checks that both gaps are positive.
func (g Gap) Validate() error {
	if g.DistT <= 0 || g.DistA <= 0 {
		return fmt.Errorf("%w: dT=%v m, dA=%v m", ErrGapClosed, g.DistT, g.DistA)
	}
	return nil
}

// Weight returns the electrostatic stiffness per unit area at deflection
// xi for an array voltage va:
//
//	W = eps0 va^2/(dA - xi)^3 + eps0 Vt^2/(dT + xi)^3.
func (g Gap) Weight(xi, va float64) (float64, error) {
	da := g.DistA - xi
	dt := g.DistT + xi
	if da <= 0 || dt <= 0 {
		return 0, fmt.Errorf("%w: xi=%v m, dT=%v m, dA=%v m", ErrGapClosed, xi, g.DistT, g.DistA)
	}
	return Epsilon0*va*va/(da*da*da) + Epsilon0*g.VoltageT*g.VoltageT/(dt*dt*dt), nil
}

// Voltages holds one voltage per electrode. Each simulation session owns
// its own Voltages; the Array is shared.
type Voltages struct {
	array *Array
	v     []float64
}

// NewVoltages creates zero voltages for the array.
func NewVoltages(a *Array) *Voltages {
	return &Voltages{
		array: a,
		v:     make([]float64, a.Len()),
	}
}

// Array returns the electrode layout.
func (v *Voltages) Array() *Array {
	return v.array
}

// Clone returns an independent copy.
func (v *Voltages) Clone() *Voltages {
	c := &Voltages{
		array: v.array,
		v:     make([]float64, len(v.v)),
	}
	copy(c.v, v.v)
	return c
}

// SetUniform sets every electrode to the same voltage.
func (v *Voltages) SetUniform(volts float64) {
	for k := range v.v {
		v.v[k] = volts
	}
}

// Set sets the voltage of electrode k.
func (v *Voltages) Set(k int, volts float64) error {
	if k < 0 || k >= len(v.v) {
		return fmt.Errorf("%w: %d", ErrIndex, k)
	}
	v.v[k] = volts
	return nil
}

// At returns the voltage of electrode k.
func (v *Voltages) At(k int) float64 {
	return v.v[k]
}

// Values returns the voltages. The slice must not be modified.
func (v *Voltages) Values() []float64 {
	return v.v
}

// Report summarizes a voltage computation.
type Report struct {
	// Clipped lists the electrodes where the required voltage was
	// imaginary and zero was applied instead.
	Clipped []int
	Min     float64
	Max     float64
}

// Compute sets the voltages which hold the membrane in the given shape.
// Each electrode balances the tension and top electrode pressure at its
// center:
//
//	V = sqrt(2) (dA - xi) sqrt(Vt^2/(dT + xi)^2 - T lap(xi)/eps0).
//
// Electrodes with a negative radicand are set to zero and listed in the
// report.
func (v *Voltages) Compute(s membrane.Shape, g Gap, tension float64) (Report, error) {
	rep := Report{Min: math.Inf(1), Max: math.Inf(-1)}
	for k, site := range v.array.sites {
		xi := s.Deflection(site.R, site.Phi)
		da := g.DistA - xi
		dt := g.DistT + xi
		if da <= 0 || dt <= 0 {
			return rep, fmt.Errorf("%w: electrode %d (row=%d, col=%d), xi=%v m",
				ErrGapClosed, k, site.Row, site.Col, xi)
		}
		rad := g.VoltageT*g.VoltageT/(dt*dt) - tension*s.Laplacian(site.R, site.Phi)/Epsilon0
		if rad < 0 {
			v.v[k] = 0
			rep.Clipped = append(rep.Clipped, k)
		} else {
			v.v[k] = math.Sqrt2 * da * math.Sqrt(rad)
		}
		rep.Min = math.Min(rep.Min, v.v[k])
		rep.Max = math.Max(rep.Max, v.v[k])
	}
	if len(rep.Clipped) > 0 {
		log.Warningf("Shape %v is not reachable on %d electrodes, voltage set to 0",
			s, len(rep.Clipped))
	}
	log.Debugf("Electrode voltages in [%v, %v] V", rep.Min, rep.Max)
	return rep, nil
}

// Map returns the voltages laid out on the lattice, rows then columns from
// the most negative. Sites without an electrode are zero.
func (v *Voltages) Map() *mat.Dense {
	a := v.array
	n := 2 * a.half
	m := mat.NewDense(n, n, nil)
	for k, s := range a.sites {
		m.Set(a.lattice(s.Row), a.lattice(s.Col), v.v[k])
	}
	return m
}
