// Package experiment runs parameter sweeps over a stability session and
// collects the Omega eigenvalues of every point.
package experiment

import (
	"errors"
	"fmt"
	"math"

	"github.com/op/go-logging"

	"bitbucket.org/dmlab/mirrorstab/stability"
)

var log = logging.MustGetLogger("experiment")

// MaxRows is the largest number of points of a sweep.
const MaxRows = 200

var (
	// ErrTooManyRows is returned when a sweep has more than MaxRows points.
	ErrTooManyRows = errors.New("experiment: too many rows")
	// ErrInvalidRange is returned for an empty or non-finite sweep range.
	ErrInvalidRange = errors.New("experiment: invalid range")
	// ErrUnknownKind is returned for an unsupported sweep kind.
	ErrUnknownKind = errors.New("experiment: unknown sweep kind")
)

// Kind is the swept parameter.
type Kind string

const (
	// Peak sweeps the peak deformation of the shape, in um.
	Peak Kind = "peak"
	// TopVoltage sweeps the transparent electrode voltage, in V.
	TopVoltage Kind = "vt"
	// GapDistance sweeps both electrode distances, in um.
	GapDistance Kind = "gap"
	// Amplitude sweeps the expansion coefficient of one eigenfunction.
	Amplitude Kind = "ampl"
)

// Label returns the column header of the swept value.
func (k Kind) Label() string {
	switch k {
	case Peak:
		return "Peak(um)"
	case TopVoltage:
		return "Vt(V)"
	case GapDistance:
		return "Gap(um)"
	case Amplitude:
		return "Coeff"
	}
	return string(k)
}

// Sweep describes one parameter variation experiment.
type Sweep struct {
	Name string  `json:"name"`
	Kind Kind    `json:"kind"`
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Step float64 `json:"step"`
	// Shape is the membrane shape of every point. The peak sweep replaces
	// its peak, the amplitude sweep ignores it.
	Shape stability.ShapeSpec `json:"shape"`
	// J is the eigenfunction of the amplitude sweep.
	J int `json:"j"`
}

// Key returns the checkpoint key of the sweep.
func (sw Sweep) Key() string {
	if sw.Name != "" {
		return sw.Name
	}
	return string(sw.Kind)
}

func (sw Sweep) String() string {
	return fmt.Sprintf("%s sweep %g..%g step %g", sw.Kind, sw.Low, sw.High, sw.Step)
}

// Validate checks the sweep kind and its shape.
func (sw Sweep) Validate() error {
	switch sw.Kind {
	case Peak:
		if sw.Shape.Kind == stability.ShapeExpansion {
			return fmt.Errorf("%w: peak sweep of an expansion shape", ErrUnknownKind)
		}
	case Amplitude:
		if sw.J < 0 {
			return fmt.Errorf("%w: eigenfunction %d", ErrUnknownKind, sw.J)
		}
	case TopVoltage, GapDistance:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, sw.Kind)
	}
	_, err := Points(sw.Low, sw.High, sw.Step)
	return err
}

// Points returns low, low+step, ... up to and including high. The last
// point is kept if it exceeds high by less than 1e-9 steps.
func Points(low, high, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(step, 0) || math.IsNaN(low) || math.IsNaN(high) ||
		math.IsInf(low, 0) || math.IsInf(high, 0) || high < low {
		return nil, fmt.Errorf("%w: low=%v, high=%v, step=%v", ErrInvalidRange, low, high, step)
	}
	n := math.Floor((high-low)/step+1e-9) + 1
	if n > MaxRows {
		return nil, fmt.Errorf("%w: %v points (maximum %d)", ErrTooManyRows, n, MaxRows)
	}
	pts := make([]float64, int(n))
	for i := range pts {
		pts[i] = low + float64(i)*step
	}
	return pts, nil
}

// apply configures the session for the value x of the sweep, starting from
// the device base.
func (sw Sweep) apply(s *stability.Session, base stability.Device, x float64) error {
	d := base
	spec := sw.Shape
	switch sw.Kind {
	case Peak:
		spec.PeakUm = x
	case TopVoltage:
		d.VoltageT = x
	case GapDistance:
		d.DistTUm = x
		d.DistAUm = x
	case Amplitude:
		if sw.J < 0 {
			return fmt.Errorf("%w: eigenfunction %d", ErrUnknownKind, sw.J)
		}
		coeffs := make([]float64, sw.J+1)
		coeffs[sw.J] = x
		spec = stability.ShapeSpec{Kind: stability.ShapeExpansion, Coeffs: coeffs}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, sw.Kind)
	}
	if err := s.SetDevice(d); err != nil {
		return err
	}
	sh, err := s.NewShape(spec)
	if err != nil {
		return err
	}
	s.SetShape(sh)
	return nil
}
