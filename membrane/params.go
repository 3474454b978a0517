// Package membrane describes the circular tensioned membrane: its material
// parameters, the Bessel eigenfunction basis of the clamped disk and the
// deflection shapes used as operating points.
package membrane

import (
	"errors"
	"fmt"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("membrane")

// ErrInvalidParameters is returned for non-physical membrane parameters.
var ErrInvalidParameters = errors.New("membrane: invalid parameters")

// ErrBasisIndex is returned when an eigenfunction index is outside of the
// active basis.
var ErrBasisIndex = errors.New("membrane: eigenfunction index outside of basis")

// Parameters holds the membrane material and geometry in the units used
// by device files.
type Parameters struct {
	// StressMPa is the in-plane stress.
	StressMPa float64
	// ThicknessUm is the membrane thickness.
	ThicknessUm float64
	// RadiusMm is the clamped radius.
	RadiusMm float64
}

// DefaultParameters returns the parameters of the reference device.
func DefaultParameters() Parameters {
	return Parameters{
		StressMPa:   3,
		ThicknessUm: 1,
		RadiusMm:    7.5,
	}
}

// Tension returns the membrane tension in N/m.
func (p Parameters) Tension() float64 {
	return p.StressMPa * 1e6 * p.ThicknessUm * 1e-6
}

// Radius returns the membrane radius in meters.
func (p Parameters) Radius() float64 {
	return p.RadiusMm * 1e-3
}

// Validate checks that all the parameters are positive.
func (p Parameters) Validate() error {
	if p.StressMPa <= 0 || p.ThicknessUm <= 0 || p.RadiusMm <= 0 {
		return fmt.Errorf("%w: stress=%v MPa, thickness=%v um, radius=%v mm",
			ErrInvalidParameters, p.StressMPa, p.ThicknessUm, p.RadiusMm)
	}
	return nil
}

func (p Parameters) String() string {
	return fmt.Sprintf("stress=%v MPa, thickness=%v um, radius=%v mm, tension=%v N/m",
		p.StressMPa, p.ThicknessUm, p.RadiusMm, p.Tension())
}
