// Package stability assembles the Omega stiffness matrix of an actuated
// membrane mirror and classifies the operating point by its smallest
// eigenvalue.
package stability

import (
	"errors"
	"fmt"

	"github.com/op/go-logging"

	"bitbucket.org/dmlab/mirrorstab/coupling"
	"bitbucket.org/dmlab/mirrorstab/eigen"
	"bitbucket.org/dmlab/mirrorstab/electrode"
	"bitbucket.org/dmlab/mirrorstab/membrane"
	"bitbucket.org/dmlab/mirrorstab/quadrature"
)

var log = logging.MustGetLogger("stability")

var (
	// ErrDimension is returned when matrix and zero list sizes differ.
	ErrDimension = errors.New("stability: dimension mismatch")
	// ErrInvalidDevice is returned for a non-physical device description.
	ErrInvalidDevice = errors.New("stability: invalid device")
)

// Device is the complete description of a simulated mirror in device file
// units: volts, micrometers, and the membrane's own units.
type Device struct {
	Membrane membrane.Parameters
	Geometry electrode.Geometry

	// VoltageT is the transparent top electrode voltage.
	VoltageT float64
	// VoltageA is the uniform array voltage of the continuous model.
	VoltageA float64
	// DistTUm and DistAUm are the gaps to the top electrode and to the
	// array.
	DistTUm float64
	DistAUm float64

	// Modes is the number of eigenfunctions.
	Modes int

	ImagThreshold float64
	Eps           float64
	MaxSteps      int
	MaxIter       int
}

// DefaultDevice returns the reference device.
func DefaultDevice() Device {
	return Device{
		Membrane:      membrane.DefaultParameters(),
		Geometry:      electrode.DefaultGeometry(),
		VoltageT:      10,
		VoltageA:      10,
		DistTUm:       30,
		DistAUm:       30,
		Modes:         27,
		ImagThreshold: coupling.DefaultImagThreshold,
		Eps:           1e-3,
		MaxSteps:      20,
		MaxIter:       eigen.DefaultMaxIter,
	}
}

// Gap returns the electrostatic configuration in SI units.
func (d Device) Gap() electrode.Gap {
	return electrode.Gap{
		VoltageT: d.VoltageT,
		VoltageA: d.VoltageA,
		DistT:    d.DistTUm * 1e-6,
		DistA:    d.DistAUm * 1e-6,
	}
}

// Integrator returns the radial integrator.
func (d Device) Integrator() quadrature.Trapezoid {
	t := quadrature.NewTrapezoid()
	t.Eps = d.Eps
	t.MaxSteps = d.MaxSteps
	return t
}

// Validate checks the device description.
func (d Device) Validate() error {
	if err := d.Membrane.Validate(); err != nil {
		return err
	}
	if err := d.Gap().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	}
	if d.Eps <= 0 || d.MaxSteps < 1 || d.MaxIter < 1 {
		return fmt.Errorf("%w: eps=%v, maxsteps=%v, maxiter=%v",
			ErrInvalidDevice, d.Eps, d.MaxSteps, d.MaxIter)
	}
	return nil
}

func (d Device) String() string {
	return fmt.Sprintf("%v; Vt=%v V, Va=%v V, dT=%v um, dA=%v um, %d modes",
		d.Membrane, d.VoltageT, d.VoltageA, d.DistTUm, d.DistAUm, d.Modes)
}
