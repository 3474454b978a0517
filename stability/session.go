package stability

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/coupling"
	"bitbucket.org/dmlab/mirrorstab/eigen"
	"bitbucket.org/dmlab/mirrorstab/electrode"
	"bitbucket.org/dmlab/mirrorstab/membrane"
	"bitbucket.org/dmlab/mirrorstab/tabular"
)

// Shape kinds accepted by ShapeSpec.
const (
	ShapeParabolic = "parabolic"
	ShapeBessel    = "bessel"
	ShapeExpansion = "expansion"
)

// profilePoints is the number of radial samples in the shape dump.
const profilePoints = 25

// ShapeSpec describes a membrane shape independently of a basis, as found
// in device files and experiment plans.
type ShapeSpec struct {
	Kind string `json:"kind"`
	// J is the eigenfunction index for the bessel kind.
	J int `json:"j"`
	// PeakUm is the peak deflection for the parabolic and bessel kinds.
	PeakUm float64 `json:"peak"`
	// Coeffs are the expansion coefficients of the normalized
	// eigenfunctions, in SI units.
	Coeffs []float64 `json:"coeffs,omitempty"`
}

// Mode selects the amount of work done by Evaluate.
type Mode int

const (
	// Fast builds the discrete coupling matrix only.
	Fast Mode = iota
	// Full also integrates the continuous coupling matrix and dumps the
	// eigenvectors.
	Full
)

// Session owns all the mutable state of a simulation: the device
// description, the current membrane shape, the electrode voltages. The
// electrode layout and the eigenfunction basis are immutable and may be
// shared between sessions.
type Session struct {
	// Sink receives the diagnostic dumps, tabular.Discard by default.
	Sink tabular.Sink

	device     Device
	array      *electrode.Array
	basis      *membrane.Basis
	volts      *electrode.Voltages
	shape      membrane.Shape
	voltsValid bool
}

// NewSession creates a session for the device with a flat membrane.
func NewSession(d Device) (*Session, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	array, err := electrode.NewArray(d.Geometry)
	if err != nil {
		return nil, err
	}
	basis, err := membrane.NewBasis(d.Modes, d.Membrane.Radius())
	if err != nil {
		return nil, err
	}
	log.Infof("Device: %v", d)
	return &Session{
		Sink:   tabular.Discard,
		device: d,
		array:  array,
		basis:  basis,
		volts:  electrode.NewVoltages(array),
		shape:  membrane.Flat(basis.Radius()),
	}, nil
}

// Clone returns an independent session sharing the immutable layout and
// basis. The clone writes to the same sink.
func (s *Session) Clone() *Session {
	c := *s
	c.volts = s.volts.Clone()
	return &c
}

// Device returns the device description.
func (s *Session) Device() Device {
	return s.device
}

// SetDevice changes the electrical and material parameters. The electrode
// geometry, the number of modes and the membrane radius are fixed for the
// lifetime of a session.
func (s *Session) SetDevice(d Device) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Geometry != s.device.Geometry || d.Modes != s.device.Modes ||
		d.Membrane.RadiusMm != s.device.Membrane.RadiusMm {
		return fmt.Errorf("%w: geometry, modes and radius require a new session", ErrInvalidDevice)
	}
	s.device = d
	s.voltsValid = false
	return nil
}

// Array returns the electrode layout.
func (s *Session) Array() *electrode.Array {
	return s.array
}

// Basis returns the eigenfunction basis.
func (s *Session) Basis() *membrane.Basis {
	return s.basis
}

// Voltages returns the electrode voltages owned by the session.
func (s *Session) Voltages() *electrode.Voltages {
	return s.volts
}

// Shape returns the current membrane shape.
func (s *Session) Shape() membrane.Shape {
	return s.shape
}

// SetShape changes the membrane shape. The electrode voltages have to be
// recomputed afterwards.
func (s *Session) SetShape(sh membrane.Shape) {
	s.shape = sh
	s.voltsValid = false
}

// NewShape builds a shape from its description using the session basis.
func (s *Session) NewShape(spec ShapeSpec) (membrane.Shape, error) {
	switch spec.Kind {
	case ShapeParabolic, "":
		return membrane.Parabolic{Peak: spec.PeakUm * 1e-6, Radius: s.basis.Radius()}, nil
	case ShapeBessel:
		return membrane.NewBesselMode(s.basis, spec.J, spec.PeakUm*1e-6)
	case ShapeExpansion:
		return membrane.NewExpansion(s.basis, spec.Coeffs)
	}
	return nil, fmt.Errorf("unknown shape kind: %s", spec.Kind)
}

// UpdateVoltages computes the self-consistent electrode voltages for the
// current shape.
func (s *Session) UpdateVoltages() (electrode.Report, error) {
	rep, err := s.volts.Compute(s.shape, s.device.Gap(), s.device.Membrane.Tension())
	if err != nil {
		return rep, err
	}
	if len(rep.Clipped) > 0 {
		s.Sink.Message("WARNING: %d electrodes clipped to 0 V for %v", len(rep.Clipped), s.shape)
	}
	s.voltsValid = true
	return rep, nil
}

// SetUniformVoltage drives every electrode at the same voltage instead of
// the self-consistent ones.
func (s *Session) SetUniformVoltage(v float64) {
	s.volts.SetUniform(v)
	s.voltsValid = true
}

// Discrete builds the coupling matrix as a sum over the electrodes. The
// imaginary residuals above the device threshold are returned as well.
func (s *Session) Discrete() (*mat.Dense, []coupling.Residual, error) {
	if !s.voltsValid {
		if _, err := s.UpdateVoltages(); err != nil {
			return nil, nil, err
		}
	}
	d := coupling.NewDiscrete(s.basis, s.shape, s.device.Gap(), s.volts)
	d.ImagThreshold = s.device.ImagThreshold
	a, err := d.Matrix()
	if err != nil {
		return nil, nil, err
	}
	for _, r := range d.Residuals {
		s.Sink.Message("WARNING: imaginary residual %g in A[%d][%d]", r.Imag, r.I, r.J)
	}
	return a, d.Residuals, nil
}

// Continuous builds the coupling matrix by radial integration.
func (s *Session) Continuous() (*mat.Dense, error) {
	c := coupling.NewContinuous(s.basis, s.shape, s.device.Gap())
	c.Integrator = s.device.Integrator()
	return c.Matrix()
}

// Omega builds the stiffness matrix from a coupling matrix.
func (s *Session) Omega(a mat.Matrix) (*mat.Dense, error) {
	return BuildOmega(a, s.device.Membrane.Tension(), s.basis.Radius(), s.basis.Zeros())
}

// Solve diagonalizes a copy of omega.
func (s *Session) Solve(omega mat.Matrix) (*eigen.Result, error) {
	work := mat.DenseCopyOf(omega)
	solver, err := eigen.NewSolver(work)
	if err != nil {
		return nil, err
	}
	solver.MaxIter = s.device.MaxIter
	return solver.Solve()
}

// Evaluation is the outcome of one stability computation.
type Evaluation struct {
	Shape      string
	Voltages   electrode.Report
	MatrixA    *mat.Dense
	Continuous *mat.Dense
	Residuals  []coupling.Residual
	Omega      *mat.Dense
	Eigen      *eigen.Result
}

// Min returns the smallest eigenvalue.
func (e *Evaluation) Min() float64 {
	return e.Eigen.Min()
}

// Stable reports whether the operating point is stable.
func (e *Evaluation) Stable() bool {
	return e.Eigen.Stable()
}

// Evaluate runs the stability pipeline for the current configuration:
// voltages, coupling, Omega and its eigen decomposition. Every step is
// dumped to the sink.
func (s *Session) Evaluate(mode Mode) (*Evaluation, error) {
	ev := &Evaluation{Shape: s.shape.String()}
	if !s.voltsValid {
		rep, err := s.UpdateVoltages()
		if err != nil {
			return nil, err
		}
		ev.Voltages = rep
	}
	s.Sink.Matrix("Electrode Voltage Map", s.volts.Map())
	s.Sink.Matrix("Membrane Shape", membrane.Profile(s.shape, s.basis.Radius(), profilePoints))

	if mode == Full {
		c, err := s.Continuous()
		if err != nil {
			return nil, err
		}
		ev.Continuous = c
		s.Sink.Matrix("MatrixA (Integral)", c)
	}

	a, res, err := s.Discrete()
	if err != nil {
		return nil, err
	}
	ev.MatrixA, ev.Residuals = a, res
	s.Sink.Matrix("MatrixA (Discrete Sum)", a)

	ev.Omega, err = s.Omega(a)
	if err != nil {
		return nil, err
	}
	s.Sink.Matrix("Omega Matrix (Discrete Sum)", ev.Omega)
	log.Debugf("Omega: %s", tabular.String(ev.Omega))

	ev.Eigen, err = s.Solve(ev.Omega)
	if err != nil {
		return nil, err
	}
	s.Sink.Vector("Omega Matrix -- Eigenvalues", ev.Eigen.Values)
	if mode == Full {
		s.Sink.Matrix("Omega Matrix -- Eigenvectors", ev.Eigen.Vectors)
	}
	log.Infof("%v: minimum eigenvalue %g", s.shape, ev.Min())
	return ev, nil
}

// Stability runs the fast pipeline and returns the minimum eigenvalue.
func (s *Session) Stability() (float64, error) {
	ev, err := s.Evaluate(Fast)
	if err != nil {
		return 0, err
	}
	return ev.Min(), nil
}
