package stability

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/electrode"
	"bitbucket.org/dmlab/mirrorstab/membrane"
	"bitbucket.org/dmlab/mirrorstab/tabular"
)

const x0 = 2.404825557695773

func init() {
	for _, m := range []string{"stability", "coupling", "electrode", "membrane", "eigen"} {
		logging.SetLevel(logging.ERROR, m)
	}
}

func testDevice() Device {
	d := DefaultDevice()
	d.Modes = 12
	return d
}

func newSession(tst testing.TB, d Device) *Session {
	s, err := NewSession(d)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	return s
}

func TestOmegaSingleMode(tst *testing.T) {
	a := mat.NewDense(1, 1, []float64{1234.5})
	T, R := 3.0, 7.5e-3
	omega, err := BuildOmega(a, T, R, []float64{x0})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	k := x0 / R
	exp := -1234.5 + T*k*k
	if omega.At(0, 0) != exp {
		tst.Error("Expected", exp, ", got", omega.At(0, 0))
	}
	s := newSession(tst, testDevice())
	r, err := s.Solve(omega)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if r.Min() != exp {
		tst.Error("Expected minimum eigenvalue", exp, ", got", r.Min())
	}
	if a.At(0, 0) != 1234.5 {
		tst.Error("Coupling matrix was modified")
	}
}

func TestOmegaDimensions(tst *testing.T) {
	a := mat.NewDense(2, 2, nil)
	if _, err := BuildOmega(a, 3, 7.5e-3, []float64{1, 2, 3}); !errors.Is(err, ErrDimension) {
		tst.Error("Expected ErrDimension, got", err)
	}
	if _, err := BuildOmega(mat.NewDense(2, 3, nil), 3, 7.5e-3, []float64{1, 2}); !errors.Is(err, ErrDimension) {
		tst.Error("Expected ErrDimension, got", err)
	}
	if _, err := multiply(mat.NewDense(2, 3, nil), mat.NewDense(2, 3, nil)); !errors.Is(err, ErrDimension) {
		tst.Error("Expected ErrDimension, got", err)
	}
}

func TestOmegaStructure(tst *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 2, 5})
	omega, _ := BuildOmega(a, 2, 1, []float64{3, 4})
	exp := mat.NewDense(2, 2, []float64{17, -2, -2, 27})
	if !mat.Equal(omega, exp) {
		tst.Errorf("Unexpected Omega:\n%v", mat.Formatted(omega))
	}
}

// flatMinimum is the lowest Omega eigenvalue of a flat membrane with the
// self-consistent voltage sqrt(2) Vt on every electrode.
func flatMinimum(d Device) float64 {
	R := d.Membrane.Radius()
	dist := d.DistAUm * 1e-6
	w := 3 * electrode.Epsilon0 * d.VoltageT * d.VoltageT / (dist * dist * dist)
	return d.Membrane.Tension()*x0*x0/(R*R) - w
}

func TestFlatStability(tst *testing.T) {
	data := []struct {
		vt     float64
		stable bool
	}{
		{10, true},
		{30, false},
	}
	for _, dt := range data {
		d := testDevice()
		d.VoltageT = dt.vt
		s := newSession(tst, d)
		ev, err := s.Evaluate(Fast)
		if err != nil {
			tst.Fatal("Error:", err)
		}
		if ev.Stable() != dt.stable {
			tst.Error("Vt =", dt.vt, ": expected stable =", dt.stable, ", min =", ev.Min())
		}
		exp := flatMinimum(d)
		w := d.Membrane.Tension()*x0*x0/(7.5e-3*7.5e-3) - exp
		if math.Abs(ev.Min()-exp) > 1e-2*w {
			tst.Error("Vt =", dt.vt, ": expected minimum", exp, ", got", ev.Min())
		}
		for i := 1; i < len(ev.Eigen.Values); i++ {
			if ev.Eigen.Values[i] < ev.Eigen.Values[i-1] {
				tst.Fatal("Eigenvalues are not ascending")
			}
		}
		if ev.Continuous != nil {
			tst.Error("Fast mode must not integrate")
		}
	}
}

func TestStabilityMatchesEvaluate(tst *testing.T) {
	s := newSession(tst, testDevice())
	m, err := s.Stability()
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if math.Abs(m-flatMinimum(s.Device())) > 1e3 {
		tst.Error("Unexpected minimum eigenvalue", m)
	}
}

func TestFullEvaluation(tst *testing.T) {
	s := newSession(tst, testDevice())
	buf := tabular.NewBuffer()
	s.Sink = buf
	sh, err := s.NewShape(ShapeSpec{Kind: ShapeBessel, J: 0, PeakUm: 2})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	s.SetShape(sh)
	ev, err := s.Evaluate(Full)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if ev.Continuous == nil || ev.MatrixA == nil || ev.Omega == nil {
		tst.Fatal("Missing matrices")
	}
	out := buf.String()
	for _, label := range []string{
		"Electrode Voltage Map", "Membrane Shape", "MatrixA (Integral)",
		"MatrixA (Discrete Sum)", "Omega Matrix (Discrete Sum)",
		"Omega Matrix -- Eigenvalues", "Omega Matrix -- Eigenvectors",
	} {
		if !strings.Contains(out, label+"\t") {
			tst.Error("Missing dump:", label)
		}
	}
}

func TestShapeInvalidatesVoltages(tst *testing.T) {
	s := newSession(tst, testDevice())
	if _, err := s.Evaluate(Fast); err != nil {
		tst.Fatal("Error:", err)
	}
	k, _ := s.Array().IndexOf(1, 1)
	before := s.Voltages().At(k)
	s.SetShape(membrane.Parabolic{Peak: 3e-6, Radius: s.Basis().Radius()})
	if _, err := s.Evaluate(Fast); err != nil {
		tst.Fatal("Error:", err)
	}
	if s.Voltages().At(k) <= before {
		tst.Error("Expected higher voltage at the center, got", s.Voltages().At(k), before)
	}

	d := s.Device()
	d.VoltageT = 20
	if err := s.SetDevice(d); err != nil {
		tst.Fatal("Error:", err)
	}
	s.Evaluate(Fast)
	if s.Voltages().At(k) <= 1.5*before {
		tst.Error("Expected voltages to follow the top electrode, got", s.Voltages().At(k))
	}
	d.Modes = 5
	if err := s.SetDevice(d); !errors.Is(err, ErrInvalidDevice) {
		tst.Error("Expected ErrInvalidDevice, got", err)
	}
}

func TestClone(tst *testing.T) {
	s := newSession(tst, testDevice())
	s.SetUniformVoltage(3)
	c := s.Clone()
	c.SetUniformVoltage(5)
	c.SetShape(membrane.Parabolic{Peak: 1e-6, Radius: 7.5e-3})
	if s.Voltages().At(0) != 3 {
		tst.Error("Clone shares voltages")
	}
	if s.Shape().String() == c.Shape().String() {
		tst.Error("Clone shares shape")
	}
	if s.Array() != c.Array() || s.Basis() != c.Basis() {
		tst.Error("Clone must share layout and basis")
	}
}

func TestNewShape(tst *testing.T) {
	s := newSession(tst, testDevice())
	if _, err := s.NewShape(ShapeSpec{Kind: "saddle"}); err == nil {
		tst.Error("Expected error for unknown shape")
	}
	if _, err := s.NewShape(ShapeSpec{Kind: ShapeBessel, J: 12}); !errors.Is(err, membrane.ErrBasisIndex) {
		tst.Error("Expected ErrBasisIndex, got", err)
	}
	sh, err := s.NewShape(ShapeSpec{Kind: ShapeExpansion, Coeffs: []float64{2.5e-8}})
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if sh.Deflection(0, 0) <= 0 {
		tst.Error("Expected positive deflection at the center")
	}
}

func TestInvalidDevice(tst *testing.T) {
	d := testDevice()
	d.DistAUm = 0
	if _, err := NewSession(d); !errors.Is(err, ErrInvalidDevice) {
		tst.Error("Expected ErrInvalidDevice, got", err)
	}
	d = testDevice()
	d.Modes = 60
	if _, err := NewSession(d); !errors.Is(err, membrane.ErrBasisIndex) {
		tst.Error("Expected ErrBasisIndex, got", err)
	}
}

func TestValidate(tst *testing.T) {
	s := newSession(tst, testDevice())
	v, err := s.Validate(64, 16)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if v.GramError > 1e-3 {
		tst.Error("Gram error too large:", v.GramError)
	}
	if v.EigenError > 1e-10 {
		tst.Error("Eigenvector error too large:", v.EigenError)
	}
	if v.CouplingError > 1e-2 {
		tst.Error("Coupling models disagree:", v.CouplingError)
	}
}

func BenchmarkEvaluate(b *testing.B) {
	s := newSession(b, testDevice())
	for i := 0; i < b.N; i++ {
		s.SetShape(membrane.Parabolic{Peak: 1e-6, Radius: 7.5e-3})
		s.Evaluate(Fast)
	}
}
