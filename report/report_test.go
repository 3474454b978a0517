package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/dmlab/mirrorstab/experiment"
)

func TestSweepPlot(tst *testing.T) {
	res := experiment.NewResult(experiment.Sweep{Name: "vt", Kind: experiment.TopVoltage})
	for i := 0; i < 5; i++ {
		v := float64(5 * i)
		res.Append([]float64{v, 100 - v*v, 200 - v, 300})
	}
	p, err := SweepPlot(res)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if p.Title.Text != "vt" || p.X.Label.Text != "Vt(V)" {
		tst.Error("Unexpected labels", p.Title.Text, p.X.Label.Text)
	}
	for _, name := range []string{"sweep.png", "sweep.svg"} {
		path := filepath.Join(tst.TempDir(), name)
		if err := Save(p, path); err != nil {
			tst.Fatal("Error:", err)
		}
		if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
			tst.Error("Plot was not written:", path, err)
		}
	}

	if _, err := SweepPlot(experiment.NewResult(experiment.Sweep{Kind: experiment.Peak})); !errors.Is(err, ErrEmpty) {
		tst.Error("Expected ErrEmpty, got", err)
	}
}

func TestGridPlot(tst *testing.T) {
	g := &experiment.Grid{
		Va:  []float64{0, 30},
		Vt:  []float64{0, 30},
		X:   []float64{0, 1. / 30},
		Y:   []float64{0, 1. / 30},
		Min: mat.NewDense(2, 2, []float64{3e5, 1e4, 2e4, -3e5}),
	}
	p, err := GridPlot(g)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	path := filepath.Join(tst.TempDir(), "grid.png")
	if err := Save(p, path); err != nil {
		tst.Fatal("Error:", err)
	}
	if _, err := os.Stat(path); err != nil {
		tst.Error("Plot was not written:", err)
	}
	if _, err := GridPlot(&experiment.Grid{}); !errors.Is(err, ErrEmpty) {
		tst.Error("Expected ErrEmpty, got", err)
	}
}
