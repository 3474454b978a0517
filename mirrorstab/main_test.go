package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"

	"bitbucket.org/dmlab/mirrorstab/config"
	"bitbucket.org/dmlab/mirrorstab/stability"
	"bitbucket.org/dmlab/mirrorstab/tabular"
)

func init() {
	for _, m := range modules {
		logging.SetLevel(logging.ERROR, m)
	}
}

func TestPing(tst *testing.T) {
	var out bytes.Buffer
	buf := tabular.NewBuffer()
	summary, err := run(pingCmd.FullCommand(), buf, &out)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if strings.TrimSpace(out.String()) != "7" {
		tst.Error("Expected 7, got", out.String())
	}
	if summary.Device != stability.DefaultDevice().String() {
		tst.Error("Unexpected device", summary.Device)
	}
	if !strings.Contains(buf.String(), "mirrorstab") {
		tst.Error("Expected a log header")
	}
}

func TestCreate(tst *testing.T) {
	var out bytes.Buffer
	if _, err := run(createCmd.FullCommand(), tabular.Discard, &out); err != nil {
		tst.Fatal("Error:", err)
	}
	c, err := config.Load(out.Bytes())
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if c.Device != stability.DefaultDevice() {
		tst.Error("Expected the reference device, got", c.Device)
	}
}

func TestPlotName(tst *testing.T) {
	*plotF = "out/sweep.png"
	defer func() { *plotF = "" }()
	if n := plotName(0, 1); n != "out/sweep.png" {
		tst.Error("Expected out/sweep.png, got", n)
	}
	if n := plotName(1, 3); n != "out/sweep_2.png" {
		tst.Error("Expected out/sweep_2.png, got", n)
	}
}

func TestPlanPlots(tst *testing.T) {
	dir := tst.TempDir()
	device := filepath.Join(dir, "device.ini")
	if err := os.WriteFile(device, []byte("[basis]\nmodes = 6\n"), 0644); err != nil {
		tst.Fatal("Error:", err)
	}
	plan := filepath.Join(dir, "plan.json5")
	text := `{
		sweeps: [{kind: "vt", low: 5, high: 10, step: 5}],
		smallamp: [{valow: 0, vahigh: 30, vtlow: 0, vthigh: 30, points: 2}],
	}`
	if err := os.WriteFile(plan, []byte(text), 0644); err != nil {
		tst.Fatal("Error:", err)
	}

	*configF, *planFile, *plotF = device, plan, filepath.Join(dir, "plan.png")
	defer func() { *configF, *planFile, *plotF = "", "", "" }()

	var out bytes.Buffer
	summary, err := run(planCmd.FullCommand(), tabular.Discard, &out)
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if len(summary.Sweeps) != 1 || len(summary.Grids) != 1 {
		tst.Fatal("Unexpected summary", summary)
	}
	for _, name := range []string{"plan_1.png", "plan_2.png"} {
		if fi, err := os.Stat(filepath.Join(dir, name)); err != nil || fi.Size() == 0 {
			tst.Error("Plot was not written:", name, err)
		}
	}
}
