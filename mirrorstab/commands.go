package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/dmlab/mirrorstab/checkpoint"
	"bitbucket.org/dmlab/mirrorstab/config"
	"bitbucket.org/dmlab/mirrorstab/experiment"
	"bitbucket.org/dmlab/mirrorstab/report"
	"bitbucket.org/dmlab/mirrorstab/stability"
	"bitbucket.org/dmlab/mirrorstab/tabular"
)

// pingReply is printed by the ping command.
const pingReply = 7

// checkpointSeconds is the minimum interval between checkpoint saves.
const checkpointSeconds = 10

// loadConfig reads the device file or returns the reference device.
func loadConfig() (*config.Config, error) {
	if *configF == "" {
		return config.Default(), nil
	}
	log.Infof("Reading device file %s", *configF)
	return config.Load(*configF)
}

// newSession creates a session for the configured device and shape.
func newSession(cfg *config.Config, sink tabular.Sink) (*stability.Session, error) {
	s, err := stability.NewSession(cfg.Device)
	if err != nil {
		return nil, err
	}
	s.Sink = sink
	sh, err := s.NewShape(cfg.Shape)
	if err != nil {
		return nil, err
	}
	s.SetShape(sh)
	log.Infof("Electrode array: %d electrodes, %d eigenfunctions", s.Array().Len(), s.Basis().Len())
	return s, nil
}

// newDriver creates an experiment driver with the optional checkpoint
// database. The returned function closes the database.
func newDriver(s *stability.Session, full bool) (*experiment.Driver, func(), error) {
	d := experiment.NewDriver(s)
	d.Workers = 0
	if full {
		d.Mode = stability.Full
	}
	if *checkpointF == "" {
		return d, func() {}, nil
	}
	db, err := checkpoint.Open(*checkpointF)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening checkpoint database: %w", err)
	}
	d.DB = db
	d.CheckpointSeconds = checkpointSeconds
	return d, func() { closeDB(db) }, nil
}

func closeDB(db *bolt.DB) {
	if err := db.Close(); err != nil {
		log.Error("Error closing checkpoint database:", err)
	}
}

// plotName returns the plot file of the i-th of n plots.
func plotName(i, n int) string {
	if n == 1 {
		return *plotF
	}
	ext := filepath.Ext(*plotF)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(*plotF, ext), i+1, ext)
}

// plotSweeps plots the results as plots first..first+len(results)-1 of
// total.
func plotSweeps(results []*experiment.Result, first, total int) {
	if *plotF == "" {
		return
	}
	for i, r := range results {
		p, err := report.SweepPlot(r)
		if err == nil {
			err = report.Save(p, plotName(first+i, total))
		}
		if err != nil {
			log.Error("Error plotting sweep:", err)
		}
	}
}

func plotGrids(grids []*experiment.Grid, first, total int) {
	if *plotF == "" {
		return
	}
	for i, g := range grids {
		p, err := report.GridPlot(g)
		if err == nil {
			err = report.Save(p, plotName(first+i, total))
		}
		if err != nil {
			log.Error("Error plotting small amplitude test:", err)
		}
	}
}

// writeResult exports a table, reporting write errors without stopping.
func writeResult(write func(io.Writer) error, out io.Writer) {
	if err := write(out); err != nil {
		log.Error("Error writing results:", err)
	}
}

// run executes a command and returns its summary.
func run(command string, sink tabular.Sink, out io.Writer) (*RunSummary, error) {
	summary := &RunSummary{}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	summary.Device = cfg.Device.String()

	if command == createCmd.FullCommand() {
		log.Notice("Writing device file")
		return summary, cfg.Write(out)
	}

	s, err := newSession(cfg, sink)
	if err != nil {
		return nil, err
	}

	switch command {
	case pingCmd.FullCommand():
		sink.Message("mirrorstab %s", version)
		sink.Message("%v", cfg.Device)
		fmt.Fprintln(out, pingReply)

	case stabilityCmd.FullCommand():
		m, err := s.Stability()
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(out, m)
		stable := m > 0
		summary.Shape = &cfg.Shape
		summary.MinEigenvalue, summary.Stable = &m, &stable

	case runCmd.FullCommand():
		mode := stability.Full
		if *runFast {
			mode = stability.Fast
		}
		ev, err := s.Evaluate(mode)
		if err != nil {
			return nil, err
		}
		m, stable := ev.Min(), ev.Stable()
		if stable {
			log.Noticef("Stable, minimum eigenvalue %g", m)
		} else {
			log.Noticef("UNSTABLE, minimum eigenvalue %g", m)
		}
		writeResult(func(w io.Writer) error {
			return tabular.WriteVector(w, "Omega Matrix -- Eigenvalues", ev.Eigen.Values)
		}, out)
		summary.Shape = &cfg.Shape
		summary.MinEigenvalue, summary.Stable = &m, &stable
		summary.Eigenvalues = ev.Eigen.Values
		summary.Clipped = len(ev.Voltages.Clipped)
		summary.Residuals = len(ev.Residuals)

	case sweepCmd.FullCommand():
		d, closeFn, err := newDriver(s, *sweepFull)
		if err != nil {
			return nil, err
		}
		defer closeFn()
		sw := experiment.Sweep{
			Name:  *sweepName,
			Kind:  experiment.Kind(*sweepKind),
			Low:   *sweepLow,
			High:  *sweepHigh,
			Step:  *sweepStep,
			Shape: cfg.Shape,
			J:     *sweepJ,
		}
		log.Noticef("Running %v", sw)
		r, err := d.Run(sw)
		if err != nil {
			return nil, err
		}
		writeResult(r.Write, out)
		plotSweeps([]*experiment.Result{r}, 0, 1)
		summary.Sweeps = append(summary.Sweeps, newSweepSummary(r))

	case smallCmd.FullCommand():
		d, closeFn, err := newDriver(s, false)
		if err != nil {
			return nil, err
		}
		defer closeFn()
		g, err := d.SmallAmplitude(experiment.SmallAmplitude{
			VaLow:  *smallVaLow,
			VaHigh: *smallVaHigh,
			VtLow:  *smallVtLow,
			VtHigh: *smallVtHigh,
			Points: *smallPoints,
		})
		if err != nil {
			return nil, err
		}
		writeResult(g.Write, out)
		plotGrids([]*experiment.Grid{g}, 0, 1)
		summary.Grids = append(summary.Grids, GridSummary{Points: *smallPoints, Stable: g.Stable()})

	case planCmd.FullCommand():
		p, err := experiment.LoadPlan(*planFile)
		if err != nil {
			return nil, err
		}
		log.Noticef("Plan %s: %d sweeps, %d small amplitude tests",
			*planFile, len(p.Sweeps), len(p.SmallAmplitude))
		d, closeFn, err := newDriver(s, false)
		if err != nil {
			return nil, err
		}
		defer closeFn()
		res, err := d.RunPlan(p)
		for _, r := range res.Sweeps {
			writeResult(r.Write, out)
			summary.Sweeps = append(summary.Sweeps, newSweepSummary(r))
		}
		for i, g := range res.Grids {
			writeResult(g.Write, out)
			summary.Grids = append(summary.Grids,
				GridSummary{Points: p.SmallAmplitude[i].Points, Stable: g.Stable()})
		}
		if err != nil {
			return nil, err
		}
		n := len(res.Sweeps) + len(res.Grids)
		plotSweeps(res.Sweeps, 0, n)
		plotGrids(res.Grids, len(res.Sweeps), n)

	case validateCmd.FullCommand():
		v, err := s.Validate(*validateNR, *validateNPhi)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "Gram matrix error\t%g\n", v.GramError)
		fmt.Fprintf(out, "Eigenvector orthonormality error\t%g\n", v.EigenError)
		fmt.Fprintf(out, "Coupling model difference\t%g\n", v.CouplingError)
		summary.Validation = &ValidationSummary{
			GramError:     v.GramError,
			EigenError:    v.EigenError,
			CouplingError: v.CouplingError,
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown command", command)
	}

	return summary, nil
}
