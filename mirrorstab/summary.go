package main

import (
	"bitbucket.org/dmlab/mirrorstab/experiment"
	"bitbucket.org/dmlab/mirrorstab/stability"
)

// RunSummary is storing mirrorstab run summary information.
type RunSummary struct {
	// Version stores mirrorstab version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Command is the subcommand.
	Command string `json:"command"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// Device is the simulated device.
	Device string `json:"device"`
	// Shape is the membrane shape of single evaluations.
	Shape *stability.ShapeSpec `json:"shape,omitempty"`
	// MinEigenvalue is the stability verdict of single evaluations.
	MinEigenvalue *float64 `json:"minEigenvalue,omitempty"`
	// Stable is true if MinEigenvalue is positive.
	Stable *bool `json:"stable,omitempty"`
	// Eigenvalues are all Omega eigenvalues in ascending order.
	Eigenvalues []float64 `json:"eigenvalues,omitempty"`
	// Clipped is the number of electrodes without a realizable voltage.
	Clipped int `json:"clipped,omitempty"`
	// Residuals is the number of imaginary residuals above the threshold.
	Residuals int `json:"residuals,omitempty"`
	// Sweeps summarizes every sweep run.
	Sweeps []SweepSummary `json:"sweeps,omitempty"`
	// Grids summarizes every small amplitude test.
	Grids []GridSummary `json:"grids,omitempty"`
	// Validation holds the self-test errors.
	Validation *ValidationSummary `json:"validation,omitempty"`
	// Time is the computations time in seconds.
	Time float64 `json:"time"`
}

// SweepSummary stores information on one sweep.
type SweepSummary struct {
	Name string          `json:"name"`
	Kind experiment.Kind `json:"kind"`
	Rows int             `json:"rows"`
	// Lowest is the swept value with the smallest minimum eigenvalue.
	Lowest    float64 `json:"lowest"`
	LowestMin float64 `json:"lowestMin"`
	// Threshold is the interpolated value where stability changes.
	Threshold *float64 `json:"threshold,omitempty"`
}

func newSweepSummary(r *experiment.Result) SweepSummary {
	s := SweepSummary{Name: r.Name, Kind: r.Kind, Rows: r.Len()}
	s.Lowest, s.LowestMin = r.Lowest()
	if x, ok := r.Threshold(); ok {
		s.Threshold = &x
	}
	return s
}

// GridSummary stores information on one small amplitude test.
type GridSummary struct {
	Points int `json:"points"`
	Stable int `json:"stable"`
}

// ValidationSummary stores the self-test errors.
type ValidationSummary struct {
	GramError     float64 `json:"gramError"`
	EigenError    float64 `json:"eigenError"`
	CouplingError float64 `json:"couplingError"`
}
