package experiment

import (
	"fmt"
	"io"
	"os"

	json "github.com/KevinWang15/go-json5"
)

// Plan is a list of experiments run in sequence. Plan files are JSON5, so
// they may contain comments and trailing commas.
type Plan struct {
	Sweeps         []Sweep          `json:"sweeps"`
	SmallAmplitude []SmallAmplitude `json:"smallamp"`
}

// ReadPlan parses a plan and validates its sweeps.
func ReadPlan(r io.Reader) (*Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("experiment: error parsing plan: %w", err)
	}
	seen := make(map[string]bool)
	for i, sw := range p.Sweeps {
		if err := sw.Validate(); err != nil {
			return nil, fmt.Errorf("sweep %d: %w", i+1, err)
		}
		if seen[sw.Key()] {
			return nil, fmt.Errorf("sweep %d: duplicate name %q", i+1, sw.Key())
		}
		seen[sw.Key()] = true
	}
	return &p, nil
}

// LoadPlan reads a plan file.
func LoadPlan(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPlan(f)
}

// PlanResult holds the outcome of every experiment of a plan.
type PlanResult struct {
	Sweeps []*Result
	Grids  []*Grid
}

// RunPlan runs all the experiments of the plan. It stops at the first
// failing experiment and returns what was computed so far.
func (d *Driver) RunPlan(p *Plan) (*PlanResult, error) {
	res := &PlanResult{}
	for _, sw := range p.Sweeps {
		r, err := d.Run(sw)
		if err != nil {
			return res, fmt.Errorf("%v: %w", sw, err)
		}
		res.Sweeps = append(res.Sweeps, r)
	}
	for _, sa := range p.SmallAmplitude {
		g, err := d.SmallAmplitude(sa)
		if err != nil {
			return res, fmt.Errorf("%v: %w", sa, err)
		}
		res.Grids = append(res.Grids, g)
	}
	return res, nil
}
