package experiment

import (
	"encoding/json"
	"io"
	"runtime"
	"sync"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/dmlab/mirrorstab/checkpoint"
	"bitbucket.org/dmlab/mirrorstab/stability"
	"bitbucket.org/dmlab/mirrorstab/tabular"
)

// Gram matrix resolution of the sweep header.
const (
	gramRadial  = 64
	gramAngular = 32
)

// Driver runs experiments on copies of a session. The session itself is
// never modified.
type Driver struct {
	Session *stability.Session
	// Mode selects the pipeline of every point.
	Mode stability.Mode
	// Workers is the number of points evaluated in parallel. Zero uses
	// GOMAXPROCS.
	Workers int
	// DB stores the sweep checkpoints, nil disables checkpointing.
	DB *bolt.DB
	// CheckpointSeconds is the minimum interval between checkpoint saves.
	CheckpointSeconds float64
}

// NewDriver creates a serial driver without checkpoints.
func NewDriver(s *stability.Session) *Driver {
	return &Driver{Session: s, Workers: 1}
}

func (d *Driver) workers() int {
	if d.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return d.Workers
}

// job evaluates one point on a session owned by the calling worker and
// returns the result row.
type job func(s *stability.Session) ([]float64, error)

// run evaluates the jobs in parallel. Every job writes its diagnostics to
// its own buffer; the buffers are copied to the session sink in job order.
func (d *Driver) run(jobs []job) ([][]float64, error) {
	rows := make([][]float64, len(jobs))
	errs := make([]error, len(jobs))

	out, buffered := d.Session.Sink.(io.Writer)
	bufs := make([]*tabular.Buffer, len(jobs))

	nWorkers := d.workers()
	if nWorkers > len(jobs) {
		nWorkers = len(jobs)
	}

	tasks := make(chan int, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := d.Session.Clone()
			for k := range tasks {
				if buffered {
					bufs[k] = tabular.NewBuffer()
					s.Sink = bufs[k]
				}
				rows[k], errs[k] = jobs[k](s)
			}
		}()
	}

	for k := range jobs {
		tasks <- k
	}
	close(tasks)
	wg.Wait()

	for k := range jobs {
		if buffered {
			if err := bufs[k].FlushTo(out); err != nil {
				log.Errorf("Error writing diagnostics: %v", err)
				buffered = false
			}
		}
	}
	for k, err := range errs {
		if err != nil {
			return rows[:k], err
		}
	}
	return rows, nil
}

// point evaluates the sweep at x.
func (d *Driver) point(sw Sweep, base stability.Device, x float64) job {
	return func(s *stability.Session) ([]float64, error) {
		s.Sink.Message("%s = %g", sw.Kind.Label(), x)
		if err := sw.apply(s, base, x); err != nil {
			return nil, err
		}
		ev, err := s.Evaluate(d.Mode)
		if err != nil {
			return nil, err
		}
		s.Sink.Matrix("Eigenvector Product Matrix", ev.Eigen.Orthonormality())
		if !ev.Stable() {
			s.Sink.Message("UNSTABLE: minimum eigenvalue %g", ev.Min())
		}
		row := make([]float64, 0, len(ev.Eigen.Values)+1)
		row = append(row, x)
		return append(row, ev.Eigen.Values...), nil
	}
}

// definition identifies a sweep and everything its rows depend on.
func (d *Driver) definition(sw Sweep) string {
	b, err := json.Marshal(struct {
		Sweep  Sweep
		Device stability.Device
		Mode   stability.Mode
	}{sw, d.Session.Device(), d.Mode})
	if err != nil {
		log.Errorf("Error serializing sweep: %v", err)
	}
	return string(b)
}

// Run evaluates the sweep at every point from Low to High. Rows of an
// unfinished run of the same sweep are taken from the checkpoint.
func (d *Driver) Run(sw Sweep) (*Result, error) {
	if err := sw.Validate(); err != nil {
		return nil, err
	}
	pts, _ := Points(sw.Low, sw.High, sw.Step)
	res := NewResult(sw)
	base := d.Session.Device()

	def := d.definition(sw)
	cp := checkpoint.NewCheckpointIO(d.DB, []byte(sw.Key()), d.CheckpointSeconds)
	data, err := cp.Load()
	if err != nil {
		log.Warningf("Ignoring unreadable checkpoint: %v", err)
		data = nil
	}
	if data != nil && data.Definition == def && len(data.Rows) <= len(pts) {
		log.Noticef("Resuming %v from row %d", sw, len(data.Rows)+1)
		for _, row := range data.Rows {
			if err := res.Append(row); err != nil {
				return nil, err
			}
		}
		if data.Final {
			return res, nil
		}
	} else if data != nil {
		log.Notice("Checkpoint belongs to a different sweep, starting over")
	}

	sink := d.Session.Sink
	sink.Message("--- Begin %v ---", sw)
	sink.Message("%v", base)
	if res.Len() == 0 {
		sink.Matrix("Eigenfunction Product Matrix", d.Session.Basis().Gram(gramRadial, gramAngular))
	}

	batch := d.workers()
	for start := res.Len(); start < len(pts); start += batch {
		end := start + batch
		if end > len(pts) {
			end = len(pts)
		}
		jobs := make([]job, 0, end-start)
		for _, x := range pts[start:end] {
			jobs = append(jobs, d.point(sw, base, x))
		}
		rows, err := d.run(jobs)
		for _, row := range rows {
			if aerr := res.Append(row); aerr != nil {
				return res, aerr
			}
		}
		if err != nil {
			d.save(cp, def, res, false)
			return res, err
		}
		log.Infof("%s: %d of %d points done", sw.Key(), res.Len(), len(pts))
		d.save(cp, def, res, res.Len() == len(pts))
	}

	if m := res.Matrix(); m != nil {
		sink.Matrix("Sweep Result", m)
	}
	if x, ok := res.Threshold(); ok {
		sink.Message("Stability changes at %s = %g", sw.Kind.Label(), x)
		log.Noticef("%s: stability changes at %s = %g", sw.Key(), sw.Kind.Label(), x)
	}
	sink.Message("--- End %v ---", sw)
	return res, nil
}

func (d *Driver) save(cp *checkpoint.CheckpointIO, def string, res *Result, final bool) {
	cp.Save(&checkpoint.SweepData{Definition: def, Rows: res.Rows, Final: final})
}
