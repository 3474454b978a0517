package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/op/go-logging"
)

func init() {
	logging.SetLevel(logging.ERROR, "checkpoint")
}

func TestRoundTrip(tst *testing.T) {
	db, err := Open(filepath.Join(tst.TempDir(), "sweeps.db"))
	if err != nil {
		tst.Fatal("Error:", err)
	}
	defer db.Close()

	c := NewCheckpointIO(db, []byte("peak"), 0)
	data, err := c.Load()
	if err != nil || data != nil {
		tst.Fatal("Expected empty checkpoint, got", data, err)
	}

	in := &SweepData{
		Definition: `{"kind":"peak"}`,
		Rows:       [][]float64{{-1, 2, 3}, {0, 4, 5}},
	}
	if err := c.Save(in); err != nil {
		tst.Fatal("Error:", err)
	}
	data, err = c.Load()
	if err != nil {
		tst.Fatal("Error:", err)
	}
	if data.Definition != in.Definition || data.Final {
		tst.Error("Unexpected checkpoint", data)
	}
	if len(data.Rows) != 2 || data.Rows[1][2] != 5 {
		tst.Error("Unexpected rows", data.Rows)
	}

	other := NewCheckpointIO(db, []byte("vt"), 0)
	if data, _ := other.Load(); data != nil {
		tst.Error("Keys are not independent")
	}
}

func TestSaveInterval(tst *testing.T) {
	db, err := Open(filepath.Join(tst.TempDir(), "sweeps.db"))
	if err != nil {
		tst.Fatal("Error:", err)
	}
	defer db.Close()

	c := NewCheckpointIO(db, []byte("peak"), 3600)
	c.SetNow()
	c.Save(&SweepData{Rows: [][]float64{{1}}})
	if data, _ := c.Load(); data != nil {
		tst.Error("Expected save to be skipped")
	}
	c.Save(&SweepData{Rows: [][]float64{{1}}, Final: true})
	data, _ := c.Load()
	if data == nil || !data.Final {
		tst.Error("Expected final data to be saved")
	}
}

func TestNilDB(tst *testing.T) {
	c := NewCheckpointIO(nil, []byte("peak"), 0)
	if err := c.Save(&SweepData{Final: true}); err != nil {
		tst.Error("Error:", err)
	}
	if data, err := c.Load(); data != nil || err != nil {
		tst.Error("Expected nothing, got", data, err)
	}
}
