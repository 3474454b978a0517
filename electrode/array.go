// Package electrode describes the pixelated actuation electrode array
// underneath the membrane and the voltages applied to it.
package electrode

import (
	"errors"
	"fmt"
	"math"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("electrode")

// Ground is the index returned for lattice sites without an electrode.
const Ground = -1

var (
	// ErrNotFound is returned by IndexOf for a site without an electrode.
	ErrNotFound = errors.New("electrode: no electrode at site")
	// ErrInvalidGeometry is returned for non-physical array geometry.
	ErrInvalidGeometry = errors.New("electrode: invalid geometry")
	// ErrIndex is returned for an electrode index outside of the array.
	ErrIndex = errors.New("electrode: index outside of array")
)

// Geometry describes a square lattice of square electrodes. Rows and
// columns are signed and skip zero, so that the lattice is symmetric about
// the membrane center. A site is populated if its center lies within
// ExtentUm of the origin.
type Geometry struct {
	WidthUm   float64
	SpacingUm float64
	ExtentUm  float64
}

// DefaultGeometry returns the reference array: 275 um electrodes with
// 5 um spacers, 2920 electrodes.
func DefaultGeometry() Geometry {
	return Geometry{
		WidthUm:   275,
		SpacingUm: 5,
		ExtentUm:  8541.15,
	}
}

// Pitch returns the center-to-center distance in meters.
func (g Geometry) Pitch() float64 {
	return (g.WidthUm + g.SpacingUm) * 1e-6
}

// Site is a single electrode. X follows rows and Y follows columns.
type Site struct {
	Index int
	Row   int
	Col   int
	X     float64
	Y     float64
	R     float64
	Phi   float64
}

// Array is the immutable electrode layout. It is safe for concurrent use.
type Array struct {
	geom  Geometry
	half  int
	sites []Site
	grid  []int
}

// center returns the signed center coordinate of row or column i in
// pitches.
func center(i int) float64 {
	c := math.Abs(float64(i)) - 0.5
	if i < 0 {
		return -c
	}
	return c
}

// NewArray builds the electrode layout.
func NewArray(g Geometry) (*Array, error) {
	if g.WidthUm <= 0 || g.SpacingUm < 0 || g.ExtentUm <= 0 {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidGeometry, g)
	}
	pitchUm := g.WidthUm + g.SpacingUm
	half := int(math.Floor(g.ExtentUm/pitchUm + 0.5))
	if half < 1 {
		return nil, fmt.Errorf("%w: extent %v um is smaller than one pitch", ErrInvalidGeometry, g.ExtentUm)
	}
	a := &Array{
		geom: g,
		half: half,
		grid: make([]int, 4*half*half),
	}
	pitch := g.Pitch()
	lim := g.ExtentUm / pitchUm
	lim *= lim
	for row := -half; row <= half; row++ {
		if row == 0 {
			continue
		}
		for col := -half; col <= half; col++ {
			if col == 0 {
				continue
			}
			x, y := center(row), center(col)
			gi := a.gridIndex(row, col)
			if x*x+y*y > lim {
				a.grid[gi] = Ground
				continue
			}
			s := Site{
				Index: len(a.sites),
				Row:   row,
				Col:   col,
				X:     x * pitch,
				Y:     y * pitch,
			}
			s.R = math.Hypot(s.X, s.Y)
			s.Phi = math.Atan2(s.Y, s.X)
			a.grid[gi] = s.Index
			a.sites = append(a.sites, s)
		}
	}
	log.Infof("Electrode array: %d electrodes, %d rows, pitch %v um", len(a.sites), 2*half, pitchUm)
	return a, nil
}

// lattice converts a signed row or column to 0..2*half-1, or -1.
func (a *Array) lattice(i int) int {
	switch {
	case i == 0 || i > a.half || i < -a.half:
		return -1
	case i < 0:
		return i + a.half
	}
	return i + a.half - 1
}

func (a *Array) gridIndex(row, col int) int {
	return a.lattice(row)*2*a.half + a.lattice(col)
}

// Geometry returns the array geometry.
func (a *Array) Geometry() Geometry {
	return a.geom
}

// Len returns the number of electrodes.
func (a *Array) Len() int {
	return len(a.sites)
}

// HalfSize returns the number of rows on each side of the center.
func (a *Array) HalfSize() int {
	return a.half
}

// Pitch returns the center-to-center distance in meters.
func (a *Array) Pitch() float64 {
	return a.geom.Pitch()
}

// PixelArea returns the area attributed to one electrode.
func (a *Array) PixelArea() float64 {
	p := a.Pitch()
	return p * p
}

// Site returns electrode k.
func (a *Array) Site(k int) (Site, error) {
	if k < 0 || k >= len(a.sites) {
		return Site{}, fmt.Errorf("%w: %d", ErrIndex, k)
	}
	return a.sites[k], nil
}

// Sites returns all the electrodes. The slice must not be modified.
func (a *Array) Sites() []Site {
	return a.sites
}

// CenterOf returns the polar coordinates of the center of electrode k.
func (a *Array) CenterOf(k int) (r, phi float64, err error) {
	s, err := a.Site(k)
	if err != nil {
		return 0, 0, err
	}
	return s.R, s.Phi, nil
}

// IndexOf returns the index of the electrode at a signed lattice site.
// Sites without an electrode return Ground and ErrNotFound.
func (a *Array) IndexOf(row, col int) (int, error) {
	if a.lattice(row) < 0 || a.lattice(col) < 0 {
		return Ground, fmt.Errorf("%w: row=%d, col=%d", ErrNotFound, row, col)
	}
	k := a.grid[a.gridIndex(row, col)]
	if k == Ground {
		return Ground, fmt.Errorf("%w: row=%d, col=%d", ErrNotFound, row, col)
	}
	return k, nil
}
