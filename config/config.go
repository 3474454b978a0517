// Package config reads and writes device description files.
//
// A device file is an ini file with the sections membrane, gap,
// electrodes, basis, solver and shape. Missing keys take the values of the
// reference device, values that cannot be parsed are an error:
//
//	[membrane]
//	stress = 3       ; MPa
//	thickness = 1    ; um
//	radius = 7.5     ; mm
//
//	[gap]
//	vt = 10          ; V
//	va = 10          ; V
//	dt = 30          ; um
//	da = 30          ; um
//
//	[shape]
//	kind = bessel
//	j = 0
//	peak = 2         ; um
package config

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/op/go-logging"
	"gopkg.in/ini.v1"

	"bitbucket.org/dmlab/mirrorstab/stability"
)

var log = logging.MustGetLogger("config")

// Config is the content of a device file.
type Config struct {
	Device stability.Device
	Shape  stability.ShapeSpec
}

// Default returns the reference device with a flat membrane.
func Default() *Config {
	return &Config{
		Device: stability.DefaultDevice(),
		Shape:  stability.ShapeSpec{Kind: stability.ShapeParabolic},
	}
}

// Load reads a device file. The source can be a file name or the file
// content as []byte or io.Reader.
func Load(source interface{}) (*Config, error) {
	file, err := ini.Load(source)
	if err != nil {
		return nil, fmt.Errorf("config: error reading device file: %w", err)
	}
	c, err := parse(file)
	if err != nil {
		return nil, err
	}
	if err := c.Device.Validate(); err != nil {
		return nil, err
	}
	log.Debugf("Device file: %v", c.Device)
	return c, nil
}

// ErrInvalidKey is returned for a device file value that cannot be parsed.
var ErrInvalidKey = errors.New("config: invalid value")

// reader parses the keys of a device file, keeping the first error. Missing
// keys leave the destination unchanged.
type reader struct {
	file *ini.File
	err  error
}

func (r *reader) fail(section, key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: [%s] %s: %v", ErrInvalidKey, section, key, err)
	}
}

func (r *reader) float(section, key string, dst *float64) {
	sec := r.file.Section(section)
	if !sec.HasKey(key) {
		return
	}
	v, err := sec.Key(key).Float64()
	if err != nil {
		r.fail(section, key, err)
		return
	}
	*dst = v
}

func (r *reader) integer(section, key string, dst *int) {
	sec := r.file.Section(section)
	if !sec.HasKey(key) {
		return
	}
	v, err := sec.Key(key).Int()
	if err != nil {
		r.fail(section, key, err)
		return
	}
	*dst = v
}

func parse(file *ini.File) (*Config, error) {
	c := Default()
	d := &c.Device
	r := &reader{file: file}

	r.float("membrane", "stress", &d.Membrane.StressMPa)
	r.float("membrane", "thickness", &d.Membrane.ThicknessUm)
	r.float("membrane", "radius", &d.Membrane.RadiusMm)

	r.float("gap", "vt", &d.VoltageT)
	r.float("gap", "va", &d.VoltageA)
	r.float("gap", "dt", &d.DistTUm)
	r.float("gap", "da", &d.DistAUm)

	r.float("electrodes", "width", &d.Geometry.WidthUm)
	r.float("electrodes", "spacing", &d.Geometry.SpacingUm)
	r.float("electrodes", "extent", &d.Geometry.ExtentUm)

	r.integer("basis", "modes", &d.Modes)

	r.float("solver", "eps", &d.Eps)
	r.integer("solver", "maxsteps", &d.MaxSteps)
	r.integer("solver", "maxiter", &d.MaxIter)
	r.float("solver", "imagthreshold", &d.ImagThreshold)

	sh := file.Section("shape")
	if sh.HasKey("kind") {
		switch kind := sh.Key("kind").String(); kind {
		case stability.ShapeParabolic, stability.ShapeBessel, stability.ShapeExpansion:
			c.Shape.Kind = kind
		default:
			r.fail("shape", "kind", fmt.Errorf("unknown shape kind %q", kind))
		}
	}
	r.integer("shape", "j", &c.Shape.J)
	r.float("shape", "peak", &c.Shape.PeakUm)
	if sh.HasKey("coeffs") {
		coeffs, err := sh.Key("coeffs").StrictFloat64s(",")
		if err != nil {
			r.fail("shape", "coeffs", err)
		}
		c.Shape.Coeffs = coeffs
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Write writes the configuration as a device file.
func (c *Config) Write(w io.Writer) error {
	file := ini.Empty()
	d := c.Device
	set := func(section, key, value string) {
		file.Section(section).Key(key).SetValue(value)
	}

	set("membrane", "stress", format(d.Membrane.StressMPa))
	set("membrane", "thickness", format(d.Membrane.ThicknessUm))
	set("membrane", "radius", format(d.Membrane.RadiusMm))

	set("gap", "vt", format(d.VoltageT))
	set("gap", "va", format(d.VoltageA))
	set("gap", "dt", format(d.DistTUm))
	set("gap", "da", format(d.DistAUm))

	set("electrodes", "width", format(d.Geometry.WidthUm))
	set("electrodes", "spacing", format(d.Geometry.SpacingUm))
	set("electrodes", "extent", format(d.Geometry.ExtentUm))

	set("basis", "modes", strconv.Itoa(d.Modes))

	set("solver", "eps", format(d.Eps))
	set("solver", "maxsteps", strconv.Itoa(d.MaxSteps))
	set("solver", "maxiter", strconv.Itoa(d.MaxIter))
	set("solver", "imagthreshold", format(d.ImagThreshold))

	kind := c.Shape.Kind
	if kind == "" {
		kind = stability.ShapeParabolic
	}
	set("shape", "kind", kind)
	set("shape", "j", strconv.Itoa(c.Shape.J))
	set("shape", "peak", format(c.Shape.PeakUm))
	if len(c.Shape.Coeffs) > 0 {
		vals := ""
		for i, v := range c.Shape.Coeffs {
			if i > 0 {
				vals += ","
			}
			vals += format(v)
		}
		set("shape", "coeffs", vals)
	}

	_, err := file.WriteTo(w)
	return err
}
