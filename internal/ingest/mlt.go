package ingest

import (
	"math"

	"github.com/xtxerr/trackside/internal/geo"
)

// mltRenames maps simulator output columns to canonical channel names.
var mltRenames = map[string]string{
	"xTrj":     "x",
	"yTrj":     "y",
	"zeta":     "s",
	"y__steer": "steering",
	"p__pos":   "throttle",
	"p__neg":   "brake",
	"a__x":     "ax",
	"a__y":     "ay",
	"omega__z": "yaw_rate",
}

// MLT converts simulator exports: the body-frame velocity components u and
// v are combined into the speed channel V, and the trajectory and input
// columns are renamed to their canonical names.
type MLT struct{}

func init() { Register(MLT{}) }

// Name implements Converter.
func (MLT) Name() string { return "mlt" }

// Convert implements Converter.
func (MLT) Convert(tbl *Table) error {
	if err := requireColumns(tbl, "time"); err != nil {
		return err
	}

	if tbl.Has("u") && tbl.Has("v") {
		u, err := tbl.Float("u")
		if err != nil {
			return err
		}
		v, err := tbl.Float("v")
		if err != nil {
			return err
		}

		speed := make([]float64, len(u))
		for i := range u {
			speed[i] = math.Sqrt(u[i]*u[i] + v[i]*v[i])
		}
		if err := tbl.SetFloats("V", speed); err != nil {
			return err
		}
	}

	renameAll(tbl, mltRenames)
	return nil
}

// DeriveENU projects GPS channels (longitude, latitude, elevation) onto a
// local tangent plane at the given origin and stores the result as x, y, z
// columns. Tables without GPS channels are left untouched.
func DeriveENU(tbl *Table, origin geo.Origin) error {
	if !tbl.Has("longitude") || !tbl.Has("latitude") {
		return nil
	}

	lon, err := tbl.Float("longitude")
	if err != nil {
		return err
	}
	lat, err := tbl.Float("latitude")
	if err != nil {
		return err
	}

	alt := make([]float64, len(lon))
	if tbl.Has("elevation") {
		if alt, err = tbl.Float("elevation"); err != nil {
			return err
		}
	}

	east, north, up := geo.ToENU(lon, lat, alt, origin)
	if err := tbl.SetFloats("x", east); err != nil {
		return err
	}
	if err := tbl.SetFloats("y", north); err != nil {
		return err
	}
	return tbl.SetFloats("z", up)
}
