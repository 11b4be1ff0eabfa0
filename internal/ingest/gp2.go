package ingest

import (
	"strconv"
	"strings"

	"github.com/xtxerr/trackside/internal/errors"
)

// GP2 column names as emitted by the data logger.
const (
	gp2LatColumn  = "CE_ADR_84_Lat"
	gp2LongColumn = "CE_ADR_85_Long"
	gp2AltColumn  = "CE_ADR_87_Alt"
)

// gp2Renames maps raw GP2 logger columns to canonical channel names.
var gp2Renames = map[string]string{
	"LAPTIM":       "time",
	"VVEH":         "V",
	"SteerATWheel": "steering",
	"PEDAL":        "throttle",
	"F_BRAK":       "brake",
	"ACC_X":        "ax",
	"ACC_Y":        "ay",
}

// GP2 converts GP2 logger exports: hex-encoded GPS coordinates in
// degrees-minutes packing are decoded to decimal degrees, the altitude to
// meters, and the driver-input columns to their canonical names.
type GP2 struct{}

func init() { Register(GP2{}) }

// Name implements Converter.
func (GP2) Name() string { return "gp2" }

// Convert implements Converter.
func (GP2) Convert(tbl *Table) error {
	if err := requireColumns(tbl, "LAPTIM"); err != nil {
		return err
	}

	if tbl.Has(gp2LatColumn) {
		lat, err := decodeGPSColumn(tbl, gp2LatColumn)
		if err != nil {
			return err
		}
		tbl.Drop(gp2LatColumn)
		if err := tbl.SetFloats("latitude", lat); err != nil {
			return err
		}
	}
	if tbl.Has(gp2LongColumn) {
		lon, err := decodeGPSColumn(tbl, gp2LongColumn)
		if err != nil {
			return err
		}
		tbl.Drop(gp2LongColumn)
		if err := tbl.SetFloats("longitude", lon); err != nil {
			return err
		}
	}
	if tbl.Has(gp2AltColumn) {
		alt, err := decodeAltColumn(tbl, gp2AltColumn)
		if err != nil {
			return err
		}
		tbl.Drop(gp2AltColumn)
		if err := tbl.SetFloats("elevation", alt); err != nil {
			return err
		}
	}

	renameAll(tbl, gp2Renames)
	return nil
}

// decodeGPSColumn decodes a hex-packed degrees-minutes GPS column to
// decimal degrees. The raw cell is a hex number with one trailing status
// character; its decimal form, zero-padded to ten digits, packs three
// degree digits followed by minutes scaled by 1e5.
func decodeGPSColumn(tbl *Table, name string) ([]float64, error) {
	cells, err := tbl.Raw(name)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(cells))
	for i, cell := range cells {
		v, err := parseGP2Hex(cell)
		if err != nil {
			return nil, errors.Wrapf(err, "column '%s' row %d", name, i)
		}
		deg := float64(v / 1e7)
		min := float64(v%1e7) / 1e5
		out[i] = deg + min/60
	}
	return out, nil
}

// decodeAltColumn decodes a hex altitude column to meters (centimeter
// resolution in the raw value).
func decodeAltColumn(tbl *Table, name string) ([]float64, error) {
	cells, err := tbl.Raw(name)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(cells))
	for i, cell := range cells {
		v, err := parseGP2Hex(cell)
		if err != nil {
			return nil, errors.Wrapf(err, "column '%s' row %d", name, i)
		}
		out[i] = float64(v) / 100
	}
	return out, nil
}

// parseGP2Hex parses a GP2 hex cell, dropping the trailing status character.
func parseGP2Hex(cell string) (int64, error) {
	s := strings.TrimSpace(cell)
	if len(s) < 2 {
		return 0, errors.Wrapf(errors.ErrBadValue, "%q", cell)
	}
	v, err := strconv.ParseInt(s[:len(s)-1], 16, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrBadValue, "%q", cell)
	}
	return v, nil
}
