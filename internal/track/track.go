// Package track loads track description files: a tab-separated table of
// mid-line geometry with a metadata preamble, plus derived 3D margin lines.
package track

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/geo"
)

// Metadata keys recognized in the `#!` preamble.
const (
	metaFinishLat = "FinishLineLatitude"
	metaFinishLon = "FinishLineLongitude"
	metaFinishAlt = "FinishLineAltitude"
	metaX0        = "x0"
	metaY0        = "y0"
	metaTheta0    = "theta0"
)

// Mandatory columns of a track file.
var requiredColumns = []string{
	"abscissa",
	"curvature",
	"dir_mid_line",
	"x_mid_line",
	"y_mid_line",
	"width_no_kerbs_L",
	"width_no_kerbs_R",
}

// Track is a loaded track description. All geometry slices share the same
// length, indexed by curvilinear abscissa.
type Track struct {
	Name string

	// Metadata from the `#!` preamble.
	FinishLine geo.Origin
	X0, Y0     float64
	Theta0     float64

	// Mid-line geometry.
	Abscissa  []float64
	Curvature []float64
	Heading   []float64 // dir_mid_line
	X         []float64
	Y         []float64
	Elevation []float64
	Slope     []float64
	Banking   []float64
	Torsion   []float64
	Upsilon   []float64

	// Half-widths from the mid-line, meters.
	WidthLeft        []float64 // with kerbs
	WidthRight       []float64
	WidthLeftNoKerb  []float64
	WidthRightNoKerb []float64
}

// Len returns the number of abscissa points.
func (t *Track) Len() int { return len(t.Abscissa) }

// Length returns the track length in meters.
func (t *Track) Length() float64 {
	if len(t.Abscissa) == 0 {
		return 0
	}
	return t.Abscissa[len(t.Abscissa)-1]
}

// Margins computes the 3D left and right track margins by offsetting the
// mid-line laterally, accounting for banking and slope. The left margin
// uses +width, the right margin -width.
func (t *Track) Margins() (lx, ly, lz, rx, ry, rz []float64) {
	negRight := make([]float64, len(t.WidthRight))
	for i, w := range t.WidthRight {
		negRight[i] = -w
	}

	lx, ly, lz = geo.DarbouxOffsets(t.X, t.Y, t.Elevation, t.Heading, t.Banking, t.Slope, t.WidthLeft)
	rx, ry, rz = geo.DarbouxOffsets(t.X, t.Y, t.Elevation, t.Heading, t.Banking, t.Slope, negRight)
	return lx, ly, lz, rx, ry, rz
}

// Load reads a track file from disk. The base file name without extension
// becomes the track name.
func Load(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrTrackNotFound, "'%s'", path)
		}
		return nil, errors.Wrapf(err, "open '%s'", path)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "track '%s'", path)
	}

	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	t.Name = base
	return t, nil
}

// Read parses a track description: `#!` lines carry key = value metadata,
// `#` lines are comments, the first remaining line is a tab-separated
// header followed by data rows.
func Read(r io.Reader) (*Track, error) {
	t := &Track{}
	cols := make(map[string][]float64)
	var header []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "#!") {
			if err := t.parseMeta(strings.TrimPrefix(text, "#!")); err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			continue
		}
		if strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if header == nil {
			header = fields
			for _, name := range header {
				cols[name] = nil
			}
			continue
		}

		if len(fields) != len(header) {
			return nil, errors.Wrapf(errors.ErrCorruptRecord,
				"line %d: %d fields for %d columns", line, len(fields), len(header))
		}
		for i, cell := range fields {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrBadValue,
					"line %d column '%s': %q", line, header[i], cell)
			}
			cols[header[i]] = append(cols[header[i]], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read track")
	}

	v := errors.NewValidationErrors()
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			v.AddMissing(name)
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	n := len(cols["abscissa"])

	t.Abscissa = cols["abscissa"]
	t.Curvature = cols["curvature"]
	t.Heading = cols["dir_mid_line"]
	t.X = cols["x_mid_line"]
	t.Y = cols["y_mid_line"]
	t.WidthLeftNoKerb = cols["width_no_kerbs_L"]
	t.WidthRightNoKerb = cols["width_no_kerbs_R"]

	// Optional vertical geometry defaults to a flat track.
	t.Elevation = orZeros(cols["elevation"], n)
	t.Slope = orZeros(cols["slope"], n)
	t.Banking = orZeros(cols["banking"], n)
	t.Torsion = orZeros(cols["torsion"], n)
	t.Upsilon = orZeros(cols["upsilon"], n)

	// Kerb widths default to the no-kerb widths.
	t.WidthLeft = orCopy(cols["width_kerbs_L"], t.WidthLeftNoKerb)
	t.WidthRight = orCopy(cols["width_kerbs_R"], t.WidthRightNoKerb)

	return t, nil
}

// parseMeta parses one `#!` preamble line of the form "key = value".
func (t *Track) parseMeta(s string) error {
	key, val, ok := strings.Cut(s, "=")
	if !ok {
		return errors.Wrapf(errors.ErrBadValue, "metadata %q", s)
	}
	key = strings.TrimSpace(key)
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return errors.Wrapf(errors.ErrBadValue, "metadata '%s': %q", key, val)
	}

	switch key {
	case metaFinishLat:
		t.FinishLine.Latitude = v
	case metaFinishLon:
		t.FinishLine.Longitude = v
	case metaFinishAlt:
		t.FinishLine.Altitude = v
	case metaX0:
		t.X0 = v
	case metaY0:
		t.Y0 = v
	case metaTheta0:
		t.Theta0 = v
	}
	// Unknown keys are ignored for forward compatibility.
	return nil
}

func orZeros(col []float64, n int) []float64 {
	if col != nil {
		return col
	}
	return make([]float64, n)
}

func orCopy(col, fallback []float64) []float64 {
	if col != nil {
		return col
	}
	out := make([]float64, len(fallback))
	copy(out, fallback)
	return out
}
