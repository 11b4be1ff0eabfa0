package ingest

import (
	"strconv"
	"strings"

	"github.com/xtxerr/trackside/internal/errors"
)

// Table is a parsed telemetry file: named columns of raw string cells with
// lazily parsed numeric views. Converters operate on tables before the
// numeric columns are ingested into a session.
type Table struct {
	names []string
	raw   map[string][]string

	// Parsed numeric columns override raw cells.
	floats map[string][]float64

	decimalComma bool
	rows         int
}

// NewTable creates an empty table.
func NewTable(decimalComma bool) *Table {
	return &Table{
		raw:          make(map[string][]string),
		floats:       make(map[string][]float64),
		decimalComma: decimalComma,
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Columns returns the column names in file order.
func (t *Table) Columns() []string { return t.names }

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	if _, ok := t.raw[name]; ok {
		return true
	}
	_, ok := t.floats[name]
	return ok
}

// Raw returns the raw string cells of a column. Fails for columns that only
// exist as derived numeric data.
func (t *Table) Raw(name string) ([]string, error) {
	cells, ok := t.raw[name]
	if !ok {
		return nil, errors.NewUnknownChannel(name)
	}
	return cells, nil
}

// Float returns the numeric view of a column, parsing raw cells on first
// access. Honors the decimal-comma option.
func (t *Table) Float(name string) ([]float64, error) {
	if vals, ok := t.floats[name]; ok {
		return vals, nil
	}

	cells, ok := t.raw[name]
	if !ok {
		return nil, errors.NewUnknownChannel(name)
	}

	vals := make([]float64, len(cells))
	for i, cell := range cells {
		v, err := t.parseFloat(cell)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrBadValue,
				"column '%s' row %d: %q", name, i, cell)
		}
		vals[i] = v
	}

	t.floats[name] = vals
	return vals, nil
}

// SetFloats replaces or creates a numeric column.
func (t *Table) SetFloats(name string, vals []float64) error {
	if len(vals) != t.rows && t.rows > 0 {
		return errors.Wrapf(errors.ErrWidthMismatch,
			"column '%s': %d values for %d rows", name, len(vals), t.rows)
	}
	if !t.Has(name) {
		t.names = append(t.names, name)
	}
	t.floats[name] = vals
	delete(t.raw, name)
	return nil
}

// Rename renames a column, overwriting any existing column with the new
// name. Missing source columns are ignored so converters can share rename
// maps across file variants.
func (t *Table) Rename(from, to string) {
	if !t.Has(from) || from == to {
		return
	}

	if cells, ok := t.raw[from]; ok {
		t.raw[to] = cells
		delete(t.raw, from)
	}
	if vals, ok := t.floats[from]; ok {
		t.floats[to] = vals
		delete(t.floats, from)
	}

	for i, n := range t.names {
		if n == to {
			t.names = append(t.names[:i], t.names[i+1:]...)
			break
		}
	}
	for i, n := range t.names {
		if n == from {
			t.names[i] = to
			break
		}
	}
}

// Drop removes a column.
func (t *Table) Drop(name string) {
	delete(t.raw, name)
	delete(t.floats, name)
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i], t.names[i+1:]...)
			return
		}
	}
}

// addRow appends one parsed row; used by the reader.
func (t *Table) addRow(cells []string) {
	for i, name := range t.names {
		if i < len(cells) {
			t.raw[name] = append(t.raw[name], cells[i])
		} else {
			t.raw[name] = append(t.raw[name], "")
		}
	}
	t.rows++
}

// setHeader sets the column names; used by the reader.
func (t *Table) setHeader(names []string) {
	t.names = names
	for _, name := range names {
		t.raw[name] = nil
	}
}

func (t *Table) parseFloat(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if t.decimalComma {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}
