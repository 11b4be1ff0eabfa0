package series

import (
	"sort"

	"github.com/xtxerr/trackside/internal/errors"
)

// Column holds one channel's values over a shared timestamp grid.
// Missing grid points carry NaN. Storage is columnar per vector component.
type Column struct {
	width int
	comps [][]float64
}

// NewColumn creates a column from per-component value slices.
// All components must have equal length.
func NewColumn(comps [][]float64) *Column {
	return &Column{width: len(comps), comps: comps}
}

// Width returns the number of vector components.
func (c *Column) Width() int { return c.width }

// Len returns the number of grid points.
func (c *Column) Len() int {
	if c.width == 0 {
		return 0
	}
	return len(c.comps[0])
}

// Component returns the value slice for component j. Read-only.
func (c *Column) Component(j int) []float64 { return c.comps[j] }

// Value returns the value vector at grid index i.
func (c *Column) Value(i int) []float64 {
	v := make([]float64, c.width)
	for j := 0; j < c.width; j++ {
		v[j] = c.comps[j][i]
	}
	return v
}

// Frame is a session resampled onto one shared timestamp grid.
// Invariant: every column has exactly one value per grid point.
// Frames are immutable once built and safe for concurrent readers.
type Frame struct {
	session   string
	sessionID string
	times     []float64
	columns   map[string]*Column
	order     []string
}

// NewFrame creates an empty frame over the given grid.
// The grid slice is owned by the frame after the call.
func NewFrame(session, sessionID string, times []float64) *Frame {
	return &Frame{
		session:   session,
		sessionID: sessionID,
		times:     times,
		columns:   make(map[string]*Column),
	}
}

// AddColumn attaches a channel column to the frame. Intended for the
// aligner during frame construction; frames handed to callers are final.
func (f *Frame) AddColumn(name string, col *Column) error {
	if _, ok := f.columns[name]; ok {
		return errors.Wrapf(errors.ErrChannelExists, "frame column '%s'", name)
	}
	if col.Len() != len(f.times) {
		return errors.Wrapf(errors.ErrWidthMismatch,
			"frame column '%s': %d values for %d grid points", name, col.Len(), len(f.times))
	}
	f.columns[name] = col
	f.order = append(f.order, name)
	sort.Strings(f.order)
	return nil
}

// Session returns the originating session name.
func (f *Frame) Session() string { return f.session }

// SessionID returns the originating session UUID.
func (f *Frame) SessionID() string { return f.sessionID }

// Times returns the shared timestamp grid. Read-only.
func (f *Frame) Times() []float64 { return f.times }

// Len returns the number of grid points.
func (f *Frame) Len() int { return len(f.times) }

// Channels returns channel names in sorted order.
func (f *Frame) Channels() []string { return f.order }

// HasChannel reports whether the frame carries the named channel.
func (f *Frame) HasChannel(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, error) {
	col, ok := f.columns[name]
	if !ok {
		return nil, errors.NewUnknownChannel(name)
	}
	return col, nil
}

// Start returns the first grid timestamp, or NaN for an empty grid.
func (f *Frame) Start() float64 {
	if len(f.times) == 0 {
		return Missing()
	}
	return f.times[0]
}

// End returns the last grid timestamp, or NaN for an empty grid.
func (f *Frame) End() float64 {
	if len(f.times) == 0 {
		return Missing()
	}
	return f.times[len(f.times)-1]
}

// DatasetColumn is a dataset column with provenance.
type DatasetColumn struct {
	*Column

	// Session names the frame that contributed this column.
	Session string
}

// Dataset is the union of one or more frames under per-frame time keys.
// Like frames, datasets are immutable once built.
type Dataset struct {
	times   []float64
	columns map[string]*DatasetColumn
	order   []string
}

// NewDataset creates an empty dataset over the given union grid.
// Intended for the merge layer during dataset construction.
func NewDataset(times []float64) *Dataset {
	return &Dataset{
		times:   times,
		columns: make(map[string]*DatasetColumn),
	}
}

// AddColumn attaches a column contributed by the named session.
func (d *Dataset) AddColumn(name, session string, col *Column) error {
	if _, ok := d.columns[name]; ok {
		return errors.Wrapf(errors.ErrChannelExists, "dataset column '%s'", name)
	}
	if col.Len() != len(d.times) {
		return errors.Wrapf(errors.ErrWidthMismatch,
			"dataset column '%s': %d values for %d grid points", name, col.Len(), len(d.times))
	}
	d.columns[name] = &DatasetColumn{Column: col, Session: session}
	d.order = append(d.order, name)
	sort.Strings(d.order)
	return nil
}

// Times returns the union timestamp grid. Read-only.
func (d *Dataset) Times() []float64 { return d.times }

// Len returns the number of grid points.
func (d *Dataset) Len() int { return len(d.times) }

// Channels returns channel names in sorted order.
func (d *Dataset) Channels() []string { return d.order }

// HasChannel reports whether the dataset carries the named channel.
func (d *Dataset) HasChannel(name string) bool {
	_, ok := d.columns[name]
	return ok
}

// Column returns the named column with provenance.
func (d *Dataset) Column(name string) (*DatasetColumn, error) {
	col, ok := d.columns[name]
	if !ok {
		return nil, errors.NewUnknownChannel(name)
	}
	return col, nil
}

// Start returns the first grid timestamp, or NaN for an empty dataset.
func (d *Dataset) Start() float64 {
	if len(d.times) == 0 {
		return Missing()
	}
	return d.times[0]
}

// End returns the last grid timestamp, or NaN for an empty dataset.
func (d *Dataset) End() float64 {
	if len(d.times) == 0 {
		return Missing()
	}
	return d.times[len(d.times)-1]
}
