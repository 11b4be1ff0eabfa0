// Package query implements the query/export layer: window-and-channel
// slicing of immutable datasets into ordered rows, CSV export, and ad-hoc
// SQL over the Parquet archive.
package query

import (
	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/series"
)

// Row is one timestamped record of the slice result. Vector channels carry
// their full value vector; missing values are NaN.
type Row struct {
	Time   float64
	Values map[string][]float64
}

// Slice returns the dataset rows inside [t0, t1] restricted to the requested
// channels (nil or empty means all channels). Timestamps strictly increase
// and the operation is side-effect free, so identical queries yield
// identical results. Fails with ErrEmptyResult when the window does not
// intersect the dataset range, and ErrUnknownChannel when a requested
// channel is absent from every contributing frame.
func Slice(ds *series.Dataset, t0, t1 float64, channels []string) ([]Row, error) {
	if t1 < t0 {
		return nil, errors.NewValidation("window", "t1 before t0")
	}
	if ds.Len() == 0 {
		return nil, errors.ErrEmptyResult
	}
	if t1 < ds.Start() || t0 > ds.End() {
		return nil, errors.Wrapf(errors.ErrEmptyResult,
			"window [%g, %g] vs dataset [%g, %g]", t0, t1, ds.Start(), ds.End())
	}

	if len(channels) == 0 {
		channels = ds.Channels()
	}

	cols := make([]*series.DatasetColumn, len(channels))
	for i, name := range channels {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	times := ds.Times()
	lo := series.SearchTime(times, t0)
	hi := series.SearchTime(times, t1)
	if hi < len(times) && times[hi] == t1 {
		hi++
	}
	if lo >= hi {
		return nil, errors.Wrapf(errors.ErrEmptyResult,
			"no grid points in window [%g, %g]", t0, t1)
	}

	rows := make([]Row, 0, hi-lo)
	for i := lo; i < hi; i++ {
		values := make(map[string][]float64, len(channels))
		for k, name := range channels {
			values[name] = cols[k].Value(i)
		}
		rows = append(rows, Row{Time: times[i], Values: values})
	}
	return rows, nil
}

// SliceFrame is the single-session variant: it slices an aligned frame
// without going through a merge.
func SliceFrame(f *series.Frame, t0, t1 float64, channels []string) ([]Row, error) {
	ds := series.NewDataset(f.Times())
	for _, name := range f.Channels() {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if err := ds.AddColumn(name, f.Session(), col); err != nil {
			return nil, err
		}
	}
	return Slice(ds, t0, t1, channels)
}
