// Package merge combines aligned frames from multiple sessions into one
// immutable dataset under per-frame time keys (absolute timestamps or an
// explicit offset), unioning channels over the union of timestamps.
package merge

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/logging"
	"github.com/xtxerr/trackside/internal/series"
)

// Input pairs a frame with its merge key.
type Input struct {
	Frame *series.Frame

	// Offset is added to every timestamp of the frame before merging.
	// Zero means absolute time.
	Offset float64

	// Prefix disambiguates colliding channel names. When non-empty, every
	// channel the frame contributes is renamed Prefix + name.
	Prefix string
}

// Merge combines aligned frames into one dataset. Two inputs contributing
// the same output channel name over overlapping time coverage fail with
// ErrChannelCollision unless a rename prefix disambiguates them. Channels
// are unioned over the union of all (offset-adjusted) timestamps, with the
// missing marker wherever a frame does not cover a stamp.
func Merge(ctx context.Context, inputs []Input) (*series.Dataset, error) {
	if len(inputs) == 0 {
		return nil, errors.NewValidation("merge inputs", "at least one frame required")
	}
	for _, in := range inputs {
		if in.Frame == nil || in.Frame.Len() == 0 {
			return nil, errors.Wrap(errors.ErrEmptyGrid, "merge input frame")
		}
	}

	if err := checkCollisions(inputs); err != nil {
		return nil, err
	}

	union := unionTimes(inputs)

	// Per-input index of each adjusted timestamp into the union grid.
	// Computed once, shared by all of the input's channel tasks.
	indexes := make([][]int, len(inputs))
	for i, in := range inputs {
		idx := make([]int, in.Frame.Len())
		for k, t := range in.Frame.Times() {
			idx[k] = series.SearchTime(union, t+in.Offset)
		}
		indexes[i] = idx
	}

	// Flat task list: one output slot per (input, channel).
	type placed struct {
		name    string
		session string
		col     *series.Column
	}

	var tasks []placed
	for _, in := range inputs {
		for _, name := range in.Frame.Channels() {
			tasks = append(tasks, placed{
				name:    in.Prefix + name,
				session: in.Frame.Session(),
			})
		}
	}

	// One task per contributed channel, each writing its own output slot.
	g, ctx := errgroup.WithContext(ctx)
	slot := 0
	for i, in := range inputs {
		for _, name := range in.Frame.Channels() {
			k := slot
			slot++
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				col, err := in.Frame.Column(name)
				if err != nil {
					return err
				}
				tasks[k].col = spread(col, indexes[i], len(union))
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := series.NewDataset(union)
	for _, t := range tasks {
		if err := ds.AddColumn(t.name, t.session, t.col); err != nil {
			return nil, err
		}
	}

	logging.Component("merger").Debug("frames merged",
		"frames", len(inputs), "channels", len(tasks), "points", len(union))
	return ds, nil
}

// checkCollisions fails when two inputs contribute the same output channel
// name over overlapping (offset-adjusted) time coverage.
func checkCollisions(inputs []Input) error {
	type span struct {
		start, end float64
	}
	seen := make(map[string][]span)

	for _, in := range inputs {
		start := in.Frame.Start() + in.Offset
		end := in.Frame.End() + in.Offset

		for _, name := range in.Frame.Channels() {
			out := in.Prefix + name
			for _, sp := range seen[out] {
				if start <= sp.end && sp.start <= end {
					lo, hi := start, end
					if sp.start > lo {
						lo = sp.start
					}
					if sp.end < hi {
						hi = sp.end
					}
					return errors.NewCollision(out, lo, hi)
				}
			}
			seen[out] = append(seen[out], span{start: start, end: end})
		}
	}
	return nil
}

// unionTimes builds the sorted, deduplicated union of all adjusted grids.
func unionTimes(inputs []Input) []float64 {
	n := 0
	for _, in := range inputs {
		n += in.Frame.Len()
	}

	all := make([]float64, 0, n)
	for _, in := range inputs {
		for _, t := range in.Frame.Times() {
			all = append(all, t+in.Offset)
		}
	}
	sort.Float64s(all)

	union := all[:0]
	for i, t := range all {
		if i == 0 || t != union[len(union)-1] {
			union = append(union, t)
		}
	}
	return union
}

// spread scatters a frame column onto the union grid, filling uncovered
// stamps with the missing marker. idx maps the column's own grid positions
// into the union grid.
func spread(col *series.Column, idx []int, unionLen int) *series.Column {
	comps := make([][]float64, col.Width())
	for j := range comps {
		out := make([]float64, unionLen)
		for i := range out {
			out[i] = series.Missing()
		}
		src := col.Component(j)
		for k, pos := range idx {
			out[pos] = src[k]
		}
		comps[j] = out
	}
	return series.NewColumn(comps)
}
