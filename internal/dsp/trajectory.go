package dsp

import (
	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/series"
)

// Trajectory holds channels derived from a planar x/y trajectory on a
// shared timestamp grid. Grid points outside the trajectory's coverage
// carry the missing marker.
type Trajectory struct {
	// Heading is the tangent angle atan2(y', x') in radians.
	Heading []float64

	// Curvature is the signed planar curvature in 1/m.
	Curvature []float64

	// AccelX is the longitudinal acceleration estimate dV/dt.
	// Nil when no speed channel was supplied.
	AccelX []float64

	// AccelY is the lateral acceleration estimate -V^2 * curvature.
	// Nil when no speed channel was supplied.
	AccelY []float64
}

// DeriveTrajectory computes heading and curvature from x/y position
// channels, plus acceleration estimates when a speed channel v is supplied
// (v may be nil). cutoffHz > 0 low-pass filters the positions before
// differentiation; raw GPS-derived trajectories are too noisy to
// differentiate twice otherwise. All slices share the times grid;
// derivatives are only taken over the contiguous span where every input is
// present.
func DeriveTrajectory(times, x, y, v []float64, cutoffHz float64) (*Trajectory, error) {
	n := len(times)
	if len(x) != n || len(y) != n || (v != nil && len(v) != n) {
		return nil, errors.Wrapf(errors.ErrWidthMismatch,
			"trajectory inputs over %d grid points", n)
	}

	inputs := [][]float64{x, y}
	if v != nil {
		inputs = append(inputs, v)
	}
	lo, hi := validSpan(inputs)
	if hi-lo+1 < 3 {
		return nil, errors.Wrap(errors.ErrBadValue, "fewer than 3 usable trajectory points")
	}

	xs := append([]float64(nil), x[lo:hi+1]...)
	ys := append([]float64(nil), y[lo:hi+1]...)
	ts := times[lo : hi+1]

	if cutoffHz > 0 {
		var err error
		if xs, err = LowPass(xs, ts, cutoffHz); err != nil {
			return nil, errors.Wrap(err, "filter x")
		}
		if ys, err = LowPass(ys, ts, cutoffHz); err != nil {
			return nil, errors.Wrap(err, "filter y")
		}
	}

	tr := &Trajectory{
		Heading:   missingSlice(n),
		Curvature: missingSlice(n),
	}
	copy(tr.Heading[lo:], EstimateHeading(xs, ys))
	copy(tr.Curvature[lo:], EstimateCurvature(xs, ys))

	if v != nil {
		tr.AccelX = missingSlice(n)
		tr.AccelY = missingSlice(n)

		dv := Gradient(v[lo : hi+1])
		dt := Gradient(ts)
		for i := lo; i <= hi; i++ {
			if dt[i-lo] != 0 {
				tr.AccelX[i] = dv[i-lo] / dt[i-lo]
			}
			tr.AccelY[i] = -v[i] * v[i] * tr.Curvature[i]
		}
	}
	return tr, nil
}

// validSpan returns the first and last grid index at which every input
// slice is non-missing. Returns (0, -1) when no such index exists.
func validSpan(inputs [][]float64) (lo, hi int) {
	if len(inputs) == 0 || len(inputs[0]) == 0 {
		return 0, -1
	}
	n := len(inputs[0])

	allPresent := func(i int) bool {
		for _, in := range inputs {
			if series.IsMissing(in[i]) {
				return false
			}
		}
		return true
	}

	lo, hi = 0, n-1
	for lo < n && !allPresent(lo) {
		lo++
	}
	for hi >= lo && !allPresent(hi) {
		hi--
	}
	return lo, hi
}

func missingSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = series.Missing()
	}
	return out
}
