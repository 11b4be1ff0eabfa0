package align

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/xtxerr/trackside/internal/errors"
)

// FixedGrid generates timestamps at a fixed rate covering [start, end].
// The step is 1/rateHz; the final point lands on end when end is an exact
// multiple of the step away from start (within float tolerance), otherwise
// the grid stops at the last step not past end.
func FixedGrid(start, end, rateHz float64) ([]float64, error) {
	if rateHz <= 0 {
		return nil, errors.NewValidation("rate_hz", "must be positive")
	}
	if end < start {
		return nil, errors.NewValidation("grid range", "end before start")
	}

	step := 1.0 / rateHz
	n := int(math.Floor((end-start)/step+1e-9)) + 1

	grid := make([]float64, n)
	for i := 0; i < n; i++ {
		grid[i] = start + float64(i)*step
	}
	// Snap the last point onto end to keep exact sample points lossless.
	if math.Abs(grid[n-1]-end) < step*1e-9 {
		grid[n-1] = end
	}
	return grid, nil
}

// ValidateGrid checks that an explicit grid is non-empty and strictly
// increasing.
func ValidateGrid(grid []float64) error {
	if len(grid) == 0 {
		return errors.ErrEmptyGrid
	}
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			return errors.Wrapf(errors.ErrGridNotAscending,
				"grid[%d]=%g <= grid[%d]=%g", i, grid[i], i-1, grid[i-1])
		}
	}
	return nil
}

// gridSignature hashes a grid for frame cache keys.
func gridSignature(grid []float64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, t := range grid {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(t))
		h.Write(buf[:])
	}
	return h.Sum64()
}
