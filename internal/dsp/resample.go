package dsp

import (
	"math"

	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/series"
)

// ResampleMean resamples an irregular signal to a fixed frequency by
// bucket-averaging: samples falling into each 1/freqHz-wide bucket are
// averaged, and empty interior buckets are filled by linear interpolation
// between the nearest non-empty neighbors. Leading and trailing empty
// buckets stay missing. Bucket edges align to multiples of the step.
func ResampleMean(times, values []float64, freqHz float64) (outTimes, outValues []float64, err error) {
	if freqHz <= 0 {
		return nil, nil, errors.NewValidation("freq_hz", "must be positive")
	}
	if len(times) != len(values) {
		return nil, nil, errors.Wrapf(errors.ErrWidthMismatch,
			"times length %d, values length %d", len(times), len(values))
	}
	if len(times) == 0 {
		return nil, nil, nil
	}

	step := 1.0 / freqHz
	first := int64(math.Floor(times[0] / step))
	last := int64(math.Floor(times[len(times)-1] / step))
	n := int(last-first) + 1

	sums := make([]float64, n)
	counts := make([]int, n)

	for i, t := range times {
		bucket := int(int64(math.Floor(t/step)) - first)
		sums[bucket] += values[i]
		counts[bucket]++
	}

	outTimes = make([]float64, n)
	outValues = make([]float64, n)
	for i := 0; i < n; i++ {
		outTimes[i] = float64(first+int64(i)) * step
		if counts[i] > 0 {
			outValues[i] = sums[i] / float64(counts[i])
		} else {
			outValues[i] = series.Missing()
		}
	}

	interpolateGaps(outTimes, outValues)
	return outTimes, outValues, nil
}

// interpolateGaps fills NaN runs between two known values linearly,
// in place. Edge runs are left missing.
func interpolateGaps(times, values []float64) {
	prev := -1
	for i, v := range values {
		if series.IsMissing(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			t0, t1 := times[prev], times[i]
			v0, v1 := values[prev], values[i]
			for k := prev + 1; k < i; k++ {
				values[k] = v0 + (v1-v0)*(times[k]-t0)/(t1-t0)
			}
		}
		prev = i
	}
}
