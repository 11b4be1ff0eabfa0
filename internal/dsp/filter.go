// Package dsp implements the signal-processing utilities used on telemetry
// channels: fixed-frequency resampling, moving average, zero-phase
// Butterworth low-pass filtering, and gradient-based estimators for heading
// and curvature.
package dsp

import (
	"math"
	"math/cmplx"

	"github.com/xtxerr/trackside/internal/errors"
)

// MovingAverage computes a centered moving average ("same" mode): the
// output has the input's length, with zero-padded edges.
func MovingAverage(data []float64, windowSize int) []float64 {
	n := len(data)
	if windowSize <= 1 || n == 0 {
		out := make([]float64, n)
		copy(out, data)
		return out
	}

	k := 1.0 / float64(windowSize)
	shift := (windowSize - 1) / 2

	out := make([]float64, n)
	for i := range out {
		// Full-convolution index of this output sample.
		fi := i + shift
		var sum float64
		lo := fi - windowSize + 1
		if lo < 0 {
			lo = 0
		}
		hi := fi
		if hi > n-1 {
			hi = n - 1
		}
		for j := lo; j <= hi; j++ {
			sum += data[j]
		}
		out[i] = sum * k
	}
	return out
}

// Butterworth designs a digital low-pass Butterworth filter of the given
// order via the bilinear transform. cutoff is the normalized cutoff
// frequency (cutoff / nyquist), in (0, 1). Returns the transfer function
// numerator b and denominator a.
func Butterworth(order int, cutoff float64) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, errors.NewValidation("filter order", "must be >= 1")
	}
	if cutoff <= 0 || cutoff >= 1 {
		return nil, nil, errors.NewValidation("cutoff", "normalized cutoff must be in (0, 1)")
	}

	// Analog prototype poles on the unit circle, left half-plane.
	poles := make([]complex128, order)
	for k := 0; k < order; k++ {
		theta := math.Pi*float64(2*k+1)/float64(2*order) + math.Pi/2
		poles[k] = cmplx.Exp(complex(0, theta))
	}

	// Pre-warp the cutoff and scale the prototype.
	const fs = 2.0
	warped := 2 * fs * math.Tan(math.Pi*cutoff/fs)

	gain := math.Pow(warped, float64(order))
	for k := range poles {
		poles[k] *= complex(warped, 0)
	}

	// Bilinear transform: poles map to (2fs+p)/(2fs-p), zeros to -1.
	zPoles := make([]complex128, order)
	prod := complex(1, 0)
	for k, p := range poles {
		zPoles[k] = (complex(2*fs, 0) + p) / (complex(2*fs, 0) - p)
		prod *= complex(2*fs, 0) - p
	}
	gainZ := gain / real(prod)

	zZeros := make([]complex128, order)
	for k := range zZeros {
		zZeros[k] = complex(-1, 0)
	}

	b = realPoly(zZeros)
	for i := range b {
		b[i] *= gainZ
	}
	a = realPoly(zPoles)

	return b, a, nil
}

// realPoly expands a polynomial from its roots and returns the real
// coefficients (roots come in conjugate pairs).
func realPoly(roots []complex128) []float64 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}

	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = real(c)
	}
	return out
}

// lfilter applies the IIR filter in transposed direct form II with the
// given initial state (len(zi) == len(a)-1, may be nil for zero state).
func lfilter(b, a, x, zi []float64) []float64 {
	n := len(a) - 1
	z := make([]float64, n)
	copy(z, zi)

	out := make([]float64, len(x))
	for i, xi := range x {
		yi := b[0]*xi + z[0]
		for j := 0; j < n-1; j++ {
			z[j] = b[j+1]*xi + z[j+1] - a[j+1]*yi
		}
		z[n-1] = b[n]*xi - a[n]*yi
		out[i] = yi
	}
	return out
}

// lfilterZI computes the initial filter state matching a unit step input,
// so that filtering a constant signal produces no startup transient.
func lfilterZI(b, a []float64) []float64 {
	n := len(a) - 1

	// Solve (I - A^T) zi = B with
	//   A[0][j] = -a[j+1], A[i][i-1] = 1 (companion form)
	//   B[j] = b[j+1] - a[j+1]*b[0]
	m := make([][]float64, n)
	rhs := make([]float64, n)
	for i := 0; i < n; i++ {
		m[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			var at float64
			if j == 0 {
				at = -a[i+1]
			} else if i == j-1 {
				at = 1
			}
			if i == j {
				m[i][j] = 1 - at
			} else {
				m[i][j] = -at
			}
		}
		rhs[i] = b[i+1] - a[i+1]*b[0]
	}

	return solve(m, rhs)
}

// solve performs Gaussian elimination with partial pivoting on a small
// dense system.
func solve(m [][]float64, rhs []float64) []float64 {
	n := len(rhs)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		m[col], m[pivot] = m[pivot], m[col]
		rhs[col], rhs[pivot] = rhs[pivot], rhs[col]

		if m[col][col] == 0 {
			continue
		}
		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c < n; c++ {
				m[r][c] -= f * m[col][c]
			}
			rhs[r] -= f * rhs[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := rhs[r]
		for c := r + 1; c < n; c++ {
			sum -= m[r][c] * x[c]
		}
		if m[r][r] != 0 {
			x[r] = sum / m[r][r]
		}
	}
	return x
}

// FiltFilt applies the filter forward and backward for zero phase
// distortion, with odd-reflection edge padding.
func FiltFilt(b, a, data []float64) ([]float64, error) {
	padlen := 3 * maxInt(len(a), len(b))
	if len(data) <= padlen {
		return nil, errors.NewValidation("data", "too short for the filter's edge padding")
	}

	ext := oddExt(data, padlen)

	zi := lfilterZI(b, a)
	scaled := make([]float64, len(zi))

	// Forward pass.
	for i, z := range zi {
		scaled[i] = z * ext[0]
	}
	y := lfilter(b, a, ext, scaled)

	// Backward pass.
	reverse(y)
	for i, z := range zi {
		scaled[i] = z * y[0]
	}
	y = lfilter(b, a, y, scaled)
	reverse(y)

	return y[padlen : len(y)-padlen], nil
}

// LowPass applies an order-4 Butterworth low-pass at cutoffHz using the
// mean sample interval of time as the sampling rate, forward-backward for
// zero phase.
func LowPass(data, time []float64, cutoffHz float64) ([]float64, error) {
	return LowPassOrder(data, time, cutoffHz, 4)
}

// LowPassOrder is LowPass with an explicit filter order.
func LowPassOrder(data, time []float64, cutoffHz float64, order int) ([]float64, error) {
	if len(time) < 2 {
		return nil, errors.NewValidation("time", "need at least two samples")
	}
	if len(data) != len(time) {
		return nil, errors.Wrapf(errors.ErrWidthMismatch,
			"data length %d, time length %d", len(data), len(time))
	}

	// Sampling frequency from the mean interval.
	fs := float64(len(time)-1) / (time[len(time)-1] - time[0])
	nyquist := 0.5 * fs

	b, a, err := Butterworth(order, cutoffHz/nyquist)
	if err != nil {
		return nil, err
	}
	return FiltFilt(b, a, data)
}

// oddExt extends data with odd reflection of length n on both ends.
func oddExt(data []float64, n int) []float64 {
	out := make([]float64, 0, len(data)+2*n)
	for i := n; i >= 1; i-- {
		out = append(out, 2*data[0]-data[i])
	}
	out = append(out, data...)
	last := len(data) - 1
	for i := 1; i <= n; i++ {
		out = append(out, 2*data[last]-data[last-i])
	}
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
