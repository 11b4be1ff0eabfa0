package dsp

import "math"

// Gradient computes the numerical gradient with central differences for
// interior points and one-sided differences at the edges.
func Gradient(x []float64) []float64 {
	n := len(x)
	g := make([]float64, n)
	if n < 2 {
		return g
	}

	g[0] = x[1] - x[0]
	g[n-1] = x[n-1] - x[n-2]
	for i := 1; i < n-1; i++ {
		g[i] = (x[i+1] - x[i-1]) / 2
	}
	return g
}

// EstimateHeading estimates the tangent angle of a planar curve:
// atan2(y', x') with gradient-based derivatives.
func EstimateHeading(x, y []float64) []float64 {
	dx := Gradient(x)
	dy := Gradient(y)

	theta := make([]float64, len(x))
	for i := range theta {
		theta[i] = math.Atan2(dy[i], dx[i])
	}
	return theta
}

// EstimateCurvature estimates the signed curvature of a planar curve,
// (dx*ddy - dy*ddx) / (dx^2 + dy^2)^(3/2), with gradient-based derivatives.
func EstimateCurvature(x, y []float64) []float64 {
	dx := Gradient(x)
	dy := Gradient(y)
	ddx := Gradient(dx)
	ddy := Gradient(dy)

	k := make([]float64, len(x))
	for i := range k {
		denom := math.Pow(dx[i]*dx[i]+dy[i]*dy[i], 1.5)
		if denom == 0 {
			k[i] = 0
			continue
		}
		k[i] = (dx[i]*ddy[i] - dy[i]*ddx[i]) / denom
	}
	return k
}
