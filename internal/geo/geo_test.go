package geo

import (
	"math"
	"testing"
)

func TestToENUOrigin(t *testing.T) {
	origin := Origin{Longitude: 9.28, Latitude: 45.62, Altitude: 162}

	east, north, up := ToENU(
		[]float64{origin.Longitude},
		[]float64{origin.Latitude},
		[]float64{origin.Altitude},
		origin)

	if math.Abs(east[0]) > 1e-6 || math.Abs(north[0]) > 1e-6 || math.Abs(up[0]) > 1e-6 {
		t.Errorf("origin must map to (0,0,0), got (%g, %g, %g)", east[0], north[0], up[0])
	}
}

func TestToENUDirections(t *testing.T) {
	origin := Origin{Longitude: 9.0, Latitude: 45.0, Altitude: 0}

	// A point slightly north of the origin.
	_, north, _ := ToENU([]float64{9.0}, []float64{45.001}, []float64{0}, origin)
	if north[0] <= 0 {
		t.Errorf("northward point must have positive north, got %g", north[0])
	}

	// A point slightly east of the origin.
	east, _, _ := ToENU([]float64{9.001}, []float64{45.0}, []float64{0}, origin)
	if east[0] <= 0 {
		t.Errorf("eastward point must have positive east, got %g", east[0])
	}

	// A point above the origin.
	_, _, up := ToENU([]float64{9.0}, []float64{45.0}, []float64{100}, origin)
	if math.Abs(up[0]-100) > 0.01 {
		t.Errorf("altitude 100 must map to up ~100, got %g", up[0])
	}
}

func TestToENUDistanceScale(t *testing.T) {
	origin := Origin{Longitude: 9.0, Latitude: 45.0, Altitude: 0}

	// One degree of latitude is roughly 111 km.
	_, north, _ := ToENU([]float64{9.0}, []float64{46.0}, []float64{0}, origin)
	if north[0] < 110e3 || north[0] > 112e3 {
		t.Errorf("one degree of latitude: got %g m, want ~111 km", north[0])
	}
}

func TestDarbouxFlat(t *testing.T) {
	// Flat track heading along +x: a lateral offset goes straight to +y.
	x, y, z := DarbouxToCartesian(10, 20, 5, 0, 0, 0, 3)
	if x != 10 || y != 23 || z != 5 {
		t.Errorf("flat offset: got (%g, %g, %g), want (10, 23, 5)", x, y, z)
	}
}

func TestDarbouxBanked(t *testing.T) {
	// Fully banked (90 degrees): the lateral offset becomes vertical.
	x, y, z := DarbouxToCartesian(0, 0, 0, 0, math.Pi/2, 0, 2)
	if math.Abs(x) > 1e-12 || math.Abs(y) > 1e-9 {
		t.Errorf("banked offset must stay at the reference point in the plane, got (%g, %g)", x, y)
	}
	if math.Abs(z-2) > 1e-12 {
		t.Errorf("banked offset z: got %g, want 2", z)
	}
}

func TestDarbouxHeadingRotation(t *testing.T) {
	// Heading along +y: a lateral offset points to -x.
	x, y, _ := DarbouxToCartesian(0, 0, 0, math.Pi/2, 0, 0, 1)
	if math.Abs(x-(-1)) > 1e-12 || math.Abs(y) > 1e-12 {
		t.Errorf("rotated offset: got (%g, %g), want (-1, 0)", x, y)
	}
}

func TestDarbouxOffsets(t *testing.T) {
	xRef := []float64{0, 1}
	yRef := []float64{0, 0}
	zRef := []float64{0, 0}
	theta := []float64{0, 0}
	bank := []float64{0, 0}
	slope := []float64{0, 0}
	offsets := []float64{2, -2}

	x, y, z := DarbouxOffsets(xRef, yRef, zRef, theta, bank, slope, offsets)
	if y[0] != 2 || y[1] != -2 {
		t.Errorf("offsets: got y=%v, want [2 -2]", y)
	}
	if x[0] != 0 || x[1] != 1 || z[0] != 0 || z[1] != 0 {
		t.Errorf("reference line displaced: x=%v z=%v", x, z)
	}
}
