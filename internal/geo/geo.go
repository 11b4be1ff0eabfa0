// Package geo converts between GPS, ECEF-projected local tangent (ENU) and
// track-relative (darboux) coordinate systems.
package geo

import "math"

// WGS 84 parameters.
const (
	// SemiMajorAxis is the WGS 84 ellipsoid semi-major axis in meters.
	SemiMajorAxis = 6378137.0

	// Eccentricity is the WGS 84 first eccentricity.
	Eccentricity = 0.0818191908426215
)

// Origin is the reference point of a local tangent plane.
type Origin struct {
	Longitude float64 // degrees
	Latitude  float64 // degrees
	Altitude  float64 // meters
}

// ToENU converts GPS coordinates to East/North/Up coordinates relative to
// the origin: geodetic → ECEF, then projection of the offset from the
// origin onto the E/N/U unit vectors at the origin.
func ToENU(longitude, latitude, altitude []float64, origin Origin) (east, north, up []float64) {
	e2 := Eccentricity * Eccentricity

	lat0 := radians(origin.Latitude)
	lon0 := radians(origin.Longitude)
	alt0 := origin.Altitude

	// Radius of curvature in the prime vertical at the origin.
	n := SemiMajorAxis / math.Sqrt(1-e2*math.Sin(lat0)*math.Sin(lat0))

	// ECEF coordinates of the origin.
	ox := math.Cos(lon0) * math.Cos(lat0) * (n + alt0)
	oy := math.Sin(lon0) * math.Cos(lat0) * (n + alt0)
	oz := math.Sin(lat0) * ((1-e2)*n + alt0)

	// East, North, Up unit vectors at the origin.
	ex, ey, ez := -math.Sin(lon0), math.Cos(lon0), 0.0
	nx := -math.Cos(lon0) * math.Sin(lat0)
	ny := -math.Sin(lon0) * math.Sin(lat0)
	nz := math.Cos(lat0)
	ux := math.Cos(lon0) * math.Cos(lat0)
	uy := math.Sin(lon0) * math.Cos(lat0)
	uz := math.Sin(lat0)

	east = make([]float64, len(longitude))
	north = make([]float64, len(longitude))
	up = make([]float64, len(longitude))

	for i := range longitude {
		lat := radians(latitude[i])
		lon := radians(longitude[i])
		alt := altitude[i]

		// ECEF coordinates of the point.
		px := math.Cos(lat) * math.Cos(lon) * (n + alt)
		py := math.Cos(lat) * math.Sin(lon) * (n + alt)
		pz := math.Sin(lat) * ((1-e2)*n + alt)

		dx, dy, dz := px-ox, py-oy, pz-oz

		east[i] = dx*ex + dy*ey + dz*ez
		north[i] = dx*nx + dy*ny + dz*nz
		up[i] = dx*ux + dy*uy + dz*uz
	}

	return east, north, up
}

// DarbouxToCartesian converts a lateral offset n from a track reference
// point into Cartesian coordinates, accounting for heading, banking and
// slope at the reference point.
func DarbouxToCartesian(xRef, yRef, zRef, thetaRef, bankRef, slopeRef, n float64) (x, y, z float64) {
	sBank, cBank := math.Sin(bankRef), math.Cos(bankRef)
	sSlope, cSlope := math.Sin(slopeRef), math.Cos(slopeRef)
	sTheta, cTheta := math.Sin(thetaRef), math.Cos(thetaRef)

	x = xRef - n*sTheta*cBank + cTheta*sSlope*sBank
	y = yRef + n*cTheta*cBank + sTheta*sSlope*sBank
	z = zRef + n*cSlope*sBank

	return x, y, z
}

// DarbouxOffsets converts a lateral offset series along a reference line.
// Slices must have equal length; offsets[i] is applied at reference index i.
func DarbouxOffsets(xRef, yRef, zRef, thetaRef, bankRef, slopeRef, offsets []float64) (x, y, z []float64) {
	x = make([]float64, len(xRef))
	y = make([]float64, len(xRef))
	z = make([]float64, len(xRef))

	for i := range xRef {
		x[i], y[i], z[i] = DarbouxToCartesian(
			xRef[i], yRef[i], zRef[i],
			thetaRef[i], bankRef[i], slopeRef[i],
			offsets[i])
	}
	return x, y, z
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
