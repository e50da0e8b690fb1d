// Package geo holds the angle math used to turn a magnetometer vector into a
// bearing toward magnetic north.
//
// Bearings are signed degrees normalized to [-180, 180).
package geo

import (
	"math"

	"github.com/golang/geo/s1"
)

// Point2D is a planar point. When used with Bearing, X is longitude and Y is
// latitude, both in degrees.
type Point2D struct {
	X float64
	Y float64
}

// BearingNorth returns the angle from the point's axis to north, in degrees.
// This is atan2(x, y) and is total: the origin yields 0. The result lies in
// [-180, 180]; the conversion is clamped so rounding cannot step past the seam.
func (p Point2D) BearingNorth() float64 {
	deg := s1.Angle(math.Atan2(p.X, p.Y)).Degrees()
	return math.Max(-180, math.Min(180, deg))
}

// Bearing returns the initial great-circle bearing from p to q in degrees.
func (p Point2D) Bearing(q Point2D) float64 {
	lngA := degrees(p.X)
	latA := degrees(p.Y)
	lngB := degrees(q.X)
	latB := degrees(q.Y)
	dLng := lngB - lngA

	s := math.Cos(latB) * math.Sin(dLng)
	c := math.Cos(latA)*math.Sin(latB) - math.Sin(latA)*math.Cos(latB)*math.Cos(dLng)
	return s1.Angle(math.Atan2(s, c)).Degrees()
}

// BearingNorth converts a raw magnetometer sample into the platform bearing.
//
// The sensor is mounted so that its X axis feeds the first atan2 argument and
// the result is mirrored; both are properties of this assembly and must not be
// "corrected". Only x and y participate.
func BearingNorth(x, y int32) float64 {
	b := -Point2D{X: float64(x), Y: float64(y)}.BearingNorth()
	return Normalize(b)
}

// Normalize folds an angle in degrees into [-180, 180).
func Normalize(deg float64) float64 {
	if deg >= -180 && deg < 180 {
		return deg
	}
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}

func degrees(d float64) float64 {
	return (s1.Angle(d) * s1.Degree).Radians()
}
