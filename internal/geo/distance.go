// Package geo provides great-circle distance and location key helpers for
// places search and cache lookup.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKM is the mean Earth radius used by Distance.
const EarthRadiusKM = 6371.0

// Distance returns the haversine great-circle distance in kilometers.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Clamp against float drift so antipodal points never produce NaN.
	a = math.Min(1, math.Max(0, a))
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Box is a latitude/longitude bounding box in decimal degrees. A box that
// crosses the antimeridian has MinLon > MaxLon.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundingBox returns a box that contains every point within radiusKM of
// (lat, lon). It over-covers; callers filter candidates with Distance.
func BoundingBox(lat, lon, radiusKM float64) Box {
	angular := radiusKM / EarthRadiusKM
	dLat := angular * 180 / math.Pi
	box := Box{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLon: -180,
		MaxLon: 180,
	}
	x := math.Sin(angular) / math.Cos(toRad(lat))
	if x < 0 || x >= 1 {
		return box
	}
	dLon := math.Asin(x) * 180 / math.Pi
	box.MinLon = wrapLon(lon - dLon)
	box.MaxLon = wrapLon(lon + dLon)
	return box
}

// LonRanges splits the box's longitude span into one or two ascending
// ranges. The second range repeats the first unless the box wraps.
func (b Box) LonRanges() (west, east [2]float64) {
	if b.MinLon <= b.MaxLon {
		r := [2]float64{b.MinLon, b.MaxLon}
		return r, r
	}
	return [2]float64{b.MinLon, 180}, [2]float64{-180, b.MaxLon}
}

func wrapLon(lon float64) float64 {
	if lon > 180 {
		return lon - 360
	}
	if lon < -180 {
		return lon + 360
	}
	return lon
}

// CellKey rounds coordinates to three decimals (~110 m) and returns the
// stable location key stored alongside coordinate-addressed cache rows.
func CellKey(lat, lon float64) string {
	return fmt.Sprintf("geo:%.3f,%.3f", roundTo(lat, 3), roundTo(lon, 3))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // avoid "-0.000"
	}
	return r
}
