package utils

import "math"

const earthRadiusKm = 6371

// HaversineDistance returns the great-circle distance in kilometres.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// IsLocationValid checks that the coordinates lie on the globe.
func IsLocationValid(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceBands are the upper bounds, in km, of the distance histogram
// buckets. Anything beyond the last bound falls in a final open bucket.
var DistanceBands = []float64{1, 2, 5, 10}

// DistanceBucket returns the histogram bucket index for km.
func DistanceBucket(km float64) int {
	for i, bound := range DistanceBands {
		if km < bound {
			return i
		}
	}
	return len(DistanceBands)
}
