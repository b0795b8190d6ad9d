// Package geo provides great-circle distance math for geofence checks.
package geo

import "math"

// earthRadiusMeters matches the WGS84 mean radius used by common map clients.
const earthRadiusMeters = 6371000

// Distance returns the great-circle distance in meters between two
// coordinates, computed with the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	const rad = math.Pi / 180

	phi1 := lat1 * rad
	phi2 := lat2 * rad
	dPhi := (lat2 - lat1) * rad
	dLambda := (lng2 - lng1) * rad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Within reports whether the distance between the two coordinates is strictly
// below radius meters. The boundary itself does not count as inside.
func Within(lat1, lng1, lat2, lng2, radius float64) bool {
	return Distance(lat1, lng1, lat2, lng2) < radius
}
