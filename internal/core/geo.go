package core

import "math"

// Mean Earth radius in meters.
const earthRadiusMeters = 6371000.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the great-circle distance between two points in meters,
// treating the Earth as a sphere of the mean radius.
func Haversine(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Nearest returns the branch closest to ref by great-circle distance, with
// the distance in meters. Ties resolve to the first branch in input order,
// so the result is deterministic for a fixed input. ok is false when the
// candidate set is empty.
func Nearest(ref Point, branches []Branch) (nearest Branch, meters float64, ok bool) {
	if len(branches) == 0 {
		return Branch{}, 0, false
	}

	nearest = branches[0]
	meters = Haversine(ref, nearest.Location)
	for _, b := range branches[1:] {
		if d := Haversine(ref, b.Location); d < meters {
			nearest = b
			meters = d
		}
	}
	return nearest, meters, true
}
