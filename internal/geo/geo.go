package geo

import "math"

const earthRadius = 6371000 // meters

// Point is a position in a planar metric CRS (meters).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projection maps WGS84 coordinates onto a local equirectangular plane.
// Distances computed between projected points are accurate to well under 1%
// across a metropolitan area when the reference latitude is chosen inside it.
type Projection struct {
	lonScale float64
}

// NewProjection creates a projection centered on the given reference latitude.
func NewProjection(refLat float64) Projection {
	return Projection{lonScale: math.Cos(refLat * math.Pi / 180)}
}

// Project converts lat/lon degrees into planar meters.
func (p Projection) Project(lat, lon float64) Point {
	return Point{
		X: earthRadius * lon * math.Pi / 180 * p.lonScale,
		Y: earthRadius * lat * math.Pi / 180,
	}
}

// Dist returns the Euclidean distance between two projected points in meters.
func Dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Haversine calculates the distance between two coordinates in meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
