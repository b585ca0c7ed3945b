package opt

import (
	"math"

	"routeplay/internal/model"
)

// MetersPerDegree is the flat-earth scale for one degree of latitude.
const MetersPerDegree = 111000.0

// DistanceMatrix returns integer metre distances between points using a flat-earth
// approximation. Longitude differences are scaled by the cosine of points[0]'s latitude
// (the depot), so the matrix is symmetric with a zero diagonal.
func DistanceMatrix(points []model.Location) [][]int {
	n := len(points)
	m := make([][]int, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	if n == 0 {
		return m
	}
	lngScale := MetersPerDegree * math.Cos(points[0].Lat*math.Pi/180)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dy := (points[i].Lat - points[j].Lat) * MetersPerDegree
			dx := (points[i].Lng - points[j].Lng) * lngScale
			d := int(math.Sqrt(dx*dx + dy*dy))
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}
