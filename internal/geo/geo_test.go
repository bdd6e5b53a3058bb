package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectionDistance(t *testing.T) {
	// Guadalajara city center
	proj := NewProjection(20.67)

	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{
			name:     "Zero distance",
			lat1:     20.67, lon1: -103.35,
			lat2:     20.67, lon2: -103.35,
			expected: 0,
			delta:    0.001,
		},
		{
			name:     "One km north",
			lat1:     20.67, lon1: -103.35,
			lat2:     20.679, lon2: -103.35,
			expected: 1000,
			delta:    10,
		},
		{
			name:     "One km east",
			lat1:     20.67, lon1: -103.35,
			lat2:     20.67, lon2: -103.3404,
			expected: 1000,
			delta:    10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := proj.Project(tt.lat1, tt.lon1)
			b := proj.Project(tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, Dist(a, b), tt.delta)
		})
	}
}

func TestProjectionMatchesHaversine(t *testing.T) {
	proj := NewProjection(20.67)

	// Across the metro area the planar distance should stay within 1% of
	// the great-circle distance.
	lat1, lon1 := 20.6597, -103.3496 // centro
	lat2, lon2 := 20.7167, -103.4000 // Zapopan

	planar := Dist(proj.Project(lat1, lon1), proj.Project(lat2, lon2))
	sphere := Haversine(lat1, lon1, lat2, lon2)

	assert.InEpsilon(t, sphere, planar, 0.01)
}

func TestHaversine(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{
			name:     "Zero distance",
			lat1:     20.67, lon1: -103.35,
			lat2:     20.67, lon2: -103.35,
			expected: 0,
			delta:    1,
		},
		{
			name:     "Approximately 1km",
			lat1:     20.67, lon1: -103.35,
			lat2:     20.679, lon2: -103.35,
			expected: 1000,
			delta:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, result, tt.delta)
		})
	}
}
