package cost

import (
	"testing"

	"github.com/rutagdl/ruta_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTravelTime(t *testing.T) {
	m := NewTransitModel(nil)

	t.Run("Scheduled edge", func(t *testing.T) {
		d, err := m.TravelTime(models.Edge{
			Kind:     models.EdgeTransit,
			Duration: 360,
			RouteID:  "R1",
		})
		require.NoError(t, err)
		assert.Equal(t, 360.0, d)
	})

	t.Run("Missing schedule", func(t *testing.T) {
		_, err := m.TravelTime(models.Edge{
			Kind:    models.EdgeTransit,
			RouteID: "R1",
			ShapeID: "SH1",
		})
		assert.ErrorIs(t, err, ErrMissingSchedule)
	})

	t.Run("Negative duration is missing schedule", func(t *testing.T) {
		_, err := m.TravelTime(models.Edge{
			Kind:     models.EdgeTransit,
			Duration: -10,
		})
		assert.ErrorIs(t, err, ErrMissingSchedule)
	})

	t.Run("Walk edge rejected", func(t *testing.T) {
		_, err := m.TravelTime(models.Edge{
			Kind:     models.EdgeWalk,
			Duration: 100,
		})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMissingSchedule)
	})
}

func TestWaitTime(t *testing.T) {
	routes := map[string]models.RouteInfo{
		"R1": {ID: "R1", MedianHeadway: 600},
		"R2": {ID: "R2", MedianHeadway: 0},
	}
	m := NewTransitModel(routes)

	assert.Equal(t, 600.0, m.WaitTime("R1"))
	assert.Equal(t, DefaultWaitTime, m.WaitTime("R2"))
	assert.Equal(t, DefaultWaitTime, m.WaitTime("unknown"))
}

func TestWaitTimeCustomDefault(t *testing.T) {
	m := NewTransitModelWithDefault(nil, 900)
	assert.Equal(t, 900.0, m.WaitTime("anything"))
}

func TestMedianHeadway(t *testing.T) {
	tests := []struct {
		name     string
		headways []float64
		expected float64
	}{
		{
			name:     "Odd count",
			headways: []float64{300, 900, 600},
			expected: 600,
		},
		{
			name:     "Even count",
			headways: []float64{300, 600, 900, 1200},
			expected: 750,
		},
		{
			name:     "Single observation",
			headways: []float64{420},
			expected: 420,
		},
		{
			name:     "Non-positive observations filtered",
			headways: []float64{0, -60, 600},
			expected: 600,
		},
		{
			name:     "No usable observations",
			headways: []float64{0, -1},
			expected: 0,
		},
		{
			name:     "Empty",
			headways: nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MedianHeadway(tt.headways))
		})
	}
}
