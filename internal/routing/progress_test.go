package routing

import (
	"testing"

	"github.com/rutagdl/ruta_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressFixture() *models.Itinerary {
	return &models.Itinerary{
		Segments: []models.Segment{
			{
				Mode:     models.EdgeWalk,
				From:     models.Place{NodeID: models.OriginNodeID, Lat: 20.0, Lon: -103.0},
				To:       models.Place{NodeID: 1, Lat: 20.0, Lon: -103.0},
				Duration: 100,
			},
			{
				Mode:     models.EdgeTransit,
				From:     models.Place{NodeID: 1, Lat: 20.0, Lon: -103.0},
				To:       models.Place{NodeID: 2, Lat: 21.0, Lon: -103.0},
				Duration: 400,
				Wait:     200,
			},
		},
		TotalTime: 700,
	}
}

func TestPositionAlong(t *testing.T) {
	it := progressFixture()

	t.Run("Before start", func(t *testing.T) {
		lat, _, err := PositionAlong(it, -5)
		require.NoError(t, err)
		assert.Equal(t, 20.0, lat)
	})

	t.Run("During wait stays at boarding stop", func(t *testing.T) {
		lat, _, err := PositionAlong(it, 200) // 100s walk done, 100s into wait
		require.NoError(t, err)
		assert.Equal(t, 20.0, lat)
	})

	t.Run("Halfway through the ride", func(t *testing.T) {
		lat, _, err := PositionAlong(it, 500) // 200s into the 400s ride
		require.NoError(t, err)
		assert.InDelta(t, 20.5, lat, 0.001)
	})

	t.Run("After arrival", func(t *testing.T) {
		lat, _, err := PositionAlong(it, 10000)
		require.NoError(t, err)
		assert.Equal(t, 21.0, lat)
	})
}

func TestPositionAlongEmptyItinerary(t *testing.T) {
	_, _, err := PositionAlong(&models.Itinerary{}, 100)
	assert.Error(t, err)
}

func TestEstimateProgress(t *testing.T) {
	assert.Equal(t, 0.0, EstimateProgress(100, 0))
	assert.Equal(t, 0.0, EstimateProgress(-10, 600))
	assert.Equal(t, 0.5, EstimateProgress(300, 600))
	assert.Equal(t, 1.0, EstimateProgress(900, 600))
}
