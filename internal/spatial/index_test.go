package spatial

import (
	"testing"

	"github.com/rutagdl/ruta_core/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryAscendingByDistance(t *testing.T) {
	items := []Item{
		{ID: 1, Point: geo.Point{X: 0, Y: 100}},
		{ID: 2, Point: geo.Point{X: 0, Y: 400}},
		{ID: 3, Point: geo.Point{X: 0, Y: 50}},
		{ID: 4, Point: geo.Point{X: 300, Y: 0}},
	}
	ix := NewIndex(items, DefaultCellSize)

	results := ix.Query(geo.Point{X: 0, Y: 0}, 500)
	require.Len(t, results, 4)

	assert.Equal(t, int64(3), results[0].ID)
	assert.Equal(t, int64(1), results[1].ID)
	assert.Equal(t, int64(4), results[2].ID)
	assert.Equal(t, int64(2), results[3].ID)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestQueryRadiusFilter(t *testing.T) {
	items := []Item{
		{ID: 1, Point: geo.Point{X: 0, Y: 100}},
		{ID: 2, Point: geo.Point{X: 0, Y: 1000}},
	}
	ix := NewIndex(items, DefaultCellSize)

	results := ix.Query(geo.Point{X: 0, Y: 0}, 200)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ID)
	assert.InDelta(t, 100, results[0].Distance, 0.001)
}

func TestQueryTiesBrokenByID(t *testing.T) {
	items := []Item{
		{ID: 9, Point: geo.Point{X: 100, Y: 0}},
		{ID: 2, Point: geo.Point{X: -100, Y: 0}},
		{ID: 5, Point: geo.Point{X: 0, Y: 100}},
	}
	ix := NewIndex(items, DefaultCellSize)

	results := ix.Query(geo.Point{X: 0, Y: 0}, 150)
	require.Len(t, results, 3)
	assert.Equal(t, int64(2), results[0].ID)
	assert.Equal(t, int64(5), results[1].ID)
	assert.Equal(t, int64(9), results[2].ID)
}

func TestQueryEmptyAndNegative(t *testing.T) {
	ix := NewIndex(nil, DefaultCellSize)
	assert.Empty(t, ix.Query(geo.Point{}, 1000))

	ix2 := NewIndex([]Item{{ID: 1, Point: geo.Point{}}}, DefaultCellSize)
	assert.Empty(t, ix2.Query(geo.Point{}, -1))
}

func TestQueryZeroRadiusIncludesExactHit(t *testing.T) {
	ix := NewIndex([]Item{{ID: 7, Point: geo.Point{X: 10, Y: 20}}}, DefaultCellSize)

	results := ix.Query(geo.Point{X: 10, Y: 20}, 0)
	require.Len(t, results, 1)
	assert.Equal(t, int64(7), results[0].ID)
}
