package routing

import (
	"context"
	"testing"

	"github.com/rutagdl/ruta_core/internal/graph"
	"github.com/rutagdl/ruta_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRouteAlternatives(t *testing.T) {
	g := corridorGraph()
	p := NewPlanner(g)

	origin := placeAt(models.OriginNodeID, 0, -300)
	dest := placeAt(models.DestinationNodeID, 15000, 300)

	results, err := p.PlanRoute(context.Background(),
		origin.Lat, origin.Lon, dest.Lat, dest.Lon, Options{})
	require.NoError(t, err)

	// Excluding SH1 after the first result forces the second search onto
	// R2; after both shapes are excluded no third alternative exists.
	require.Len(t, results, 2)
	assert.Equal(t, []string{"R1"}, results[0].RouteSequence())
	assert.Equal(t, []string{"R2"}, results[1].RouteSequence())
}

func TestPlanRouteRankedByTotalTime(t *testing.T) {
	g := corridorGraph()
	p := NewPlanner(g)

	origin := placeAt(models.OriginNodeID, 0, -300)
	dest := placeAt(models.DestinationNodeID, 15000, 300)

	results, err := p.PlanRoute(context.Background(),
		origin.Lat, origin.Lon, dest.Lat, dest.Lon, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for i := 1; i < len(results); i++ {
		if results[i-1].TotalTime == results[i].TotalTime {
			assert.LessOrEqual(t, results[i-1].Transfers, results[i].Transfers)
		} else {
			assert.Less(t, results[i-1].TotalTime, results[i].TotalTime)
		}
	}
}

func TestPlanRouteSequencesAreDistinct(t *testing.T) {
	g := corridorGraph()
	p := NewPlanner(g)

	origin := placeAt(models.OriginNodeID, 0, -300)
	dest := placeAt(models.DestinationNodeID, 15000, 300)

	results, err := p.PlanRoute(context.Background(),
		origin.Lat, origin.Lon, dest.Lat, dest.Lon, Options{})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, it := range results {
		key := ""
		for _, r := range it.RouteSequence() {
			key += r + "|"
		}
		assert.False(t, seen[key], "duplicate route sequence %q", key)
		seen[key] = true
	}
}

func TestPlanRouteMaxAlternativesCap(t *testing.T) {
	g := corridorGraph()
	p := NewPlanner(g)

	origin := placeAt(models.OriginNodeID, 0, -300)
	dest := placeAt(models.DestinationNodeID, 15000, 300)

	results, err := p.PlanRoute(context.Background(),
		origin.Lat, origin.Lon, dest.Lat, dest.Lon, Options{MaxAlternatives: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"R1"}, results[0].RouteSequence())
}

func TestPlanRouteExcludeAllLegs(t *testing.T) {
	// Two-leg journey: R1 then R3. With all-legs exclusion both shapes are
	// forbidden after the first result, leaving no alternative.
	nodes := []models.Node{
		stopNode(1, 0, 0),
		stopNode(2, 5000, 0),
		stopNode(3, 10000, 0),
	}
	edges := []models.Edge{
		transit(1, 2, 360, "R1", "SH1"),
		transit(2, 3, 300, "R3", "SH3"),
	}
	routes := map[string]models.RouteInfo{
		"R1": {ID: "R1", MedianHeadway: 600, Shapes: []string{"SH1"}},
		"R3": {ID: "R3", MedianHeadway: 60, Shapes: []string{"SH3"}},
	}
	g := graph.New(nodes, edges, routes, testProj)
	p := NewPlanner(g)

	origin := placeAt(models.OriginNodeID, 0, -300)
	dest := placeAt(models.DestinationNodeID, 10000, 300)

	results, err := p.PlanRoute(context.Background(),
		origin.Lat, origin.Lon, dest.Lat, dest.Lon,
		Options{ExclusionPolicy: ExcludeAllLegs})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"R1", "R3"}, results[0].RouteSequence())
}

func TestPlanRouteWalkOnly(t *testing.T) {
	g := corridorGraph()
	p := NewPlanner(g)

	// Both endpoints within walking distance of the same stop
	origin := placeAt(models.OriginNodeID, 0, -200)
	dest := placeAt(models.DestinationNodeID, 0, 200)

	results, err := p.PlanRoute(context.Background(),
		origin.Lat, origin.Lon, dest.Lat, dest.Lon, Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Empty(t, results[0].RouteSequence())
	assert.Equal(t, 0, results[0].Transfers)
	for _, s := range results[0].Segments {
		assert.Equal(t, models.EdgeWalk, s.Mode)
	}
}

func TestPlanRouteIsIdempotent(t *testing.T) {
	g := corridorGraph()
	p := NewPlanner(g)

	origin := placeAt(models.OriginNodeID, 0, -300)
	dest := placeAt(models.DestinationNodeID, 15000, 300)

	first, err := p.PlanRoute(context.Background(),
		origin.Lat, origin.Lon, dest.Lat, dest.Lon, Options{})
	require.NoError(t, err)

	second, err := p.PlanRoute(context.Background(),
		origin.Lat, origin.Lon, dest.Lat, dest.Lon, Options{})
	require.NoError(t, err)

	// Adjacency ordering, spatial tie-breaks, and the frontier's insertion
	// tie-break make the whole pipeline deterministic, so repeated calls
	// return byte-identical results.
	assert.Equal(t, first, second)
}

func TestPlanRouteNoRouteFound(t *testing.T) {
	g := corridorGraph()
	p := NewPlanner(g)

	origin := placeAt(models.OriginNodeID, 0, -100000)
	dest := placeAt(models.DestinationNodeID, 15000, 300)

	_, err := p.PlanRoute(context.Background(),
		origin.Lat, origin.Lon, dest.Lat, dest.Lon, Options{})
	assert.ErrorIs(t, err, ErrNoRouteFound)
}
