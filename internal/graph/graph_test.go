package graph

import (
	"testing"

	"github.com/rutagdl/ruta_core/internal/geo"
	"github.com/rutagdl/ruta_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjacencyIsDeterministicallyOrdered(t *testing.T) {
	proj := geo.NewProjection(20.67)
	nodes := []models.Node{
		{ID: 1, Kind: models.NodeStop, StopID: "A", Lat: 20.67, Lon: -103.35, Point: proj.Project(20.67, -103.35)},
		{ID: 2, Kind: models.NodeStop, StopID: "B", Lat: 20.68, Lon: -103.35, Point: proj.Project(20.68, -103.35)},
		{ID: 3, Kind: models.NodeStop, StopID: "C", Lat: 20.69, Lon: -103.35, Point: proj.Project(20.69, -103.35)},
	}
	// Deliberately shuffled insert order
	edges := []models.Edge{
		{FromNodeID: 1, ToNodeID: 3, Kind: models.EdgeTransit, Duration: 100, RouteID: "R2", ShapeID: "S2"},
		{FromNodeID: 1, ToNodeID: 2, Kind: models.EdgeTransit, Duration: 100, RouteID: "R9", ShapeID: "S9"},
		{FromNodeID: 1, ToNodeID: 2, Kind: models.EdgeTransit, Duration: 100, RouteID: "R1", ShapeID: "S1"},
	}

	g := New(nodes, edges, nil, proj)

	adj := g.OutEdges(1)
	require.Len(t, adj, 3)
	assert.Equal(t, int64(2), adj[0].ToNodeID)
	assert.Equal(t, "R1", adj[0].RouteID)
	assert.Equal(t, "R9", adj[1].RouteID)
	assert.Equal(t, int64(3), adj[2].ToNodeID)
}

func TestNearbyStopsExcludesWalkNodes(t *testing.T) {
	proj := geo.NewProjection(20.67)
	nodes := []models.Node{
		{ID: 1, Kind: models.NodeStop, StopID: "A", Lat: 20.67, Lon: -103.35, Point: proj.Project(20.67, -103.35)},
		{ID: 2, Kind: models.NodeWalk, Lat: 20.6701, Lon: -103.35, Point: proj.Project(20.6701, -103.35)},
	}

	g := New(nodes, nil, nil, proj)
	p := proj.Project(20.67, -103.35)

	assert.Len(t, g.NearbyNodes(p, 100), 2)

	stops := g.NearbyStops(p, 100)
	require.Len(t, stops, 1)
	assert.Equal(t, int64(1), stops[0].ID)
}

func TestRouteLookup(t *testing.T) {
	proj := geo.NewProjection(20.67)
	routes := map[string]models.RouteInfo{
		"R1": {ID: "R1", Name: "Línea 1"},
	}
	g := New(nil, nil, routes, proj)

	info, ok := g.Route("R1")
	assert.True(t, ok)
	assert.Equal(t, "Línea 1", info.Name)

	_, ok = g.Route("missing")
	assert.False(t, ok)
}
