package graph

import (
	"sort"

	"github.com/rutagdl/ruta_core/internal/geo"
	"github.com/rutagdl/ruta_core/internal/models"
	"github.com/rutagdl/ruta_core/internal/spatial"
)

// Graph is the combined walking + transit routing graph. It is constructed
// once, never mutated afterwards, and safe for any number of concurrent
// searches. Callers pass it explicitly; there is no process-wide instance.
type Graph struct {
	Projection geo.Projection
	Routes     map[string]models.RouteInfo

	nodes     map[int64]models.Node
	out       map[int64][]models.Edge
	nodeIndex *spatial.Index // every node, for origin/destination lookup
	stopIndex *spatial.Index // stop nodes only, for stop-centric queries
}

// New builds a graph from its parts and indexes it. Adjacency lists are
// ordered deterministically so identical inputs always produce identical
// search results.
func New(nodes []models.Node, edges []models.Edge, routes map[string]models.RouteInfo, proj geo.Projection) *Graph {
	g := &Graph{
		Projection: proj,
		Routes:     routes,
		nodes:      make(map[int64]models.Node, len(nodes)),
		out:        make(map[int64][]models.Edge),
	}
	if g.Routes == nil {
		g.Routes = make(map[string]models.RouteInfo)
	}

	var allItems, stopItems []spatial.Item
	for _, n := range nodes {
		g.nodes[n.ID] = n
		allItems = append(allItems, spatial.Item{ID: n.ID, Point: n.Point})
		if n.Kind == models.NodeStop {
			stopItems = append(stopItems, spatial.Item{ID: n.ID, Point: n.Point})
		}
	}

	for _, e := range edges {
		g.out[e.FromNodeID] = append(g.out[e.FromNodeID], e)
	}
	for id := range g.out {
		adj := g.out[id]
		sort.Slice(adj, func(i, j int) bool {
			if adj[i].ToNodeID != adj[j].ToNodeID {
				return adj[i].ToNodeID < adj[j].ToNodeID
			}
			if adj[i].RouteID != adj[j].RouteID {
				return adj[i].RouteID < adj[j].RouteID
			}
			return adj[i].ShapeID < adj[j].ShapeID
		})
	}

	g.nodeIndex = spatial.NewIndex(allItems, spatial.DefaultCellSize)
	g.stopIndex = spatial.NewIndex(stopItems, spatial.DefaultCellSize)

	return g
}

// Node returns a node by ID.
func (g *Graph) Node(id int64) (models.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// OutEdges returns the outgoing edges of a node. The returned slice is owned
// by the graph and must not be modified.
func (g *Graph) OutEdges(id int64) []models.Edge {
	return g.out[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, adj := range g.out {
		total += len(adj)
	}
	return total
}

// NearbyNodes returns all graph nodes within radius meters of the point,
// ascending by distance.
func (g *Graph) NearbyNodes(p geo.Point, radius float64) []spatial.Result {
	return g.nodeIndex.Query(p, radius)
}

// NearbyStops returns the stop nodes within radius meters of the point,
// ascending by distance.
func (g *Graph) NearbyStops(p geo.Point, radius float64) []spatial.Result {
	return g.stopIndex.Query(p, radius)
}

// Route returns the RouteInfo entry for a route ID.
func (g *Graph) Route(id string) (models.RouteInfo, bool) {
	r, ok := g.Routes[id]
	return r, ok
}
