package routing

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/rutagdl/ruta_core/internal/cost"
	"github.com/rutagdl/ruta_core/internal/graph"
	"github.com/rutagdl/ruta_core/internal/models"
)

// Engine runs one multi-start shortest-time search per call. All mutable
// search state is local to a call; the graph and cost model are read-only,
// so any number of searches may run concurrently on one Engine.
type Engine struct {
	g     *graph.Graph
	model *cost.TransitModel
}

// NewEngine creates an engine over the given graph, deriving the transit
// cost model from the graph's route table.
func NewEngine(g *graph.Graph) *Engine {
	return &Engine{g: g, model: cost.NewTransitModel(g.Routes)}
}

// NewEngineWithModel creates an engine with an explicit transit cost model.
func NewEngineWithModel(g *graph.Graph, model *cost.TransitModel) *Engine {
	return &Engine{g: g, model: model}
}

// searchLabel is the best-known state of one (node, current route) pair.
// Carrying the current route alongside the cost makes this a multi-criteria
// relaxation: the same node reached on different routes keeps separate
// states, because the optimal continuation differs.
type searchLabel struct {
	node  int64
	route string // current route, empty while walking
	cost  float64
	wait  float64 // boarding wait charged on the edge into this label
	prev  *searchLabel
	via   *models.Edge // nil for seed labels

	key       float64 // cost + heuristic, orders the frontier only
	seq       int64   // insertion order, breaks key ties deterministically
	heapIndex int
}

type labelKey struct {
	node  int64
	route string
}

// Search finds the fastest walking+transit itinerary between two places,
// refusing to traverse any transit edge whose shape is excluded.
func (e *Engine) Search(ctx context.Context, origin, dest models.Place, exclusions map[string]bool, opts Options) (*models.Itinerary, error) {
	opts = opts.withDefaults()
	radius := opts.walkRadiusMeters()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	// Every node within walking distance of the destination terminates the
	// search when settled; the tail walk is added to its cumulative cost.
	tails := make(map[int64]float64)
	for _, hit := range e.g.NearbyNodes(dest.Point, radius) {
		walk, err := cost.WalkDuration(hit.Distance, cost.WalkOnPath)
		if err != nil {
			continue
		}
		tails[hit.ID] = walk
	}
	if len(tails) == 0 {
		return nil, fmt.Errorf("%w: no graph node within %.0fm of destination", ErrNoRouteFound, radius)
	}

	// Seed the frontier from every node within walking distance of the
	// origin. Multiple zero-predecessor labels are the whole of the
	// multi-start machinery; the relax loop needs no special case.
	frontier := &labelQueue{}
	heap.Init(frontier)
	best := make(map[labelKey]*searchLabel)
	var seq int64

	seeds := e.g.NearbyNodes(origin.Point, radius)
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no graph node within %.0fm of origin", ErrNoRouteFound, radius)
	}
	for _, hit := range seeds {
		walk, err := cost.WalkDuration(hit.Distance, cost.WalkOnPath)
		if err != nil {
			continue
		}
		lbl := &searchLabel{
			node: hit.ID,
			cost: walk,
			key:  walk + e.heuristic(hit.ID, dest, opts),
			seq:  seq,
		}
		seq++
		best[labelKey{node: hit.ID}] = lbl
		heap.Push(frontier, lbl)
	}

	expansions := 0

	for frontier.Len() > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrSearchTimeout, ctx.Err())
		default:
		}

		expansions++
		if expansions > opts.MaxExpansions {
			return nil, fmt.Errorf("%w: expansion budget of %d exceeded", ErrSearchTimeout, opts.MaxExpansions)
		}

		current := heap.Pop(frontier).(*searchLabel)
		if settled := best[labelKey{node: current.node, route: current.route}]; settled != current {
			continue // stale frontier entry
		}

		if tail, ok := tails[current.node]; ok {
			return e.buildItinerary(current, origin, dest, tail)
		}

		adjacent := e.g.OutEdges(current.node)
		for i := range adjacent {
			edge := &adjacent[i]

			var step, wait float64
			var nextRoute string

			switch edge.Kind {
			case models.EdgeTransit:
				if exclusions[edge.ShapeID] {
					continue
				}
				travel, err := e.model.TravelTime(*edge)
				if err != nil {
					continue // missing schedule: edge unusable, not fatal
				}
				step = travel
				nextRoute = edge.RouteID
				// Boarding a route other than the one we are on charges
				// that route's expected wait. This covers both the first
				// boarding and the frequency-aware transfer penalty; a
				// plain continuation of the same route is free.
				if current.route != edge.RouteID {
					wait = e.model.WaitTime(edge.RouteID)
				}
			case models.EdgeWalk:
				step = edge.Duration
				nextRoute = "" // walking resets the current route
			default:
				continue
			}

			candidate := current.cost + step + wait
			key := labelKey{node: edge.ToNodeID, route: nextRoute}
			if existing, ok := best[key]; ok && existing.cost <= candidate {
				continue
			}

			lbl := &searchLabel{
				node:  edge.ToNodeID,
				route: nextRoute,
				cost:  candidate,
				wait:  wait,
				prev:  current,
				via:   edge,
				key:   candidate + e.heuristic(edge.ToNodeID, dest, opts),
				seq:   seq,
			}
			seq++
			best[key] = lbl
			heap.Push(frontier, lbl)
		}
	}

	return nil, fmt.Errorf("%w: frontier exhausted after %d expansions", ErrNoRouteFound, expansions)
}

// heuristic is an admissible lower bound on the remaining travel time,
// used only to order the frontier, never stored in a label's cost.
func (e *Engine) heuristic(nodeID int64, dest models.Place, opts Options) float64 {
	if opts.HeuristicSpeed <= 0 {
		return 0
	}
	n, ok := e.g.Node(nodeID)
	if !ok {
		return 0
	}
	dx := n.Point.X - dest.Point.X
	dy := n.Point.Y - dest.Point.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	// Chebyshev-ish cheap bound is fine here; exact Euclidean costs a sqrt
	// per relaxation for no correctness gain.
	d := dx
	if dy > dx {
		d = dy
	}
	return d / opts.HeuristicSpeed
}

// labelQueue implements heap.Interface for the search frontier.
type labelQueue []*searchLabel

func (q labelQueue) Len() int { return len(q) }

func (q labelQueue) Less(i, j int) bool {
	if q[i].key != q[j].key {
		return q[i].key < q[j].key
	}
	return q[i].seq < q[j].seq
}

func (q labelQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIndex = i
	q[j].heapIndex = j
}

func (q *labelQueue) Push(x interface{}) {
	lbl := x.(*searchLabel)
	lbl.heapIndex = len(*q)
	*q = append(*q, lbl)
}

func (q *labelQueue) Pop() interface{} {
	old := *q
	n := len(old)
	lbl := old[n-1]
	old[n-1] = nil
	lbl.heapIndex = -1
	*q = old[0 : n-1]
	return lbl
}
