package routing

import (
	"fmt"

	"github.com/rutagdl/ruta_core/internal/models"
)

// buildItinerary walks the predecessor chain of a settled destination label
// back to its seed and assembles user-facing segments. Consecutive edges on
// the same route collapse into one ride; consecutive walk edges collapse
// into one walk. The chain is validated as it is traversed: any label whose
// edge does not connect its predecessor to itself is a corrupted search
// state and yields ErrBrokenChain.
func (e *Engine) buildItinerary(last *searchLabel, origin, dest models.Place, tail float64) (*models.Itinerary, error) {
	chain, err := collectChain(last)
	if err != nil {
		return nil, err
	}

	seed := chain[0]
	it := &models.Itinerary{}

	// Access walk from the true origin to the seed node. The seed's cost is
	// exactly that walk, so no recomputation is needed.
	if seed.cost > 0 {
		it.Segments = append(it.Segments, models.Segment{
			Mode:     models.EdgeWalk,
			From:     origin,
			To:       e.placeFor(seed.node),
			Duration: seed.cost,
		})
	}

	for i := 1; i < len(chain); i++ {
		lbl := chain[i]
		edge := lbl.via
		step := lbl.cost - chain[i-1].cost - lbl.wait

		switch edge.Kind {
		case models.EdgeTransit:
			if n := len(it.Segments); n > 0 {
				prev := &it.Segments[n-1]
				if prev.Mode == models.EdgeTransit && prev.Route != nil &&
					prev.Route.ID == edge.RouteID && lbl.wait == 0 {
					prev.To = e.placeFor(lbl.node)
					prev.Duration += step
					prev.Stops++
					prev.Shapes = appendShape(prev.Shapes, edge.ShapeID)
					continue
				}
			}
			it.Segments = append(it.Segments, models.Segment{
				Mode:     models.EdgeTransit,
				From:     e.placeFor(chain[i-1].node),
				To:       e.placeFor(lbl.node),
				Duration: step,
				Wait:     lbl.wait,
				Route:    e.routeRef(edge),
				Shapes:   appendShape(nil, edge.ShapeID),
				Stops:    1,
			})
		case models.EdgeWalk:
			if n := len(it.Segments); n > 0 && it.Segments[n-1].Mode == models.EdgeWalk {
				it.Segments[n-1].To = e.placeFor(lbl.node)
				it.Segments[n-1].Duration += step
				continue
			}
			it.Segments = append(it.Segments, models.Segment{
				Mode:     models.EdgeWalk,
				From:     e.placeFor(chain[i-1].node),
				To:       e.placeFor(lbl.node),
				Duration: step,
			})
		default:
			return nil, fmt.Errorf("%w: edge of kind %q in chain", ErrBrokenChain, edge.Kind)
		}
	}

	// Egress walk from the last settled node to the true destination.
	if tail > 0 {
		if n := len(it.Segments); n > 0 && it.Segments[n-1].Mode == models.EdgeWalk {
			it.Segments[n-1].To = dest
			it.Segments[n-1].Duration += tail
		} else {
			it.Segments = append(it.Segments, models.Segment{
				Mode:     models.EdgeWalk,
				From:     e.placeFor(last.node),
				To:       dest,
				Duration: tail,
			})
		}
	}

	transit := 0
	for _, s := range it.Segments {
		it.TotalTime += s.Duration + s.Wait
		if s.Mode == models.EdgeTransit {
			transit++
		}
	}
	if transit > 1 {
		it.Transfers = transit - 1
	}

	return it, nil
}

// collectChain reverses the predecessor links into forward order, checking
// structural invariants along the way.
func collectChain(last *searchLabel) ([]*searchLabel, error) {
	var rev []*searchLabel
	for lbl := last; lbl != nil; lbl = lbl.prev {
		rev = append(rev, lbl)
	}

	chain := make([]*searchLabel, len(rev))
	for i, lbl := range rev {
		chain[len(rev)-1-i] = lbl
	}

	if chain[0].via != nil || chain[0].prev != nil {
		return nil, fmt.Errorf("%w: chain does not start at a seed label", ErrBrokenChain)
	}
	for i := 1; i < len(chain); i++ {
		lbl := chain[i]
		if lbl.via == nil {
			return nil, fmt.Errorf("%w: non-seed label at node %d has no edge", ErrBrokenChain, lbl.node)
		}
		if lbl.via.FromNodeID != chain[i-1].node || lbl.via.ToNodeID != lbl.node {
			return nil, fmt.Errorf("%w: edge %d->%d does not connect %d to %d",
				ErrBrokenChain, lbl.via.FromNodeID, lbl.via.ToNodeID, chain[i-1].node, lbl.node)
		}
	}

	return chain, nil
}

func (e *Engine) placeFor(nodeID int64) models.Place {
	n, ok := e.g.Node(nodeID)
	if !ok {
		return models.Place{NodeID: nodeID}
	}
	return models.Place{
		NodeID: n.ID,
		StopID: n.StopID,
		Name:   n.Name,
		Lat:    n.Lat,
		Lon:    n.Lon,
		Point:  n.Point,
	}
}

func (e *Engine) routeRef(edge *models.Edge) *models.RouteRef {
	ref := &models.RouteRef{ID: edge.RouteID, Name: edge.RouteID, Headsign: edge.Headsign}
	if info, ok := e.g.Route(edge.RouteID); ok {
		ref.Name = info.Name
		ref.Color = info.Color
		ref.Mode = info.Mode
	}
	return ref
}

func appendShape(shapes []string, id string) []string {
	if id == "" {
		return shapes
	}
	for _, s := range shapes {
		if s == id {
			return shapes
		}
	}
	return append(shapes, id)
}
