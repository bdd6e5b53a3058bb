package routing

import (
	"context"
	"sort"
	"strings"

	"github.com/rutagdl/ruta_core/internal/graph"
	"github.com/rutagdl/ruta_core/internal/models"
)

// extraAttempts is how many additional searches beyond MaxAlternatives the
// planner may spend when an iteration comes back empty or duplicated.
const extraAttempts = 2

// Planner produces a small set of diverse itineraries by running the search
// engine repeatedly, each time forbidding shapes already used by earlier
// results.
type Planner struct {
	engine *Engine
	g      *graph.Graph
}

// NewPlanner creates a planner over the given graph.
func NewPlanner(g *graph.Graph) *Planner {
	return &Planner{engine: NewEngine(g), g: g}
}

// PlanRoute finds up to opts.MaxAlternatives itineraries between the two
// coordinates, ranked by total time, then by fewer transfers. The first
// search failing means no journey exists at all and its error is returned;
// later iterations failing just means no further alternatives.
func (p *Planner) PlanRoute(ctx context.Context, fromLat, fromLon, toLat, toLon float64, opts Options) ([]*models.Itinerary, error) {
	opts = opts.withDefaults()

	origin := models.Place{
		NodeID: models.OriginNodeID,
		Name:   "Origen",
		Lat:    fromLat,
		Lon:    fromLon,
		Point:  p.g.Projection.Project(fromLat, fromLon),
	}
	dest := models.Place{
		NodeID: models.DestinationNodeID,
		Name:   "Destino",
		Lat:    toLat,
		Lon:    toLon,
		Point:  p.g.Projection.Project(toLat, toLon),
	}

	var results []*models.Itinerary
	seen := make(map[string]bool)     // route-sequence dedup
	excluded := make(map[string]bool) // shape IDs forbidden in later searches

	budget := opts.MaxAlternatives + extraAttempts
	for attempt := 0; attempt < budget && len(results) < opts.MaxAlternatives; attempt++ {
		it, err := p.engine.Search(ctx, origin, dest, excluded, opts)
		if err != nil {
			if attempt == 0 {
				return nil, err
			}
			break // exclusions have disconnected the network, done
		}

		key := strings.Join(it.RouteSequence(), "|")
		if !seen[key] {
			seen[key] = true
			results = append(results, it)
		}

		shapes := it.FirstTransitShapes()
		if opts.ExclusionPolicy == ExcludeAllLegs {
			shapes = it.AllTransitShapes()
		}
		if len(shapes) == 0 {
			break // walk-only result, excluding nothing would loop forever
		}
		for _, s := range shapes {
			excluded[s] = true
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TotalTime != results[j].TotalTime {
			return results[i].TotalTime < results[j].TotalTime
		}
		return results[i].Transfers < results[j].Transfers
	})

	return results, nil
}
