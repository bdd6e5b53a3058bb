package graph

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rutagdl/ruta_core/internal/cost"
	"github.com/rutagdl/ruta_core/internal/geo"
	"github.com/rutagdl/ruta_core/internal/gtfs"
	"github.com/rutagdl/ruta_core/internal/models"
	"github.com/rutagdl/ruta_core/internal/spatial"
)

const (
	// maxWalkLink is the longest synthesized stop-to-stop walking link.
	maxWalkLink = 500.0 // meters
)

// BuildOptions tunes in-memory graph construction.
type BuildOptions struct {
	// MaxWalkLink overrides the stop-to-stop walking link radius.
	MaxWalkLink float64
	// WalkNodes and WalkEdges are an optional externally built walking
	// network merged into the graph. Node IDs are reassigned on merge.
	WalkNodes []models.Node
	WalkEdges []models.Edge
}

// BuildFromFeed constructs the routing graph in memory from a parsed GTFS
// feed: one node per stop, transit edges from consecutive stop-time deltas,
// and straight-line walking links between nearby stops. Used by tests and
// tooling; production graphs are materialized to PostgreSQL by Builder and
// read back with LoadFromDB.
func BuildFromFeed(feed *gtfs.Feed, opts BuildOptions) (*Graph, error) {
	if len(feed.Stops) == 0 {
		return nil, fmt.Errorf("feed has no stops")
	}

	walkLink := opts.MaxWalkLink
	if walkLink <= 0 {
		walkLink = maxWalkLink
	}

	var latSum float64
	for _, s := range feed.Stops {
		latSum += s.Lat
	}
	proj := geo.NewProjection(latSum / float64(len(feed.Stops)))

	// Stop nodes, ordered by stop ID so node IDs are reproducible
	stops := append([]models.GTFSStop(nil), feed.Stops...)
	sort.Slice(stops, func(i, j int) bool { return stops[i].StopID < stops[j].StopID })

	var nodes []models.Node
	stopNode := make(map[string]int64, len(stops))
	nextID := int64(1)
	for _, s := range stops {
		nodes = append(nodes, models.Node{
			ID:     nextID,
			Kind:   models.NodeStop,
			StopID: s.StopID,
			Name:   s.StopName,
			Lat:    s.Lat,
			Lon:    s.Lon,
			Point:  proj.Project(s.Lat, s.Lon),
		})
		stopNode[s.StopID] = nextID
		nextID++
	}

	// Merge the external walking network, remapping its node IDs
	walkRemap := make(map[int64]int64, len(opts.WalkNodes))
	for _, wn := range opts.WalkNodes {
		remapped := wn
		remapped.ID = nextID
		remapped.Kind = models.NodeWalk
		remapped.Point = proj.Project(wn.Lat, wn.Lon)
		walkRemap[wn.ID] = nextID
		nodes = append(nodes, remapped)
		nextID++
	}

	var edges []models.Edge
	for _, we := range opts.WalkEdges {
		from, okFrom := walkRemap[we.FromNodeID]
		to, okTo := walkRemap[we.ToNodeID]
		if !okFrom || !okTo {
			continue
		}
		edges = append(edges, models.Edge{
			FromNodeID: from,
			ToNodeID:   to,
			Kind:       models.EdgeWalk,
			Duration:   we.Duration,
		})
	}

	// Transit edges from consecutive stop-time pairs, one per (link, shape)
	tripMeta := make(map[string]models.GTFSTrip, len(feed.Trips))
	for _, t := range feed.Trips {
		tripMeta[t.TripID] = t
	}

	tripStops := make(map[string][]models.GTFSStopTime)
	for _, st := range feed.StopTimes {
		tripStops[st.TripID] = append(tripStops[st.TripID], st)
	}

	tripIDs := make([]string, 0, len(tripStops))
	for id := range tripStops {
		tripIDs = append(tripIDs, id)
	}
	sort.Strings(tripIDs)

	type linkKey struct {
		from, to int64
		shape    string
	}
	seen := make(map[linkKey]bool)

	for _, tripID := range tripIDs {
		trip, ok := tripMeta[tripID]
		if !ok {
			continue
		}

		times := tripStops[tripID]
		sort.Slice(times, func(i, j int) bool {
			return times[i].StopSequence < times[j].StopSequence
		})

		for i := 0; i < len(times)-1; i++ {
			from, okFrom := stopNode[times[i].StopID]
			to, okTo := stopNode[times[i+1].StopID]
			if !okFrom || !okTo || from == to {
				continue
			}

			key := linkKey{from: from, to: to, shape: trip.ShapeID}
			if seen[key] {
				continue
			}
			seen[key] = true

			// A delta of 0 marks a segment with no usable timing; the
			// search will refuse to traverse it.
			delta := 0.0
			depFrom, errFrom := gtfs.ParseTimeToSeconds(times[i].DepartureTime)
			depTo, errTo := gtfs.ParseTimeToSeconds(times[i+1].DepartureTime)
			if errFrom == nil && errTo == nil && depTo > depFrom {
				delta = float64(depTo - depFrom)
			}

			edges = append(edges, models.Edge{
				FromNodeID: from,
				ToNodeID:   to,
				Kind:       models.EdgeTransit,
				Duration:   delta,
				RouteID:    trip.RouteID,
				ShapeID:    trip.ShapeID,
				Headsign:   trip.Headsign,
			})
		}
	}

	edges = append(edges, synthesizeWalkLinks(nodes, walkLink)...)

	routes := buildRouteTable(feed)

	return New(nodes, edges, routes, proj), nil
}

// synthesizeWalkLinks adds straight-line walking links between stops within
// radius meters of each other. Straight-line distances use the direct
// (penalized) walking regime.
func synthesizeWalkLinks(nodes []models.Node, radius float64) []models.Edge {
	var items []spatial.Item
	for _, n := range nodes {
		if n.Kind == models.NodeStop {
			items = append(items, spatial.Item{ID: n.ID, Point: n.Point})
		}
	}
	index := spatial.NewIndex(items, spatial.DefaultCellSize)

	byID := make(map[int64]models.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var edges []models.Edge
	for _, it := range items {
		for _, hit := range index.Query(it.Point, radius) {
			if hit.ID == it.ID {
				continue
			}
			if byID[hit.ID].StopID == byID[it.ID].StopID {
				continue
			}
			dur, err := cost.WalkDuration(hit.Distance, cost.WalkDirect)
			if err != nil {
				continue
			}
			edges = append(edges, models.Edge{
				FromNodeID: it.ID,
				ToNodeID:   hit.ID,
				Kind:       models.EdgeWalk,
				Duration:   dur,
			})
		}
	}

	return edges
}

func buildRouteTable(feed *gtfs.Feed) map[string]models.RouteInfo {
	headways := gtfs.ComputeHeadways(feed)

	shapeSets := make(map[string]map[string]bool)
	for _, t := range feed.Trips {
		if t.ShapeID == "" {
			continue
		}
		if shapeSets[t.RouteID] == nil {
			shapeSets[t.RouteID] = make(map[string]bool)
		}
		shapeSets[t.RouteID][t.ShapeID] = true
	}

	routes := make(map[string]models.RouteInfo, len(feed.Routes))
	for _, r := range feed.Routes {
		var shapes []string
		for s := range shapeSets[r.RouteID] {
			shapes = append(shapes, s)
		}
		sort.Strings(shapes)

		routes[r.RouteID] = models.RouteInfo{
			ID:            r.RouteID,
			Name:          gtfs.RouteDisplayName(r),
			Color:         gtfs.NormalizeColor(r.RouteColor),
			Mode:          gtfs.InferMode(r),
			AgencyID:      r.AgencyID,
			MedianHeadway: headways[r.RouteID],
			Shapes:        shapes,
		}
	}

	return routes
}

// graphExecer is the part of pgxpool.Pool the builder uses.
type graphExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Builder materializes the routing graph into PostgreSQL from imported GTFS
// tables. The API process never builds; it loads the materialized tables.
type Builder struct {
	db graphExecer
}

// NewBuilder creates a new graph builder.
func NewBuilder(db *pgxpool.Pool) *Builder {
	return &Builder{db: db}
}

// RebuildFromDB clears and rebuilds the node and edge tables, then refreshes
// per-route median headways.
func (b *Builder) RebuildFromDB(ctx context.Context) error {
	log.Println("Rebuilding routing graph from database...")

	if err := b.clearGraph(ctx); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}

	nodeCount, err := b.buildStopNodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to build nodes: %w", err)
	}
	log.Printf("Created %d stop nodes", nodeCount)

	transitEdges, err := b.buildTransitEdges(ctx)
	if err != nil {
		return fmt.Errorf("failed to build transit edges: %w", err)
	}
	log.Printf("Created %d TRANSIT edges", transitEdges)

	walkEdges, err := b.buildWalkEdges(ctx)
	if err != nil {
		return fmt.Errorf("failed to build walk edges: %w", err)
	}
	log.Printf("Created %d WALK edges", walkEdges)

	if err := b.refreshHeadways(ctx); err != nil {
		return fmt.Errorf("failed to refresh headways: %w", err)
	}
	log.Println("Refreshed route headways")

	if err := b.analyzeGraph(ctx); err != nil {
		log.Printf("Warning: failed to analyze tables: %v", err)
	}

	log.Println("Graph rebuild completed successfully")
	return nil
}

const (
	clearTransitEdgesSQL = `DELETE FROM edge WHERE kind = 'TRANSIT'`

	// Synthesized stop-to-stop links join STOP nodes on both ends. Walk
	// edges touching a WALK node belong to the preloaded walking network
	// and must survive rebuilds.
	clearStopWalkEdgesSQL = `
		DELETE FROM edge e
		USING node n1, node n2
		WHERE e.kind = 'WALK'
			AND n1.id = e.from_node_id AND n1.kind = 'STOP'
			AND n2.id = e.to_node_id AND n2.kind = 'STOP'
	`

	clearStopNodesSQL = `DELETE FROM node WHERE kind = 'STOP'`
)

// clearGraph removes all transit-derived nodes and edges, preserving any
// preloaded walking-network rows (kind WALK) supplied by the walk-graph
// importer.
func (b *Builder) clearGraph(ctx context.Context) error {
	if _, err := b.db.Exec(ctx, clearTransitEdgesSQL); err != nil {
		return err
	}
	if _, err := b.db.Exec(ctx, clearStopWalkEdgesSQL); err != nil {
		return err
	}
	_, err := b.db.Exec(ctx, clearStopNodesSQL)
	return err
}

// buildStopNodes creates one node per imported stop.
func (b *Builder) buildStopNodes(ctx context.Context) (int, error) {
	query := `
		INSERT INTO node (kind, stop_id, name, lat, lon)
		SELECT 'STOP', s.id, s.name, s.lat, s.lon
		FROM stop s
		WHERE s.lat IS NOT NULL AND s.lon IS NOT NULL
		ON CONFLICT (stop_id) DO NOTHING
	`

	result, err := b.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to insert nodes: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// buildTransitEdges creates one edge per (stop pair, shape) from consecutive
// stop_times. Pairs without usable departure times get a zero duration, which
// the cost model reports as a missing schedule.
func (b *Builder) buildTransitEdges(ctx context.Context) (int, error) {
	query := `
		INSERT INTO edge (from_node_id, to_node_id, kind, duration_secs, route_id, shape_id, headsign)
		SELECT DISTINCT ON (n1.id, n2.id, t.shape_id)
			n1.id,
			n2.id,
			'TRANSIT',
			GREATEST(
				COALESCE(
					EXTRACT(EPOCH FROM (st2.departure_time::interval - st1.departure_time::interval)),
					0
				),
				0
			),
			t.route_id,
			t.shape_id,
			t.headsign
		FROM stop_time st1
		JOIN stop_time st2 ON st1.trip_id = st2.trip_id AND st2.stop_sequence = st1.stop_sequence + 1
		JOIN trip t ON st1.trip_id = t.trip_id
		JOIN node n1 ON n1.stop_id = st1.stop_id AND n1.kind = 'STOP'
		JOIN node n2 ON n2.stop_id = st2.stop_id AND n2.kind = 'STOP'
		WHERE n1.id != n2.id
		ORDER BY n1.id, n2.id, t.shape_id, st1.trip_id
	`

	result, err := b.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transit edges: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// buildWalkEdges creates straight-line walking links between stops within
// walking distance, costed at the direct (penalized) speed.
func (b *Builder) buildWalkEdges(ctx context.Context) (int, error) {
	log.Printf("Building WALK edges for stops within %.0f meters...", maxWalkLink)

	query := `
		INSERT INTO edge (from_node_id, to_node_id, kind, duration_secs)
		SELECT
			n1.id,
			n2_with_dist.id,
			'WALK',
			CEIL(n2_with_dist.distance / $1)
		FROM node n1
		CROSS JOIN LATERAL (
			SELECT
				n2.id,
				(
					6371000 * acos(
						LEAST(1.0, GREATEST(-1.0,
							cos(radians(n1.lat)) * cos(radians(n2.lat)) *
							cos(radians(n2.lon) - radians(n1.lon)) +
							sin(radians(n1.lat)) * sin(radians(n2.lat))
						))
					)
				) as distance
			FROM node n2
			WHERE n2.id != n1.id
				AND n2.kind = 'STOP'
				AND n2.stop_id != n1.stop_id
		) n2_with_dist
		WHERE n1.kind = 'STOP'
			AND n2_with_dist.distance <= $2
	`

	result, err := b.db.Exec(ctx, query, cost.SpeedDirect, maxWalkLink)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}

// refreshHeadways computes the median headway per route. frequencies.txt
// entries win; routes without any fall back to deltas between successive
// first-stop departures of their trips.
func (b *Builder) refreshHeadways(ctx context.Context) error {
	fromFrequencies := `
		UPDATE route r SET median_headway_secs = sub.median
		FROM (
			SELECT t.route_id, percentile_cont(0.5) WITHIN GROUP (ORDER BY f.headway_secs) AS median
			FROM frequency f
			JOIN trip t ON t.trip_id = f.trip_id
			WHERE f.headway_secs > 0
			GROUP BY t.route_id
		) sub
		WHERE r.id = sub.route_id
	`
	if _, err := b.db.Exec(ctx, fromFrequencies); err != nil {
		return err
	}

	fromDepartures := `
		UPDATE route r SET median_headway_secs = sub.median
		FROM (
			SELECT route_id, percentile_cont(0.5) WITHIN GROUP (ORDER BY delta) AS median
			FROM (
				SELECT
					t.route_id,
					EXTRACT(EPOCH FROM (
						first_dep - lag(first_dep) OVER (PARTITION BY t.route_id ORDER BY first_dep)
					)) AS delta
				FROM (
					SELECT DISTINCT ON (trip_id) trip_id, departure_time::interval AS first_dep
					FROM stop_time
					WHERE departure_time IS NOT NULL AND departure_time != ''
					ORDER BY trip_id, stop_sequence
				) firsts
				JOIN trip t ON t.trip_id = firsts.trip_id
			) deltas
			WHERE delta > 0
			GROUP BY route_id
		) sub
		WHERE r.id = sub.route_id
			AND (r.median_headway_secs IS NULL OR r.median_headway_secs <= 0)
	`
	_, err := b.db.Exec(ctx, fromDepartures)
	return err
}

// analyzeGraph runs ANALYZE on graph tables for query optimization.
func (b *Builder) analyzeGraph(ctx context.Context) error {
	tables := []string{"stop", "route", "node", "edge"}

	for _, table := range tables {
		_, err := b.db.Exec(ctx, fmt.Sprintf("ANALYZE %s", table))
		if err != nil {
			return err
		}
	}

	return nil
}
