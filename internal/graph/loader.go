package graph

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rutagdl/ruta_core/internal/geo"
	"github.com/rutagdl/ruta_core/internal/models"
)

// LoadFromDB reads the materialized graph tables into an immutable Graph.
// Called once at process start; the result is shared by every request.
func LoadFromDB(ctx context.Context, db *pgxpool.Pool) (*Graph, error) {
	startTime := time.Now()
	log.Println("Loading routing graph into memory...")

	var refLat float64
	if err := db.QueryRow(ctx, `SELECT COALESCE(AVG(lat), 0) FROM node`).Scan(&refLat); err != nil {
		return nil, fmt.Errorf("failed to determine reference latitude: %w", err)
	}
	proj := geo.NewProjection(refLat)

	nodes, err := loadNodes(ctx, db, proj)
	if err != nil {
		return nil, err
	}
	log.Printf("  Loaded %d nodes", len(nodes))

	edges, err := loadEdges(ctx, db)
	if err != nil {
		return nil, err
	}
	log.Printf("  Loaded %d edges", len(edges))

	routes, err := loadRoutes(ctx, db)
	if err != nil {
		return nil, err
	}
	log.Printf("  Loaded %d routes", len(routes))

	g := New(nodes, edges, routes, proj)

	log.Printf("Graph loaded in %v (%d nodes, %d edges)",
		time.Since(startTime), g.NodeCount(), g.EdgeCount())

	return g, nil
}

func loadNodes(ctx context.Context, db *pgxpool.Pool, proj geo.Projection) ([]models.Node, error) {
	rows, err := db.Query(ctx, `
		SELECT id, kind, COALESCE(stop_id, ''), COALESCE(name, ''), lat, lon
		FROM node
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		var n models.Node
		var kind string
		if err := rows.Scan(&n.ID, &kind, &n.StopID, &n.Name, &n.Lat, &n.Lon); err != nil {
			log.Printf("Warning: failed to scan node: %v", err)
			continue
		}
		n.Kind = models.NodeKind(kind)
		n.Point = proj.Project(n.Lat, n.Lon)
		nodes = append(nodes, n)
	}

	return nodes, rows.Err()
}

func loadEdges(ctx context.Context, db *pgxpool.Pool) ([]models.Edge, error) {
	rows, err := db.Query(ctx, `
		SELECT from_node_id, to_node_id, kind, duration_secs,
		       COALESCE(route_id, ''), COALESCE(shape_id, ''), COALESCE(headsign, '')
		FROM edge
		ORDER BY from_node_id, to_node_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer rows.Close()

	var edges []models.Edge
	for rows.Next() {
		var e models.Edge
		var kind string
		if err := rows.Scan(&e.FromNodeID, &e.ToNodeID, &kind, &e.Duration,
			&e.RouteID, &e.ShapeID, &e.Headsign); err != nil {
			log.Printf("Warning: failed to scan edge: %v", err)
			continue
		}
		e.Kind = models.EdgeKind(kind)
		edges = append(edges, e)
	}

	return edges, rows.Err()
}

func loadRoutes(ctx context.Context, db *pgxpool.Pool) (map[string]models.RouteInfo, error) {
	rows, err := db.Query(ctx, `
		SELECT
			r.id,
			COALESCE(NULLIF(r.short_name, ''), NULLIF(r.long_name, ''), r.id),
			COALESCE(r.color, ''),
			COALESCE(r.mode, 'BUS'),
			COALESCE(r.agency_id, ''),
			COALESCE(r.median_headway_secs, 0),
			COALESCE(array_agg(DISTINCT t.shape_id) FILTER (WHERE t.shape_id IS NOT NULL AND t.shape_id != ''), '{}')
		FROM route r
		LEFT JOIN trip t ON t.route_id = r.id
		GROUP BY r.id, r.short_name, r.long_name, r.color, r.mode, r.agency_id, r.median_headway_secs
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}
	defer rows.Close()

	routes := make(map[string]models.RouteInfo)
	for rows.Next() {
		var info models.RouteInfo
		var mode string
		if err := rows.Scan(&info.ID, &info.Name, &info.Color, &mode,
			&info.AgencyID, &info.MedianHeadway, &info.Shapes); err != nil {
			log.Printf("Warning: failed to scan route: %v", err)
			continue
		}
		info.Mode = models.TransitMode(mode)
		routes[info.ID] = info
	}

	return routes, rows.Err()
}
