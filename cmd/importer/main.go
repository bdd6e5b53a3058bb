package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rutagdl/ruta_core/internal/db"
	"github.com/rutagdl/ruta_core/internal/graph"
	"github.com/rutagdl/ruta_core/internal/gtfs"
	"github.com/rutagdl/ruta_core/internal/models"
)

func main() {
	// Command-line flags
	agencyID := flag.String("agency-id", "", "Agency ID for this GTFS feed (required)")
	gtfsPath := flag.String("gtfs", "", "Path to GTFS ZIP file or directory (required)")
	rebuildGraph := flag.Bool("rebuild-graph", false, "Rebuild graph after import")
	dedupeThreshold := flag.Float64("dedupe-threshold", 30.0, "Stop deduplication threshold in meters")

	flag.Parse()

	// Validate required flags
	if *agencyID == "" || *gtfsPath == "" {
		fmt.Println("Usage: rutagdl-import --agency-id=<id> --gtfs=<path.zip|dir> [--rebuild-graph] [--dedupe-threshold=30]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(*gtfsPath)
	if os.IsNotExist(err) {
		log.Fatalf("GTFS path not found: %s", *gtfsPath)
	}

	log.Println("Starting GTFS import...")
	log.Printf("Agency ID: %s", *agencyID)
	log.Printf("GTFS path: %s", *gtfsPath)

	// Initialize database connection
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if err := ensureSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Create import log entry
	importLog, err := createImportLog(ctx, pool, *agencyID)
	if err != nil {
		log.Fatalf("Failed to create import log: %v", err)
	}

	// Run import in transaction
	if err := runImport(ctx, pool, *agencyID, *gtfsPath, info.IsDir(), *dedupeThreshold, *rebuildGraph, importLog); err != nil {
		importLog.Status = "failed"
		importLog.Message = err.Error()
		if logErr := finishImportLog(ctx, pool, importLog); logErr != nil {
			log.Printf("Warning: failed to update import log: %v", logErr)
		}
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("Import completed successfully!")
}

func runImport(ctx context.Context, pool *pgxpool.Pool, agencyID, gtfsPath string, isDir bool, dedupeThreshold float64, rebuildGraph bool, logEntry models.ImportLog) error {
	startTime := time.Now()

	// Parse GTFS feed
	log.Println("Step 1/5: Parsing GTFS feed...")
	var feed *gtfs.Feed
	var err error
	if isDir {
		feed, err = gtfs.ParseDir(gtfsPath)
	} else {
		feed, err = gtfs.ParseZip(gtfsPath)
	}
	if err != nil {
		return fmt.Errorf("failed to parse GTFS: %w", err)
	}

	// Validate and clean stops
	log.Println("Step 2/5: Validating and cleaning stops...")
	feed.Stops = gtfs.ValidateAndCleanStops(feed.Stops)

	// Deduplicate stops
	log.Println("Step 3/5: Deduplicating stops...")
	var stopMapping map[string]string
	feed.Stops, stopMapping = gtfs.DeduplicateStops(feed.Stops, dedupeThreshold)

	// Remap stop IDs in stop_times to use deduplicated stops
	for i := range feed.StopTimes {
		if newID, ok := stopMapping[feed.StopTimes[i].StopID]; ok {
			feed.StopTimes[i].StopID = newID
		}
	}

	headways := gtfs.ComputeHeadways(feed)

	// Begin transaction
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Step 4/5: Importing stops and routes to database...")
	if err := importStops(ctx, tx, agencyID, feed.Stops); err != nil {
		return fmt.Errorf("failed to import stops: %w", err)
	}

	if err := importRoutes(ctx, tx, agencyID, feed.Routes, headways); err != nil {
		return fmt.Errorf("failed to import routes: %w", err)
	}

	if err := importTrips(ctx, tx, agencyID, feed.Trips); err != nil {
		return fmt.Errorf("failed to import trips: %w", err)
	}

	if err := importFrequencies(ctx, tx, agencyID, feed.Frequencies); err != nil {
		return fmt.Errorf("failed to import frequencies: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Import stop_times in separate chunked transactions (too large for single tx)
	log.Printf("Step 4b/5: Importing %d stop_times...", len(feed.StopTimes))
	if err := importStopTimesChunked(ctx, pool, agencyID, feed.StopTimes); err != nil {
		return fmt.Errorf("failed to import stop_times: %w", err)
	}

	nodeCount := 0
	edgeCount := 0

	if rebuildGraph {
		log.Println("Step 5/5: Building routing graph...")
		builder := graph.NewBuilder(pool)
		if err := builder.RebuildFromDB(ctx); err != nil {
			return fmt.Errorf("failed to build graph: %w", err)
		}

		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM node").Scan(&nodeCount); err != nil {
			log.Printf("Warning: failed to count nodes: %v", err)
		}
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM edge").Scan(&edgeCount); err != nil {
			log.Printf("Warning: failed to count edges: %v", err)
		}
	} else {
		log.Println("Step 5/5: Skipping graph build (use --rebuild-graph to enable)")
	}

	duration := time.Since(startTime)
	log.Printf("Import completed in %s", duration)

	logEntry.Status = "success"
	logEntry.Message = fmt.Sprintf("Imported %d stops, %d routes, %d trips",
		len(feed.Stops), len(feed.Routes), len(feed.Trips))
	return finishImportLog(ctx, pool, logEntry)
}

// ensureSchema creates the tables this importer and the graph builder write
// to. Idempotent, safe to run on every import.
func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS stop (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			agency_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS route (
			id TEXT PRIMARY KEY,
			agency_id TEXT,
			short_name TEXT,
			long_name TEXT,
			color TEXT,
			mode TEXT NOT NULL DEFAULT 'BUS',
			median_headway_secs DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS trip (
			trip_id TEXT NOT NULL,
			agency_id TEXT NOT NULL,
			route_id TEXT NOT NULL,
			service_id TEXT,
			shape_id TEXT,
			headsign TEXT,
			direction INT,
			PRIMARY KEY (agency_id, trip_id)
		)`,
		`CREATE TABLE IF NOT EXISTS stop_time (
			trip_id TEXT NOT NULL,
			agency_id TEXT NOT NULL,
			stop_id TEXT NOT NULL,
			stop_sequence INT NOT NULL,
			arrival_time TEXT,
			departure_time TEXT,
			arrival_seconds INT,
			departure_seconds INT,
			PRIMARY KEY (agency_id, trip_id, stop_sequence)
		)`,
		`CREATE TABLE IF NOT EXISTS frequency (
			trip_id TEXT NOT NULL,
			agency_id TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			headway_secs INT NOT NULL,
			PRIMARY KEY (agency_id, trip_id, start_time)
		)`,
		`CREATE TABLE IF NOT EXISTS node (
			id BIGSERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			stop_id TEXT,
			name TEXT,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edge (
			from_node_id BIGINT NOT NULL,
			to_node_id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			duration_secs DOUBLE PRECISION NOT NULL,
			route_id TEXT,
			shape_id TEXT,
			headsign TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS import_log (
			id BIGSERIAL PRIMARY KEY,
			agency_id TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stop_time_trip ON stop_time (agency_id, trip_id, stop_sequence)`,
		`CREATE INDEX IF NOT EXISTS idx_edge_from ON edge (from_node_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_node_stop ON node (stop_id)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

func createImportLog(ctx context.Context, pool *pgxpool.Pool, agencyID string) (models.ImportLog, error) {
	entry := models.ImportLog{AgencyID: agencyID, Status: "running"}
	err := pool.QueryRow(ctx, `
		INSERT INTO import_log (agency_id, status)
		VALUES ($1, $2)
		RETURNING id, started_at
	`, entry.AgencyID, entry.Status).Scan(&entry.ID, &entry.StartedAt)

	return entry, err
}

func finishImportLog(ctx context.Context, pool *pgxpool.Pool, entry models.ImportLog) error {
	_, err := pool.Exec(ctx, `
		UPDATE import_log
		SET completed_at = NOW(),
		    status = $2,
		    message = $3
		WHERE id = $1
	`, entry.ID, entry.Status, entry.Message)

	return err
}

func importStops(ctx context.Context, tx pgx.Tx, agencyID string, stops []models.GTFSStop) error {
	batch := &pgx.Batch{}

	for _, stop := range stops {
		batch.Queue(`
			INSERT INTO stop (id, name, lat, lon, agency_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    lat = EXCLUDED.lat,
			    lon = EXCLUDED.lon,
			    agency_id = EXCLUDED.agency_id
		`, stop.StopID, stop.StopName, stop.Lat, stop.Lon, agencyID)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert stop %d: %w", i, err)
		}
	}

	log.Printf("Imported %d stops", len(stops))
	return nil
}

func importRoutes(ctx context.Context, tx pgx.Tx, agencyID string, routes []models.GTFSRoute, headways map[string]float64) error {
	batch := &pgx.Batch{}

	for _, route := range routes {
		mode := gtfs.InferMode(route)
		color := gtfs.NormalizeColor(route.RouteColor)

		var headway interface{}
		if h, ok := headways[route.RouteID]; ok && h > 0 {
			headway = h
		}

		batch.Queue(`
			INSERT INTO route (id, agency_id, short_name, long_name, color, mode, median_headway_secs)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET agency_id = EXCLUDED.agency_id,
			    short_name = EXCLUDED.short_name,
			    long_name = EXCLUDED.long_name,
			    color = EXCLUDED.color,
			    mode = EXCLUDED.mode,
			    median_headway_secs = EXCLUDED.median_headway_secs
		`, route.RouteID, agencyID, route.ShortName, route.LongName, color, mode, headway)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert route %d: %w", i, err)
		}
	}

	log.Printf("Imported %d routes", len(routes))
	return nil
}

func importTrips(ctx context.Context, tx pgx.Tx, agencyID string, trips []models.GTFSTrip) error {
	if len(trips) == 0 {
		log.Println("No trips to import")
		return nil
	}

	batch := &pgx.Batch{}
	count := 0

	for _, trip := range trips {
		batch.Queue(`
			INSERT INTO trip (trip_id, agency_id, route_id, service_id, shape_id, headsign, direction)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (agency_id, trip_id) DO UPDATE
			SET route_id = EXCLUDED.route_id,
			    service_id = EXCLUDED.service_id,
			    shape_id = EXCLUDED.shape_id,
			    headsign = EXCLUDED.headsign,
			    direction = EXCLUDED.direction
		`, trip.TripID, agencyID, trip.RouteID, trip.ServiceID, trip.ShapeID, trip.Headsign, trip.Direction)

		count++
		if batch.Len() >= 1000 {
			results := tx.SendBatch(ctx, batch)
			for i := 0; i < batch.Len(); i++ {
				if _, err := results.Exec(); err != nil {
					results.Close()
					return fmt.Errorf("failed to insert trip batch at %d: %w", count, err)
				}
			}
			results.Close()
			batch = &pgx.Batch{}
		}
	}

	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to insert trip final batch: %w", err)
			}
		}
		results.Close()
	}

	log.Printf("Imported %d trips", count)
	return nil
}

func importFrequencies(ctx context.Context, tx pgx.Tx, agencyID string, frequencies []models.GTFSFrequency) error {
	if len(frequencies) == 0 {
		log.Println("No frequencies to import")
		return nil
	}

	batch := &pgx.Batch{}

	for _, freq := range frequencies {
		batch.Queue(`
			INSERT INTO frequency (trip_id, agency_id, start_time, end_time, headway_secs)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (agency_id, trip_id, start_time) DO UPDATE
			SET end_time = EXCLUDED.end_time,
			    headway_secs = EXCLUDED.headway_secs
		`, freq.TripID, agencyID, freq.StartTime, freq.EndTime, freq.HeadwaySecs)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert frequency %d: %w", i, err)
		}
	}

	log.Printf("Imported %d frequencies", len(frequencies))
	return nil
}

func importStopTimesChunked(ctx context.Context, pool *pgxpool.Pool, agencyID string, stopTimes []models.GTFSStopTime) error {
	if len(stopTimes) == 0 {
		log.Println("No stop_times to import")
		return nil
	}

	chunkSize := 50000
	total := len(stopTimes)

	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		chunk := stopTimes[start:end]

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin tx at offset %d: %w", start, err)
		}

		batch := &pgx.Batch{}
		for _, st := range chunk {
			// Malformed times are stored as NULL seconds, never as 0
			var arrSec, depSec *int
			if v, err := gtfs.ParseTimeToSeconds(st.ArrivalTime); err == nil {
				arrSec = &v
			}
			if v, err := gtfs.ParseTimeToSeconds(st.DepartureTime); err == nil {
				depSec = &v
			}

			batch.Queue(`
				INSERT INTO stop_time (trip_id, agency_id, stop_id, stop_sequence,
					arrival_time, departure_time, arrival_seconds, departure_seconds)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (agency_id, trip_id, stop_sequence) DO UPDATE
				SET stop_id = EXCLUDED.stop_id,
				    arrival_time = EXCLUDED.arrival_time,
				    departure_time = EXCLUDED.departure_time,
				    arrival_seconds = EXCLUDED.arrival_seconds,
				    departure_seconds = EXCLUDED.departure_seconds
			`, st.TripID, agencyID, st.StopID, st.StopSequence,
				st.ArrivalTime, st.DepartureTime, arrSec, depSec)

			if batch.Len() >= 1000 {
				results := tx.SendBatch(ctx, batch)
				for i := 0; i < batch.Len(); i++ {
					if _, err := results.Exec(); err != nil {
						results.Close()
						tx.Rollback(ctx)
						return fmt.Errorf("failed to insert stop_time batch: %w", err)
					}
				}
				results.Close()
				batch = &pgx.Batch{}
			}
		}

		if batch.Len() > 0 {
			results := tx.SendBatch(ctx, batch)
			for i := 0; i < batch.Len(); i++ {
				if _, err := results.Exec(); err != nil {
					results.Close()
					tx.Rollback(ctx)
					return fmt.Errorf("failed to insert stop_time final batch: %w", err)
				}
			}
			results.Close()
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit stop_times chunk at %d: %w", start, err)
		}

		log.Printf("  Imported stop_times %d-%d / %d", start+1, end, total)
	}

	log.Printf("Imported %d stop_times total", total)
	return nil
}
