package gtfs

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/rutagdl/ruta_core/internal/cost"
	"github.com/rutagdl/ruta_core/internal/geo"
	"github.com/rutagdl/ruta_core/internal/models"
)

// InferMode determines the transit mode from a GTFS route.
// Priority: operator keyword matching, then the route_type field, default BUS.
func InferMode(route models.GTFSRoute) models.TransitMode {
	routeName := strings.ToUpper(route.ShortName + " " + route.LongName)

	if strings.Contains(routeName, "MACRO") || strings.Contains(routeName, "BRT") {
		return models.ModeBRT
	}
	if strings.Contains(routeName, "TREN") || strings.Contains(routeName, "SITEUR") {
		return models.ModeLightRail
	}
	if strings.Contains(routeName, "TROLE") {
		return models.ModeTrolley
	}

	// GTFS route_type mapping
	// https://developers.google.com/transit/gtfs/reference#routestxt
	switch route.RouteType {
	case 0, 1, 2: // Light rail, metro, rail
		return models.ModeLightRail
	case 3: // Bus
		return models.ModeBus
	case 11: // Trolleybus
		return models.ModeTrolley
	}

	return models.ModeBus
}

// RouteDisplayName picks a display name for a route: short name first,
// then long name, then the raw ID.
func RouteDisplayName(route models.GTFSRoute) string {
	if route.ShortName != "" {
		return route.ShortName
	}
	if route.LongName != "" {
		return route.LongName
	}
	return route.RouteID
}

// NormalizeColor ensures route colors carry a leading '#'.
func NormalizeColor(color string) string {
	if color == "" || strings.HasPrefix(color, "#") {
		return color
	}
	return "#" + color
}

// ParseTimeToSeconds converts GTFS time format (HH:MM:SS) to seconds.
// Handles times >= 24:00:00 (next day service).
func ParseTimeToSeconds(timeStr string) (int, error) {
	if timeStr == "" {
		return 0, fmt.Errorf("empty time string")
	}

	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time format: %s", timeStr)
	}

	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", timeStr)
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", timeStr)
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q", timeStr)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("time out of range: %s", timeStr)
	}

	return hours*3600 + minutes*60 + seconds, nil
}

// ComputeHeadways derives one median headway per route, in seconds.
// Preferred source is frequencies.txt (one observation per trip); routes
// without frequency entries fall back to deltas between successive first-stop
// departures of their trips. Routes where neither yields an observation are
// reported with 0 (no computable headway).
func ComputeHeadways(feed *Feed) map[string]float64 {
	tripRoute := make(map[string]string, len(feed.Trips))
	for _, t := range feed.Trips {
		tripRoute[t.TripID] = t.RouteID
	}

	observed := make(map[string][]float64)
	for _, f := range feed.Frequencies {
		routeID, ok := tripRoute[f.TripID]
		if !ok || f.HeadwaySecs <= 0 {
			continue
		}
		observed[routeID] = append(observed[routeID], float64(f.HeadwaySecs))
	}

	// Fallback: successive departures of a route's trips from their first stop
	firstDeparture := make(map[string]int) // tripID -> seconds
	firstSeq := make(map[string]int)
	for _, st := range feed.StopTimes {
		seq, seen := firstSeq[st.TripID]
		if seen && st.StopSequence >= seq {
			continue
		}
		secs, err := ParseTimeToSeconds(st.DepartureTime)
		if err != nil {
			continue
		}
		firstSeq[st.TripID] = st.StopSequence
		firstDeparture[st.TripID] = secs
	}

	routeDepartures := make(map[string][]int)
	for tripID, dep := range firstDeparture {
		routeID, ok := tripRoute[tripID]
		if !ok {
			continue
		}
		routeDepartures[routeID] = append(routeDepartures[routeID], dep)
	}

	headways := make(map[string]float64)
	for _, t := range feed.Trips {
		if _, done := headways[t.RouteID]; done {
			continue
		}

		obs := observed[t.RouteID]
		if len(obs) == 0 {
			deps := routeDepartures[t.RouteID]
			sort.Ints(deps)
			for i := 1; i < len(deps); i++ {
				obs = append(obs, float64(deps[i]-deps[i-1]))
			}
		}

		headways[t.RouteID] = cost.MedianHeadway(obs)
	}

	return headways
}

// ValidateAndCleanStops removes stops with invalid coordinates.
func ValidateAndCleanStops(stops []models.GTFSStop) []models.GTFSStop {
	cleaned := []models.GTFSStop{}

	for _, stop := range stops {
		if stop.Lat < -90 || stop.Lat > 90 {
			log.Printf("Warning: invalid latitude for stop %s: %f", stop.StopID, stop.Lat)
			continue
		}
		if stop.Lon < -180 || stop.Lon > 180 {
			log.Printf("Warning: invalid longitude for stop %s: %f", stop.StopID, stop.Lon)
			continue
		}
		if stop.Lat == 0 && stop.Lon == 0 {
			log.Printf("Warning: stop %s has null island coordinates, skipping", stop.StopID)
			continue
		}

		cleaned = append(cleaned, stop)
	}

	if len(cleaned) < len(stops) {
		log.Printf("Cleaned stops: removed %d invalid stops", len(stops)-len(cleaned))
	}

	return cleaned
}

// DeduplicateStops removes duplicate stops within a threshold distance.
// Returns deduplicated stops and a mapping from old stop IDs to kept stop IDs.
func DeduplicateStops(stops []models.GTFSStop, thresholdMeters float64) ([]models.GTFSStop, map[string]string) {
	if len(stops) == 0 {
		return stops, make(map[string]string)
	}

	deduplicated := []models.GTFSStop{}
	skipIndices := make(map[int]bool)
	stopMapping := make(map[string]string) // old_id -> kept_id

	for i := 0; i < len(stops); i++ {
		if skipIndices[i] {
			continue
		}

		currentStop := stops[i]
		deduplicated = append(deduplicated, currentStop)
		stopMapping[currentStop.StopID] = currentStop.StopID

		for j := i + 1; j < len(stops); j++ {
			if skipIndices[j] {
				continue
			}

			distance := geo.Haversine(
				currentStop.Lat, currentStop.Lon,
				stops[j].Lat, stops[j].Lon,
			)

			if distance < thresholdMeters {
				log.Printf("Deduplicating stop %s (duplicate of %s, distance: %.2fm)",
					stops[j].StopID, currentStop.StopID, distance)
				skipIndices[j] = true
				stopMapping[stops[j].StopID] = currentStop.StopID
			}
		}
	}

	log.Printf("Deduplicated %d stops to %d (removed %d duplicates)",
		len(stops), len(deduplicated), len(stops)-len(deduplicated))

	return deduplicated, stopMapping
}
