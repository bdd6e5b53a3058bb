package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rutagdl/ruta_core/internal/cache"
	"github.com/rutagdl/ruta_core/internal/db"
	"github.com/rutagdl/ruta_core/internal/graph"
	"github.com/rutagdl/ruta_core/internal/models"
	"github.com/rutagdl/ruta_core/internal/routing"
)

// Handler serves the public API over an explicitly injected graph. All route
// computation runs against the in-memory graph; the database is only touched
// by the health check.
type Handler struct {
	Graph    *graph.Graph
	Planner  *routing.Planner
	CacheTTL time.Duration
}

// NewHandler creates an API handler over the given graph.
func NewHandler(g *graph.Graph) *Handler {
	return &Handler{
		Graph:    g,
		Planner:  routing.NewPlanner(g),
		CacheTTL: 10 * time.Minute,
	}
}

// PlanRouteResponse is the /v2/plan-route response structure
type PlanRouteResponse struct {
	Itineraries []*models.Itinerary `json:"itineraries"`
	Count       int                 `json:"count"`
}

// PlanRoute handles the /v2/plan-route endpoint
func (h *Handler) PlanRoute(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")

	if fromStr == "" || toStr == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required parameters: from and to",
		})
	}

	fromLat, fromLon, err := parseCoordinates(fromStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid 'from' coordinates: %v", err),
		})
	}

	toLat, toLon, err := parseCoordinates(toStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid 'to' coordinates: %v", err),
		})
	}

	opts, optsKey, err := parseOptions(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	itineraries, err := h.computePlan(c.Context(), fromLat, fromLon, toLat, toLon, opts, optsKey)
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrNoRouteFound):
			return c.Status(404).JSON(fiber.Map{
				"error": "no route found between the specified locations",
			})
		case errors.Is(err, routing.ErrSearchTimeout):
			return c.Status(504).JSON(fiber.Map{
				"error": "route search timed out, try again",
			})
		default:
			log.Printf("Plan computation failed: %v", err)
			return c.Status(500).JSON(fiber.Map{
				"error": "internal server error",
			})
		}
	}

	return c.JSON(PlanRouteResponse{
		Itineraries: itineraries,
		Count:       len(itineraries),
	})
}

// parseOptions reads the optional search parameters and returns both the
// parsed options and a canonical string for the cache key.
func parseOptions(c *fiber.Ctx) (routing.Options, string, error) {
	opts := routing.Options{}

	if v := c.Query("walk_minutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes < 1 || minutes > 30 {
			return opts, "", fmt.Errorf("invalid walk_minutes (must be between 1 and 30)")
		}
		opts.WalkRadius = time.Duration(minutes) * time.Minute
	}

	if v := c.Query("max_alternatives"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > routing.DefaultMaxAlternatives {
			return opts, "", fmt.Errorf("invalid max_alternatives (must be between 1 and %d)", routing.DefaultMaxAlternatives)
		}
		opts.MaxAlternatives = n
	}

	switch c.Query("exclusion", "first") {
	case "first":
		opts.ExclusionPolicy = routing.ExcludeFirstLeg
	case "all":
		opts.ExclusionPolicy = routing.ExcludeAllLegs
	default:
		return opts, "", fmt.Errorf("invalid exclusion (must be 'first' or 'all')")
	}

	key := fmt.Sprintf("w=%s,n=%d,x=%d", opts.WalkRadius, opts.MaxAlternatives, opts.ExclusionPolicy)
	return opts, key, nil
}

// computePlan runs the planner with caching and a per-key mutex so that
// concurrent identical requests compute the answer once.
func (h *Handler) computePlan(ctx context.Context, fromLat, fromLon, toLat, toLon float64, opts routing.Options, optsKey string) ([]*models.Itinerary, error) {
	cacheKey := cache.PlanKey(fromLat, fromLon, toLat, toLon, optsKey)
	lockKey := cache.LockKey(cacheKey)

	cached, err := cache.GetPlan(ctx, cacheKey)
	if err == nil && cached != nil {
		return cached, nil
	}

	acquired, err := cache.AcquireLock(ctx, lockKey, 5*time.Second)
	if err != nil {
		log.Printf("Failed to acquire lock: %v", err)
		// Continue without lock (degrade gracefully)
	} else if !acquired {
		// Another request is computing this plan, wait for it
		cached, err := cache.WaitForLock(ctx, cacheKey, 3*time.Second)
		if err == nil && cached != nil {
			return cached, nil
		}
		// If waiting failed, compute anyway
	}

	defer func() {
		if acquired {
			cache.ReleaseLock(ctx, lockKey)
		}
	}()

	itineraries, err := h.Planner.PlanRoute(ctx, fromLat, fromLon, toLat, toLon, opts)
	if err != nil {
		return nil, err
	}

	if err := cache.SetPlan(ctx, cacheKey, itineraries, h.CacheTTL); err != nil {
		log.Printf("Failed to cache plan: %v", err)
	}

	return itineraries, nil
}

// NearbyStopsResponse represents the response for nearby stops
type NearbyStopsResponse struct {
	Stops []NearbyStop `json:"stops"`
}

// NearbyRouteInfo represents a route serving a nearby stop
type NearbyRouteInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	AgencyID   string `json:"agency_id"`
	AgencyName string `json:"agency_name"`
}

// NearbyStop represents a nearby stop with its routes
type NearbyStop struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Lat         float64           `json:"lat"`
	Lon         float64           `json:"lon"`
	DistanceM   int               `json:"distance_meters"`
	Modes       []string          `json:"modes"`
	Routes      []NearbyRouteInfo `json:"routes"`
	RoutesCount int               `json:"routes_count"`
}

// StopsNearby handles the /v2/stops/nearby endpoint using the in-memory
// spatial index.
func (h *Handler) StopsNearby(c *fiber.Ctx) error {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	radiusStr := c.Query("radius", "500")

	if latStr == "" || lonStr == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required parameters: lat and lon",
		})
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid latitude",
		})
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid longitude",
		})
	}

	radius, err := strconv.Atoi(radiusStr)
	if err != nil || radius < 0 || radius > 5000 {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid radius (must be between 0 and 5000 meters)",
		})
	}

	p := h.Graph.Projection.Project(lat, lon)
	hits := h.Graph.NearbyStops(p, float64(radius))

	stops := []NearbyStop{}
	for _, hit := range hits {
		if len(stops) >= 20 {
			break
		}
		node, ok := h.Graph.Node(hit.ID)
		if !ok {
			continue
		}

		stop := NearbyStop{
			ID:        node.StopID,
			Name:      node.Name,
			Lat:       node.Lat,
			Lon:       node.Lon,
			DistanceM: int(hit.Distance),
			Routes:    []NearbyRouteInfo{},
			Modes:     []string{},
		}

		for _, routeID := range h.routesAtNode(node.ID) {
			info, ok := h.Graph.Route(routeID)
			if !ok {
				info = models.RouteInfo{ID: routeID, Name: routeID}
			}
			stop.Routes = append(stop.Routes, NearbyRouteInfo{
				ID:         info.ID,
				Name:       info.Name,
				Mode:       string(info.Mode),
				AgencyID:   info.AgencyID,
				AgencyName: agencyDisplayName(info.AgencyID),
			})
			modeStr := string(info.Mode)
			found := false
			for _, m := range stop.Modes {
				if m == modeStr {
					found = true
					break
				}
			}
			if !found && modeStr != "" {
				stop.Modes = append(stop.Modes, modeStr)
			}
		}

		stop.RoutesCount = len(stop.Routes)
		stops = append(stops, stop)
	}

	return c.JSON(NearbyStopsResponse{
		Stops: stops,
	})
}

// routesAtNode returns the sorted unique route IDs of the transit edges
// leaving a node.
func (h *Handler) routesAtNode(nodeID int64) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range h.Graph.OutEdges(nodeID) {
		if e.Kind == models.EdgeTransit && e.RouteID != "" && !seen[e.RouteID] {
			seen[e.RouteID] = true
			ids = append(ids, e.RouteID)
		}
	}
	sort.Strings(ids)
	return ids
}

// RoutesListResponse represents the response for routes list
type RoutesListResponse struct {
	Routes []RouteSummary `json:"routes"`
	Total  int            `json:"total"`
}

// RouteSummary represents route information in list responses
type RouteSummary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Color         string  `json:"color,omitempty"`
	Mode          string  `json:"mode"`
	AgencyID      string  `json:"agency_id"`
	AgencyName    string  `json:"agency_name"`
	HeadwayMins   float64 `json:"headway_minutes,omitempty"`
	VariantsCount int     `json:"variants_count"`
}

// RoutesList handles the /v2/routes/list endpoint
func (h *Handler) RoutesList(c *fiber.Ctx) error {
	mode := strings.ToUpper(c.Query("mode"))
	agency := c.Query("agency")

	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	ids := make([]string, 0, len(h.Graph.Routes))
	for id := range h.Graph.Routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	routes := []RouteSummary{}
	for _, id := range ids {
		if len(routes) >= limit {
			break
		}
		info := h.Graph.Routes[id]
		if mode != "" && string(info.Mode) != mode {
			continue
		}
		if agency != "" && info.AgencyID != agency {
			continue
		}
		routes = append(routes, routeSummary(info))
	}

	return c.JSON(RoutesListResponse{
		Routes: routes,
		Total:  len(routes),
	})
}

// RouteDetail handles the /v2/routes/:id endpoint
func (h *Handler) RouteDetail(c *fiber.Ctx) error {
	id := c.Params("id")

	info, ok := h.Graph.Route(id)
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": fmt.Sprintf("route %q not found", id),
		})
	}

	summary := routeSummary(info)
	return c.JSON(fiber.Map{
		"route":  summary,
		"shapes": info.Shapes,
	})
}

func routeSummary(info models.RouteInfo) RouteSummary {
	return RouteSummary{
		ID:            info.ID,
		Name:          info.Name,
		Color:         info.Color,
		Mode:          string(info.Mode),
		AgencyID:      info.AgencyID,
		AgencyName:    agencyDisplayName(info.AgencyID),
		HeadwayMins:   info.MedianHeadway / 60,
		VariantsCount: len(info.Shapes),
	}
}

// Health handles the /health endpoint
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbErr := db.HealthCheck(ctx)
	dbStatus := "ok"
	if dbErr != nil {
		dbStatus = dbErr.Error()
	}

	redisErr := cache.HealthCheck(ctx)
	redisStatus := "ok"
	if redisErr != nil {
		redisStatus = redisErr.Error()
	}

	status := "healthy"
	httpStatus := 200
	if dbErr != nil || redisErr != nil {
		status = "unhealthy"
		httpStatus = 503
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"graph": fiber.Map{
			"nodes":  h.Graph.NodeCount(),
			"edges":  h.Graph.EdgeCount(),
			"routes": len(h.Graph.Routes),
		},
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

// parseCoordinates parses "lat,lon" string into floats
func parseCoordinates(coordStr string) (lat, lon float64, err error) {
	parts := strings.Split(coordStr, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected format: lat,lon")
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}

	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}

	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude must be between -180 and 180")
	}

	return lat, lon, nil
}

// agencyDisplayName maps agency_id patterns to human-readable names
func agencyDisplayName(agencyID string) string {
	upper := strings.ToUpper(agencyID)
	switch {
	case strings.Contains(upper, "SITEUR"):
		return "SITEUR"
	case strings.Contains(upper, "MACRO"):
		return "Mi Macro"
	case strings.Contains(upper, "TROLE"):
		return "Trolebús"
	case strings.Contains(upper, "ALIMENTADOR"):
		return "Alimentadora"
	default:
		return agencyID
	}
}
