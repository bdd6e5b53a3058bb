package cost

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rutagdl/ruta_core/internal/models"
)

// ErrMissingSchedule indicates a transit segment with no recorded timing.
// The search treats such an edge as unusable rather than failing the request.
var ErrMissingSchedule = errors.New("missing schedule")

// DefaultWaitTime is charged when a route has no computable headway: a single
// scheduled trip models poor reliability, not instant boarding. Zero would
// make infrequent routes artificially attractive.
const DefaultWaitTime = 1800.0 // seconds

// TransitModel answers travel-time and wait-time questions for transit edges
// against the read-only RouteInfo table.
type TransitModel struct {
	routes      map[string]models.RouteInfo
	defaultWait float64
}

// NewTransitModel creates a model over the given route table.
func NewTransitModel(routes map[string]models.RouteInfo) *TransitModel {
	return &TransitModel{routes: routes, defaultWait: DefaultWaitTime}
}

// NewTransitModelWithDefault creates a model with a custom fallback wait.
func NewTransitModelWithDefault(routes map[string]models.RouteInfo, defaultWait float64) *TransitModel {
	return &TransitModel{routes: routes, defaultWait: defaultWait}
}

// TravelTime returns the scheduled duration of a transit edge in seconds.
// Edges without a recorded timetable delta are reported as unusable.
func (m *TransitModel) TravelTime(e models.Edge) (float64, error) {
	if e.Kind != models.EdgeTransit {
		return 0, fmt.Errorf("not a transit edge: %s -> %d", e.RouteID, e.ToNodeID)
	}
	if e.Duration <= 0 {
		return 0, fmt.Errorf("%w: route %s shape %s", ErrMissingSchedule, e.RouteID, e.ShapeID)
	}
	return e.Duration, nil
}

// WaitTime returns the expected wait before boarding the given route: the
// median of its observed headways, or the configured default when the route
// has no computable headway.
func (m *TransitModel) WaitTime(routeID string) float64 {
	info, ok := m.routes[routeID]
	if !ok || info.MedianHeadway <= 0 {
		return m.defaultWait
	}
	return info.MedianHeadway
}

// MedianHeadway returns the median of the given headway observations in
// seconds, or 0 when none are usable.
func MedianHeadway(headways []float64) float64 {
	var usable []float64
	for _, h := range headways {
		if h > 0 {
			usable = append(usable, h)
		}
	}
	if len(usable) == 0 {
		return 0
	}

	sort.Float64s(usable)
	mid := len(usable) / 2
	if len(usable)%2 == 1 {
		return usable[mid]
	}
	return (usable[mid-1] + usable[mid]) / 2
}
