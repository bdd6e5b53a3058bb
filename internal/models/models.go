package models

import (
	"time"

	"github.com/rutagdl/ruta_core/internal/geo"
)

// TransitMode represents the type of transit service operating in the ZMG
type TransitMode string

const (
	ModeBus       TransitMode = "BUS"
	ModeBRT       TransitMode = "BRT"   // Mi Macro (Macrobús)
	ModeLightRail TransitMode = "TREN"  // Tren Ligero (SITEUR)
	ModeTrolley   TransitMode = "TROLE" // Trolebús
)

// NodeKind distinguishes walking-network nodes from transit stops
type NodeKind string

const (
	NodeWalk NodeKind = "WALK"
	NodeStop NodeKind = "STOP"
)

// EdgeKind represents the type of connection between nodes
type EdgeKind string

const (
	EdgeWalk    EdgeKind = "WALK"
	EdgeTransit EdgeKind = "TRANSIT"
)

// Node is a point in the combined routing graph. Immutable once the graph
// is built.
type Node struct {
	ID     int64
	Kind   NodeKind
	StopID string // empty for walking-network nodes
	Name   string
	Lat    float64
	Lon    float64
	Point  geo.Point // projected planar coordinate
}

// Edge is a directed connection between two nodes. Walk edges carry a fixed
// duration; transit edges carry the scheduled stop-to-stop delta plus the
// route and shape they belong to. A non-positive duration on a transit edge
// means the schedule has no recorded timing for the segment.
type Edge struct {
	FromNodeID int64
	ToNodeID   int64
	Kind       EdgeKind
	Duration   float64 // seconds
	RouteID    string  // transit only
	ShapeID    string  // transit only, unit of exclusion for alternatives
	Headsign   string  // transit only
}

// RouteInfo is the read-only per-route metadata table entry.
type RouteInfo struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Color         string      `json:"color"`
	Mode          TransitMode `json:"mode"`
	AgencyID      string      `json:"agency_id"`
	MedianHeadway float64     `json:"median_headway_seconds"` // 0 if not computable
	Shapes        []string    `json:"shapes"`
}

// Place is an endpoint of an itinerary segment. The origin and destination
// coordinates supplied by the caller appear as synthetic places with the
// reserved IDs below.
type Place struct {
	NodeID int64     `json:"node_id"`
	StopID string    `json:"stop_id,omitempty"`
	Name   string    `json:"name"`
	Lat    float64   `json:"lat"`
	Lon    float64   `json:"lon"`
	Point  geo.Point `json:"-"`
}

// Reserved node IDs for the true origin and destination coordinates.
const (
	OriginNodeID      int64 = -1
	DestinationNodeID int64 = -2
)

// RouteRef is the route metadata attached to a transit segment.
type RouteRef struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Color    string      `json:"color,omitempty"`
	Mode     TransitMode `json:"mode,omitempty"`
	Headsign string      `json:"headsign,omitempty"`
}

// Segment is one leg of an itinerary: either a walk or a ride on a single
// route. Wait is the boarding wait incurred at the start of a ride.
type Segment struct {
	Mode     EdgeKind  `json:"mode"`
	From     Place     `json:"from"`
	To       Place     `json:"to"`
	Duration float64   `json:"duration_seconds"`
	Wait     float64   `json:"wait_seconds,omitempty"`
	Route    *RouteRef `json:"route,omitempty"`
	Shapes   []string  `json:"-"` // shapes traversed, unit of exclusion
	Stops    int       `json:"num_stops,omitempty"`
}

// Itinerary is an ordered, contiguous sequence of segments. TotalTime is
// always the sum of segment durations and waits, never recomputed elsewhere.
type Itinerary struct {
	Segments  []Segment `json:"segments"`
	TotalTime float64   `json:"total_seconds"`
	Transfers int       `json:"transfers"`
}

// RouteSequence returns the ordered route IDs ridden by this itinerary.
// Two itineraries with the same sequence are considered duplicates by the
// alternative generator.
func (it *Itinerary) RouteSequence() []string {
	var seq []string
	for _, s := range it.Segments {
		if s.Mode == EdgeTransit && s.Route != nil {
			seq = append(seq, s.Route.ID)
		}
	}
	return seq
}

// FirstTransitShapes returns the shape IDs of the first transit segment,
// or nil for a walk-only itinerary.
func (it *Itinerary) FirstTransitShapes() []string {
	for _, s := range it.Segments {
		if s.Mode == EdgeTransit {
			return s.Shapes
		}
	}
	return nil
}

// AllTransitShapes returns the shape IDs of every transit segment.
func (it *Itinerary) AllTransitShapes() []string {
	var shapes []string
	for _, s := range it.Segments {
		if s.Mode == EdgeTransit {
			shapes = append(shapes, s.Shapes...)
		}
	}
	return shapes
}

// GTFS data structures for import

// GTFSStop represents a stop from stops.txt
type GTFSStop struct {
	StopID   string
	StopName string
	Lat      float64
	Lon      float64
}

// GTFSRoute represents a route from routes.txt
type GTFSRoute struct {
	RouteID    string
	AgencyID   string
	ShortName  string
	LongName   string
	RouteType  int
	RouteColor string
}

// GTFSTrip represents a trip from trips.txt
type GTFSTrip struct {
	RouteID   string
	ServiceID string
	TripID    string
	ShapeID   string
	Headsign  string
	Direction int
}

// GTFSStopTime represents a stop time from stop_times.txt
type GTFSStopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int
}

// GTFSFrequency represents a headway entry from frequencies.txt
type GTFSFrequency struct {
	TripID      string
	StartTime   string
	EndTime     string
	HeadwaySecs int
}

// ImportLog is one row of the import_log audit table.
type ImportLog struct {
	ID          int64
	AgencyID    string
	Status      string
	Message     string
	StartedAt   time.Time
	CompletedAt *time.Time
}
