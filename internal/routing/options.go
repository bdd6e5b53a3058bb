package routing

import (
	"time"

	"github.com/rutagdl/ruta_core/internal/cost"
)

// ExclusionPolicy selects which transit legs of previously found itineraries
// are forbidden in later search iterations.
type ExclusionPolicy int

const (
	// ExcludeFirstLeg forbids only the shapes of each itinerary's first
	// transit segment. Restricting just the initial boarding produces
	// materially different routes rather than trivial detours.
	ExcludeFirstLeg ExclusionPolicy = iota
	// ExcludeAllLegs forbids the shapes of every transit segment.
	ExcludeAllLegs
)

// Default search bounds.
const (
	DefaultWalkRadius      = 5 * time.Minute
	DefaultMaxAlternatives = 3
	DefaultTimeout         = 10 * time.Second
	DefaultMaxExpansions   = 50000
	// DefaultHeuristicSpeed bounds how fast anything in the network can
	// move; the A* ordering estimate divides straight-line distance by it.
	// Generous so the estimate stays a lower bound on remaining time.
	DefaultHeuristicSpeed = 25.0 // m/s
)

// Options bound a single plan request.
type Options struct {
	// WalkRadius is how long the traveler is willing to walk to reach the
	// first stop or leave the last one, expressed as walking time.
	WalkRadius time.Duration
	// MaxAlternatives caps how many diverse itineraries are returned.
	MaxAlternatives int
	// Timeout bounds the wall-clock time of each search iteration.
	Timeout time.Duration
	// MaxExpansions bounds how many labels one search may settle.
	MaxExpansions int
	// HeuristicSpeed tunes the A* ordering estimate; <= 0 disables it.
	HeuristicSpeed float64
	// ExclusionPolicy selects the granularity of shape exclusion.
	ExclusionPolicy ExclusionPolicy
}

func (o Options) withDefaults() Options {
	if o.WalkRadius <= 0 {
		o.WalkRadius = DefaultWalkRadius
	}
	if o.MaxAlternatives <= 0 {
		o.MaxAlternatives = DefaultMaxAlternatives
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxExpansions <= 0 {
		o.MaxExpansions = DefaultMaxExpansions
	}
	if o.HeuristicSpeed == 0 {
		o.HeuristicSpeed = DefaultHeuristicSpeed
	}
	return o
}

// walkRadiusMeters converts the walking-time radius into meters at the
// on-path walking speed.
func (o Options) walkRadiusMeters() float64 {
	return o.WalkRadius.Seconds() * cost.SpeedOnPath
}
