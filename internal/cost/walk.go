package cost

import (
	"errors"
	"fmt"
)

// ErrInvalidDistance indicates a malformed (negative) distance from the caller.
var ErrInvalidDistance = errors.New("invalid distance")

// WalkMode selects the walking speed regime.
type WalkMode int

const (
	// WalkOnPath reflects routed distance along the walking network.
	WalkOnPath WalkMode = iota
	// WalkDirect penalizes straight-line fallback estimates, which
	// underestimate the true walking distance.
	WalkDirect
)

// Walking speeds in meters per second.
const (
	SpeedOnPath = 5.0 * 1000 / 3600 // 5 km/h
	SpeedDirect = 3.0 * 1000 / 3600 // 3 km/h
)

// WalkDuration converts a distance in meters into a walking duration in
// seconds under the given regime.
func WalkDuration(distanceMeters float64, mode WalkMode) (float64, error) {
	if distanceMeters < 0 {
		return 0, fmt.Errorf("%w: %f meters", ErrInvalidDistance, distanceMeters)
	}

	speed := SpeedOnPath
	if mode == WalkDirect {
		speed = SpeedDirect
	}

	return distanceMeters / speed, nil
}
