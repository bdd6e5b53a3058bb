package routing

import "errors"

var (
	// ErrNoRouteFound means the search space was exhausted without reaching
	// any node within walking distance of the destination. User-visible;
	// widening the walking radius may help.
	ErrNoRouteFound = errors.New("no route found")

	// ErrSearchTimeout means the expansion budget or wall-clock deadline was
	// exceeded. User-visible and retryable.
	ErrSearchTimeout = errors.New("search timeout")

	// ErrBrokenChain means the predecessor trace did not terminate at a seed
	// label. This is an internal invariant violation, never expected to
	// surface to a caller.
	ErrBrokenChain = errors.New("broken predecessor chain")
)
