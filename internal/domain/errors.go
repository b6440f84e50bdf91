package domain

import (
	"errors"
	"fmt"
)

var (
	// Placement constants cannot fit the requested number of towers.
	ErrPlacementInfeasible = errors.New("tower placement infeasible")
	// The tower store could not be reached.
	ErrStoreUnreachable = errors.New("tower store unreachable")
	// Propagation speed must be strictly positive.
	ErrInvalidSpeed = errors.New("invalid propagation speed")
	// Arrival times cannot be computed without towers.
	ErrNoTowers = errors.New("no towers available")
	// An arrival time does not fit the millisecond timestamp range.
	ErrArrivalOutOfRange = errors.New("arrival time out of range")
	// A bundle was not sent because the dispatcher was saturated or shut down.
	ErrDispatchDropped = errors.New("bundle dispatch dropped")
)

// LocatorDispatchError reports a failed bundle delivery to the locator.
// StatusCode is zero when the request never produced a response.
type LocatorDispatchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *LocatorDispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("locator dispatch to %s: status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("locator dispatch to %s: %v", e.URL, e.Err)
}

func (e *LocatorDispatchError) Unwrap() error { return e.Err }
