package domain

import (
	"fmt"
	"math"
)

// DefaultSpeedOfSound is the propagation speed of sound in air, in world units per second.
const DefaultSpeedOfSound = 343.0

// Immutable integer position in the 2D world.
type Point struct {
	X int
	Y int
}

// Euclidean distance between two points. Differences are taken in float64
// so coordinates near the int range cannot wrap.
func Distance(p1, p2 Point) float64 {
	return math.Hypot(float64(p1.X)-float64(p2.X), float64(p1.Y)-float64(p2.Y))
}

// PropagationDelayMs converts a travel distance into a delay in milliseconds
// for a signal moving at a constant speed (units per second).
func PropagationDelayMs(distance, speed float64) (float64, error) {
	if err := ValidateSpeed(speed); err != nil {
		return 0, err
	}
	return distance / speed * 1000.0, nil
}

// ValidateSpeed rejects non-positive and non-finite propagation speeds.
func ValidateSpeed(speed float64) error {
	if !(speed > 0) || math.IsInf(speed, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	return nil
}
