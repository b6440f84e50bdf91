package domain

import (
	"fmt"
	"math"
)

// Tower layout aggregate under construction.
// Capacity bounds the number of towers; MinDistance is the minimum spacing
// between any two placed towers (zero disables the check).
type Layout struct {
	Capacity    int
	MinDistance float64
	Towers      []Tower
}

func NewLayout(capacity int, minDistance float64) *Layout {
	return &Layout{
		Capacity:    capacity,
		MinDistance: minDistance,
		Towers:      make([]Tower, 0, capacity),
	}
}

// Full reports whether the layout holds Capacity towers.
func (l *Layout) Full() bool { return len(l.Towers) >= l.Capacity }

// Fits reports whether p keeps MinDistance to every placed tower.
func (l *Layout) Fits(p Point) bool {
	for _, t := range l.Towers {
		if Distance(t.Position(), p) < l.MinDistance {
			return false
		}
	}
	return true
}

// Place a tower at p, assigning the next sequential ID.
func (l *Layout) Place(p Point) (Tower, error) {
	if l.Full() {
		return Tower{}, fmt.Errorf("place tower: layout is at full capacity (capacity=%d)", l.Capacity)
	}
	if !l.Fits(p) {
		return Tower{}, fmt.Errorf("place tower: (%d,%d) closer than %.1f to an existing tower", p.X, p.Y, l.MinDistance)
	}

	t := Tower{ID: TowerID(len(l.Towers) + 1), X: p.X, Y: p.Y}
	l.Towers = append(l.Towers, t)
	return t, nil
}

// MinPairwiseDistance returns the smallest distance between any two towers,
// or +Inf for fewer than two towers.
func MinPairwiseDistance(towers []Tower) float64 {
	minDist := math.Inf(1)
	for i := range towers {
		for j := i + 1; j < len(towers); j++ {
			if d := Distance(towers[i].Position(), towers[j].Position()); d < minDist {
				minDist = d
			}
		}
	}
	return minDist
}
