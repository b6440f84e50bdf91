package domain

import "fmt"

// Represents a single detector placed in the world.
// A Tower is identified by its ID and is immutable once placed for a
// simulation run; it only changes when the tower store is reset.
type Tower struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}

func (t Tower) Position() Point { return Point{X: t.X, Y: t.Y} }

// TowerID returns the identifier assigned to the n-th generated tower (1-based).
func TowerID(n int) string { return fmt.Sprintf("tower-%d", n) }
