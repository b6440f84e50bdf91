package domain

// A point-source event reported to the service.
// Timestamp is in milliseconds on the caller's clock. Events are not persisted.
type SignalEvent struct {
	X         int   `json:"x"`
	Y         int   `json:"y"`
	Timestamp int64 `json:"timestamp"`
}

func (s SignalEvent) Position() Point { return Point{X: s.X, Y: s.Y} }

// The time at which one tower hears one signal.
type TowerDetection struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	HeardAt int64  `json:"heard_at"`
}

// Per-signal input for the downstream locator.
// Towers keep the enumeration order of the tower store; they are not sorted by HeardAt.
type SignalBundle struct {
	SignalTimestamp int64            `json:"signal_timestamp"`
	Towers          []TowerDetection `json:"towers"`
}
