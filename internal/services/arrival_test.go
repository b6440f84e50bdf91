package services

import (
	"errors"
	"math"
	"math/rand/v2"
	"signal-simulation-service/internal/domain"
	"testing"
)

func scenarioTowers() []domain.Tower {
	return []domain.Tower{
		{ID: "tower-1", X: 500, Y: 200},
		{ID: "tower-2", X: 340, Y: 380},
		{ID: "tower-3", X: 660, Y: 380},
	}
}

func TestArrivalComputerScenario(t *testing.T) {
	c, err := NewArrivalComputer(domain.DefaultSpeedOfSound)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	signal := domain.SignalEvent{X: 500, Y: 500, Timestamp: 1000}
	arrival, err := c.Compute(signal, scenarioTowers())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Distances 300, 200, 200 -> delays 874.6ms, 583.1ms, 583.1ms (floored).
	wantHeard := []int64{1874, 1583, 1583}
	wantDist := []float64{300, 200, 200}

	if arrival.Bundle.SignalTimestamp != 1000 {
		t.Fatalf("signal_timestamp = %d, want 1000", arrival.Bundle.SignalTimestamp)
	}
	if len(arrival.Bundle.Towers) != 3 {
		t.Fatalf("towers = %d, want 3", len(arrival.Bundle.Towers))
	}
	for i, d := range arrival.Bundle.Towers {
		if d.ID != scenarioTowers()[i].ID {
			t.Fatalf("tower[%d].ID = %q, want enumeration order", i, d.ID)
		}
		if d.HeardAt != wantHeard[i] {
			t.Fatalf("tower[%d].HeardAt = %d, want %d", i, d.HeardAt, wantHeard[i])
		}
		if math.Abs(arrival.Legs[i].Distance-wantDist[i]) > 1e-9 {
			t.Fatalf("leg[%d].Distance = %v, want %v", i, arrival.Legs[i].Distance, wantDist[i])
		}
	}
	if arrival.SpreadMs != 291 {
		t.Fatalf("spread = %d, want 291", arrival.SpreadMs)
	}
}

func TestArrivalComputerNoTowers(t *testing.T) {
	c, _ := NewArrivalComputer(domain.DefaultSpeedOfSound)

	_, err := c.Compute(domain.SignalEvent{X: 1, Y: 1, Timestamp: 1}, nil)
	if !errors.Is(err, domain.ErrNoTowers) {
		t.Fatalf("err = %v, want ErrNoTowers", err)
	}
}

func TestNewArrivalComputerRejectsInvalidSpeed(t *testing.T) {
	for _, speed := range []float64{0, -1} {
		if _, err := NewArrivalComputer(speed); !errors.Is(err, domain.ErrInvalidSpeed) {
			t.Fatalf("speed %v: err = %v, want ErrInvalidSpeed", speed, err)
		}
	}
}

func TestArrivalHeardAtNeverBeforeSignal(t *testing.T) {
	c, _ := NewArrivalComputer(domain.DefaultSpeedOfSound)
	rng := seeded(99)

	for i := 0; i < 500; i++ {
		towers := make([]domain.Tower, 1+rng.IntN(6))
		for j := range towers {
			towers[j] = domain.Tower{ID: domain.TowerID(j + 1), X: rng.IntN(1001), Y: rng.IntN(1001)}
		}
		signal := domain.SignalEvent{X: rng.IntN(1001), Y: rng.IntN(1001), Timestamp: rand.Int64N(1 << 40)}

		arrival, err := c.Compute(signal, towers)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(arrival.Bundle.Towers) != len(towers) {
			t.Fatalf("bundle has %d towers, want %d", len(arrival.Bundle.Towers), len(towers))
		}
		for _, d := range arrival.Bundle.Towers {
			if d.HeardAt < signal.Timestamp {
				t.Fatalf("heard_at %d < signal timestamp %d", d.HeardAt, signal.Timestamp)
			}
		}
		if arrival.SpreadMs < 0 {
			t.Fatalf("negative spread %d", arrival.SpreadMs)
		}
	}
}

func TestArrivalSpreadZeroWhenEquidistant(t *testing.T) {
	c, _ := NewArrivalComputer(domain.DefaultSpeedOfSound)

	// All four towers are 300 units from (500, 500).
	towers := []domain.Tower{
		{ID: "tower-1", X: 500, Y: 200},
		{ID: "tower-2", X: 800, Y: 500},
		{ID: "tower-3", X: 500, Y: 800},
		{ID: "tower-4", X: 200, Y: 500},
	}
	arrival, err := c.Compute(domain.SignalEvent{X: 500, Y: 500, Timestamp: 5}, towers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arrival.SpreadMs != 0 {
		t.Fatalf("spread = %d, want 0", arrival.SpreadMs)
	}

	// Moving the source breaks the symmetry.
	arrival, err = c.Compute(domain.SignalEvent{X: 400, Y: 500, Timestamp: 5}, towers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arrival.SpreadMs == 0 {
		t.Fatal("spread = 0 for a non-equidistant source")
	}
}

func TestArrivalSignalAtTower(t *testing.T) {
	c, _ := NewArrivalComputer(domain.DefaultSpeedOfSound)

	arrival, err := c.Compute(domain.SignalEvent{X: 500, Y: 200, Timestamp: 77}, scenarioTowers()[:1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := arrival.Bundle.Towers[0].HeardAt; got != 77 {
		t.Fatalf("heard_at = %d, want 77", got)
	}
	if arrival.SpreadMs != 0 {
		t.Fatalf("spread = %d, want 0 for a single tower", arrival.SpreadMs)
	}
}

func TestArrivalRejectsOutOfRangeTimes(t *testing.T) {
	c, _ := NewArrivalComputer(domain.DefaultSpeedOfSound)
	towers := []domain.Tower{{ID: "tower-1", X: 0, Y: 0}}

	tests := []struct {
		name   string
		signal domain.SignalEvent
	}{
		{name: "timestamp overflows", signal: domain.SignalEvent{X: 500, Y: 500, Timestamp: math.MaxInt64 - 1000}},
		{name: "delay exceeds int64", signal: domain.SignalEvent{X: math.MaxInt, Y: math.MaxInt, Timestamp: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Compute(tc.signal, towers)
			if !errors.Is(err, domain.ErrArrivalOutOfRange) {
				t.Fatalf("err = %v, want ErrArrivalOutOfRange", err)
			}
		})
	}
}

func TestArrivalExtremeCoordinatesDoNotWrap(t *testing.T) {
	c, _ := NewArrivalComputer(1e12)

	// 2^62 - (-2^62) wraps when subtracted as int64.
	towers := []domain.Tower{{ID: "tower-1", X: -(1 << 62), Y: 0}}
	arrival, err := c.Compute(domain.SignalEvent{X: 1 << 62, Y: 0, Timestamp: 10}, towers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arrival.Legs[0].Distance < 9e18 {
		t.Fatalf("distance = %v, want ~9.2e18", arrival.Legs[0].Distance)
	}
	if got := arrival.Bundle.Towers[0].HeardAt; got < 10 {
		t.Fatalf("heard_at = %d, want >= 10", got)
	}
}
