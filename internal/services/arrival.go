package services

import (
	"fmt"
	"math"
	"signal-simulation-service/internal/domain"
)

// Per-tower intermediate values, kept for logging.
type ArrivalLeg struct {
	TowerID  string
	Distance float64
	DelayMs  float64
}

// Result of computing arrivals for one signal.
type Arrival struct {
	Bundle   domain.SignalBundle
	Legs     []ArrivalLeg
	SpreadMs int64
}

// ArrivalComputer converts a signal event into per-tower arrival times.
// It holds no mutable state and is safe for concurrent use.
type ArrivalComputer struct {
	speed float64
}

func NewArrivalComputer(speed float64) (*ArrivalComputer, error) {
	if err := domain.ValidateSpeed(speed); err != nil {
		return nil, fmt.Errorf("new arrival computer: %w", err)
	}
	return &ArrivalComputer{speed: speed}, nil
}

func (c *ArrivalComputer) Speed() float64 { return c.speed }

// Compute builds the SignalBundle for signal over towers, preserving tower order.
//
// Rounding: the millisecond delay is floored before it is added to the
// signal timestamp. Delays are never negative, so this equals truncation.
func (c *ArrivalComputer) Compute(signal domain.SignalEvent, towers []domain.Tower) (Arrival, error) {
	if len(towers) == 0 {
		return Arrival{}, fmt.Errorf("compute arrivals: %w", domain.ErrNoTowers)
	}

	source := signal.Position()
	detections := make([]domain.TowerDetection, 0, len(towers))
	legs := make([]ArrivalLeg, 0, len(towers))

	earliest, latest := int64(math.MaxInt64), int64(math.MinInt64)
	for _, t := range towers {
		dist := domain.Distance(source, t.Position())
		delay, err := domain.PropagationDelayMs(dist, c.speed)
		if err != nil {
			return Arrival{}, fmt.Errorf("compute arrivals: tower %s: %w", t.ID, err)
		}

		heardAt, err := arrivalTime(signal.Timestamp, delay)
		if err != nil {
			return Arrival{}, fmt.Errorf("compute arrivals: tower %s: %w", t.ID, err)
		}
		earliest = min(earliest, heardAt)
		latest = max(latest, heardAt)

		detections = append(detections, domain.TowerDetection{
			ID:      t.ID,
			X:       t.X,
			Y:       t.Y,
			HeardAt: heardAt,
		})
		legs = append(legs, ArrivalLeg{TowerID: t.ID, Distance: dist, DelayMs: delay})
	}

	return Arrival{
		Bundle: domain.SignalBundle{
			SignalTimestamp: signal.Timestamp,
			Towers:          detections,
		},
		Legs:     legs,
		SpreadMs: latest - earliest,
	}, nil
}

// Largest delay converted to int64; well inside the exactly representable float range.
const maxDelayMs = float64(1 << 62)

func arrivalTime(ts int64, delayMs float64) (int64, error) {
	if !(delayMs < maxDelayMs) {
		return 0, fmt.Errorf("%w: delay %.0fms", domain.ErrArrivalOutOfRange, delayMs)
	}
	heardAt := ts + int64(math.Floor(delayMs))
	if heardAt < ts {
		return 0, fmt.Errorf("%w: timestamp %d + delay %.0fms overflows", domain.ErrArrivalOutOfRange, ts, delayMs)
	}
	return heardAt, nil
}
