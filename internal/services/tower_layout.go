package services

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"signal-simulation-service/internal/domain"
)

type PlacementPolicy string

const (
	// Rejection-sample random positions that keep MinDistance from every placed tower.
	PolicyConstrainedRandom PlacementPolicy = "random"
	// Evenly spaced points on a circle around the world centre, plus small jitter.
	PolicyCircle PlacementPolicy = "circle"
)

type LayoutConfig struct {
	Policy      PlacementPolicy
	Count       int
	WorldSize   int
	MinDistance float64
	MaxAttempts int

	// Circle policy only.
	Radius  int
	Jitter  int
	Padding int
}

func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Policy:      PolicyConstrainedRandom,
		Count:       3,
		WorldSize:   1000,
		MinDistance: 200,
		MaxAttempts: 1000,
		Radius:      300,
		Jitter:      10,
		Padding:     50,
	}
}

func (c LayoutConfig) Validate() error {
	if c.Count < 1 {
		return fmt.Errorf("layout config: tower count must be >= 1, got %d", c.Count)
	}
	if c.WorldSize <= 0 {
		return fmt.Errorf("layout config: world size must be > 0, got %d", c.WorldSize)
	}
	switch c.Policy {
	case PolicyConstrainedRandom:
		if c.MaxAttempts < 1 {
			return fmt.Errorf("layout config: max attempts must be >= 1, got %d", c.MaxAttempts)
		}
		if c.MinDistance < 0 {
			return fmt.Errorf("layout config: min distance must be >= 0, got %v", c.MinDistance)
		}
	case PolicyCircle:
		if c.Radius < 0 || c.Jitter < 0 || c.Padding < 0 {
			return errors.New("layout config: radius, jitter and padding must be >= 0")
		}
	default:
		return fmt.Errorf("layout config: unknown placement policy %q", c.Policy)
	}
	return nil
}

// TowerLayoutGenerator produces tower layouts for a bounded square world.
// It is pure: persistence is the caller's job. Not safe for concurrent use
// because the random source is not.
type TowerLayoutGenerator struct {
	cfg LayoutConfig
	rng *rand.Rand
}

// NewTowerLayoutGenerator validates cfg. A nil rng is replaced by a randomly seeded PCG.
func NewTowerLayoutGenerator(cfg LayoutConfig, rng *rand.Rand) (*TowerLayoutGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &TowerLayoutGenerator{cfg: cfg, rng: rng}, nil
}

// Generate returns exactly cfg.Count towers named tower-1..tower-N in
// generation order, or an error wrapping domain.ErrPlacementInfeasible.
func (g *TowerLayoutGenerator) Generate() ([]domain.Tower, error) {
	switch g.cfg.Policy {
	case PolicyCircle:
		return g.circle()
	default:
		return g.constrainedRandom()
	}
}

func (g *TowerLayoutGenerator) constrainedRandom() ([]domain.Tower, error) {
	cfg := g.cfg
	layout := domain.NewLayout(cfg.Count, cfg.MinDistance)

	// Every sample counts against the budget, accepted or not.
	attempts := 0
	for !layout.Full() && attempts < cfg.MaxAttempts {
		attempts++
		p := domain.Point{
			X: g.rng.IntN(cfg.WorldSize + 1),
			Y: g.rng.IntN(cfg.WorldSize + 1),
		}
		if !layout.Fits(p) {
			continue
		}
		if _, err := layout.Place(p); err != nil {
			return nil, fmt.Errorf("generate towers: %w", err)
		}
	}

	if !layout.Full() {
		return nil, fmt.Errorf(
			"generate towers: %w: placed %d of %d towers after %d attempts (world_size=%d, min_distance=%.1f)",
			domain.ErrPlacementInfeasible, len(layout.Towers), cfg.Count, attempts, cfg.WorldSize, cfg.MinDistance,
		)
	}

	return layout.Towers, nil
}

func (g *TowerLayoutGenerator) circle() ([]domain.Tower, error) {
	cfg := g.cfg
	lo, hi := cfg.Padding, cfg.WorldSize-cfg.Padding
	if lo > hi {
		return nil, fmt.Errorf("generate towers: %w: padding %d leaves no room in world of size %d",
			domain.ErrPlacementInfeasible, cfg.Padding, cfg.WorldSize)
	}

	centre := float64(cfg.WorldSize) / 2
	if centre-float64(cfg.Radius) < float64(lo) || centre+float64(cfg.Radius) > float64(hi) {
		return nil, fmt.Errorf("generate towers: %w: radius %d does not fit inside padding %d of world %d",
			domain.ErrPlacementInfeasible, cfg.Radius, cfg.Padding, cfg.WorldSize)
	}

	layout := domain.NewLayout(cfg.Count, 0)
	step := 2 * math.Pi / float64(cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		// Start at the top of the world; y grows downwards.
		angle := math.Pi/2 + float64(i)*step
		x := int(math.Round(centre+float64(cfg.Radius)*math.Cos(angle))) + g.jitter()
		y := int(math.Round(centre-float64(cfg.Radius)*math.Sin(angle))) + g.jitter()

		if _, err := layout.Place(domain.Point{X: clamp(x, lo, hi), Y: clamp(y, lo, hi)}); err != nil {
			return nil, fmt.Errorf("generate towers: %w", err)
		}
	}

	return layout.Towers, nil
}

// Uniform integer in [-Jitter, Jitter].
func (g *TowerLayoutGenerator) jitter() int {
	if g.cfg.Jitter == 0 {
		return 0
	}
	return g.rng.IntN(2*g.cfg.Jitter+1) - g.cfg.Jitter
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
