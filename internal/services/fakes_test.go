package services

import (
	"context"
	"errors"
	"signal-simulation-service/internal/domain"
	"sync"
)

// memoryTowerRepository is an in-process TowerRepository for tests.
type memoryTowerRepository struct {
	mu      sync.Mutex
	towers  []domain.Tower
	pingErr error
	listErr error
	inserts int
}

func (m *memoryTowerRepository) Ping(ctx context.Context) error {
	if m.pingErr != nil {
		return m.pingErr
	}
	return ctx.Err()
}

func (m *memoryTowerRepository) CountTowers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.towers), nil
}

func (m *memoryTowerRepository) ListTowers(context.Context) ([]domain.Tower, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Tower, len(m.towers))
	copy(out, m.towers)
	return out, nil
}

func (m *memoryTowerRepository) InsertTowersIfEmpty(_ context.Context, towers []domain.Tower) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(towers) == 0 {
		return false, errors.New("empty batch")
	}
	if len(m.towers) > 0 {
		return false, nil
	}
	m.towers = append([]domain.Tower(nil), towers...)
	m.inserts++
	return true, nil
}

type countingGenerator struct {
	mu     sync.Mutex
	calls  int
	towers []domain.Tower
	err    error
}

func (g *countingGenerator) Generate() ([]domain.Tower, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return append([]domain.Tower(nil), g.towers...), nil
}

type recordedFailure struct {
	signal domain.SignalEvent
	err    error
}

type spyObserver struct {
	mu       sync.Mutex
	received int
	computed []int64
	failures []recordedFailure
}

func (s *spyObserver) SignalReceived(context.Context, domain.SignalEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received++
}

func (s *spyObserver) ArrivalsComputed(_ context.Context, _ domain.SignalEvent, _ int, spread int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.computed = append(s.computed, spread)
}

func (s *spyObserver) SignalFailed(_ context.Context, signal domain.SignalEvent, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, recordedFailure{signal: signal, err: err})
}

func (s *spyObserver) BundleDispatched(context.Context, domain.SignalBundle, error) {}
