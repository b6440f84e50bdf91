package services

import (
	"context"
	"errors"
	"signal-simulation-service/internal/domain"
	"signal-simulation-service/internal/platform/logging"
	"sync"
	"testing"
	"time"
)

func TestInitializeTowersGeneratesIntoEmptyStore(t *testing.T) {
	repo := &memoryTowerRepository{}
	gen := &countingGenerator{towers: scenarioTowers()}

	res, err := InitializeTowers(context.Background(), InitializeTowersRequest{ProbeTimeout: time.Second}, repo, gen, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Generated || res.Count != 3 {
		t.Fatalf("result = %+v, want generated with 3 towers", res)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
}

func TestInitializeTowersIsIdempotent(t *testing.T) {
	repo := &memoryTowerRepository{}
	gen := &countingGenerator{towers: scenarioTowers()}
	ctx := context.Background()
	req := InitializeTowersRequest{ProbeTimeout: time.Second}

	if _, err := InitializeTowers(ctx, req, repo, gen, logging.Discard()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, _ := repo.ListTowers(ctx)

	gen.towers = []domain.Tower{{ID: "tower-1", X: 1, Y: 1}}
	for i := 0; i < 3; i++ {
		res, err := InitializeTowers(ctx, req, repo, gen, logging.Discard())
		if err != nil {
			t.Fatalf("rerun %d: %v", i, err)
		}
		if res.Generated {
			t.Fatalf("rerun %d generated towers", i)
		}
	}

	after, _ := repo.ListTowers(ctx)
	if len(after) != len(before) {
		t.Fatalf("count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("tower[%d] changed: %+v -> %+v", i, before[i], after[i])
		}
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
}

func TestInitializeTowersConcurrentInstances(t *testing.T) {
	repo := &memoryTowerRepository{}
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]InitializeTowersResult, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gen := &countingGenerator{towers: scenarioTowers()}
			results[i], errs[i] = InitializeTowers(ctx, InitializeTowersRequest{}, repo, gen, logging.Discard())
		}(i)
	}
	wg.Wait()

	generated := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("instance %d: %v", i, errs[i])
		}
		if results[i].Count != 3 {
			t.Fatalf("instance %d count = %d, want 3", i, results[i].Count)
		}
		if results[i].Generated {
			generated++
		}
	}
	if generated != 1 || repo.inserts != 1 {
		t.Fatalf("generated = %d, inserts = %d; want 1, 1", generated, repo.inserts)
	}
}

func TestInitializeTowersStoreUnreachable(t *testing.T) {
	repo := &memoryTowerRepository{pingErr: errors.New("connection refused")}
	gen := &countingGenerator{towers: scenarioTowers()}

	_, err := InitializeTowers(context.Background(), InitializeTowersRequest{ProbeTimeout: 10 * time.Millisecond}, repo, gen, logging.Discard())
	if !errors.Is(err, domain.ErrStoreUnreachable) {
		t.Fatalf("err = %v, want ErrStoreUnreachable", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator ran against an unreachable store")
	}
}

func TestInitializeTowersPlacementInfeasible(t *testing.T) {
	repo := &memoryTowerRepository{}
	gen := &countingGenerator{err: domain.ErrPlacementInfeasible}

	_, err := InitializeTowers(context.Background(), InitializeTowersRequest{}, repo, gen, logging.Discard())
	if !errors.Is(err, domain.ErrPlacementInfeasible) {
		t.Fatalf("err = %v, want ErrPlacementInfeasible", err)
	}
	if n, _ := repo.CountTowers(context.Background()); n != 0 {
		t.Fatalf("towers persisted after failure: %d", n)
	}
}

type fakeLocker struct {
	mu       sync.Mutex
	acquired int
	released int
	err      error
}

func (l *fakeLocker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

func TestInitializeTowersUsesLocker(t *testing.T) {
	repo := &memoryTowerRepository{}
	gen := &countingGenerator{towers: scenarioTowers()}
	locker := &fakeLocker{}

	if _, err := InitializeTowers(context.Background(), InitializeTowersRequest{Locker: locker}, repo, gen, logging.Discard()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if locker.acquired != 1 || locker.released != 1 {
		t.Fatalf("acquired = %d, released = %d; want 1, 1", locker.acquired, locker.released)
	}

	// Populated store: no lock needed.
	if _, err := InitializeTowers(context.Background(), InitializeTowersRequest{Locker: locker}, repo, gen, logging.Discard()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if locker.acquired != 1 {
		t.Fatalf("acquired = %d, want 1", locker.acquired)
	}
}

func TestInitializeTowersLockFailure(t *testing.T) {
	repo := &memoryTowerRepository{}
	gen := &countingGenerator{towers: scenarioTowers()}
	locker := &fakeLocker{err: errors.New("redis down")}

	if _, err := InitializeTowers(context.Background(), InitializeTowersRequest{Locker: locker}, repo, gen, logging.Discard()); err == nil {
		t.Fatal("expected error when the init lock cannot be acquired")
	}
	if gen.calls != 0 {
		t.Fatal("generator ran without the lock")
	}
}

// mutexLocker serializes holders and only hands out the lock once
// `parties` callers are waiting, so every caller sees an empty store first.
type mutexLocker struct {
	mu      sync.Mutex
	arrived sync.WaitGroup
}

func newMutexLocker(parties int) *mutexLocker {
	l := &mutexLocker{}
	l.arrived.Add(parties)
	return l
}

func (l *mutexLocker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	l.arrived.Done()
	l.arrived.Wait()
	l.mu.Lock()
	return func(context.Context) error {
		l.mu.Unlock()
		return nil
	}, nil
}

func TestInitializeTowersLockPreventsRedundantGeneration(t *testing.T) {
	const instances = 4
	repo := &memoryTowerRepository{}
	gen := &countingGenerator{towers: scenarioTowers()}
	locker := newMutexLocker(instances)

	var wg sync.WaitGroup
	errs := make([]error, instances)
	for i := 0; i < instances; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = InitializeTowers(context.Background(), InitializeTowersRequest{Locker: locker}, repo, gen, logging.Discard())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("instance %d: %v", i, err)
		}
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
	if repo.inserts != 1 {
		t.Fatalf("inserts = %d, want 1", repo.inserts)
	}
}
