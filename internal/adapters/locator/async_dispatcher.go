package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"signal-simulation-service/internal/domain"
	"signal-simulation-service/internal/platform/logging"
	"signal-simulation-service/internal/ports"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// AsyncDispatcher makes dispatch fire-and-forget relative to the caller.
//
// Each bundle is sent on its own goroutine, detached from the caller's
// cancellation and bounded by the per-call timeout. At most maxInFlight
// sends run at once; when full, new bundles are dropped rather than queued,
// keeping delivery at-most-once and memory bounded while the locator is down.
type AsyncDispatcher struct {
	next     ports.BundleDispatcher
	observer ports.SignalObserver
	timeout  time.Duration
	sem      *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncDispatcher(
	next ports.BundleDispatcher,
	maxInFlight int64,
	timeout time.Duration,
	observer ports.SignalObserver,
) (*AsyncDispatcher, error) {
	if next == nil {
		return nil, errors.New("new async dispatcher: next dispatcher is nil")
	}
	if maxInFlight < 1 {
		return nil, fmt.Errorf("new async dispatcher: max in-flight must be >= 1, got %d", maxInFlight)
	}
	if timeout <= 0 {
		return nil, errors.New("new async dispatcher: timeout must be > 0")
	}

	return &AsyncDispatcher{
		next:     next,
		observer: observer,
		timeout:  timeout,
		sem:      semaphore.NewWeighted(maxInFlight),
	}, nil
}

// Dispatch schedules bundle for delivery and returns immediately. The only
// errors are drops (saturated or closed); delivery failures are reported to
// the observer and the log once the send finishes.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, bundle domain.SignalBundle) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		err := fmt.Errorf("%w: dispatcher closed", domain.ErrDispatchDropped)
		d.report(ctx, bundle, err)
		return err
	}
	if !d.sem.TryAcquire(1) {
		err := fmt.Errorf("%w: too many in-flight dispatches", domain.ErrDispatchDropped)
		d.report(ctx, bundle, err)
		return err
	}

	// Keep request values (request id, trace span) but not the deadline.
	sendCtx := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)

		ctx, cancel := context.WithTimeout(sendCtx, d.timeout)
		defer cancel()

		err := d.next.Dispatch(ctx, bundle)
		d.report(ctx, bundle, err)
	}()

	return nil
}

// Close stops accepting bundles and waits for in-flight sends or ctx.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close async dispatcher: %w", ctx.Err())
	}
}

func (d *AsyncDispatcher) report(ctx context.Context, bundle domain.SignalBundle, err error) {
	if d.observer != nil {
		d.observer.BundleDispatched(ctx, bundle, err)
	}

	log := logging.FromContext(ctx)
	if err != nil {
		log.WarnContext(ctx, "locator dispatch failed",
			slog.Int64("signal_ts", bundle.SignalTimestamp),
			slog.String("error", err.Error()),
		)
		return
	}
	log.InfoContext(ctx, "bundle dispatched",
		slog.Int64("signal_ts", bundle.SignalTimestamp),
		slog.Int("towers", len(bundle.Towers)),
	)
}
