package ports

import (
	"context"
	"signal-simulation-service/internal/domain"
)

// Contract for forwarding a SignalBundle to the downstream locator.
type BundleDispatcher interface {
	// Deliver one bundle. Implementations do not retry.
	Dispatch(ctx context.Context, bundle domain.SignalBundle) error
}

// Optional instrumentation hooks around signal processing.
type SignalObserver interface {
	SignalReceived(ctx context.Context, signal domain.SignalEvent)
	ArrivalsComputed(ctx context.Context, signal domain.SignalEvent, towers int, spreadMs int64)
	SignalFailed(ctx context.Context, signal domain.SignalEvent, err error)
	BundleDispatched(ctx context.Context, bundle domain.SignalBundle, err error)
}
