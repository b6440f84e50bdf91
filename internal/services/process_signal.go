package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"signal-simulation-service/internal/domain"
	"signal-simulation-service/internal/platform/logging"
	"signal-simulation-service/internal/platform/obs"
	"signal-simulation-service/internal/ports"
)

// SignalProcessor turns one inbound signal into one outbound bundle.
// Towers are read fresh from the repository on every call.
type SignalProcessor struct {
	Repo       ports.TowerRepository
	Computer   *ArrivalComputer
	Dispatcher ports.BundleDispatcher
	Observer   ports.SignalObserver
}

// Process computes arrivals for signal and hands the bundle to the
// dispatcher. Dispatch failures are recorded but never returned: once the
// bundle is built the signal counts as accepted.
func (p *SignalProcessor) Process(ctx context.Context, signal domain.SignalEvent) (_ Arrival, err error) {
	defer obs.Time(ctx, "signal.Process")(&err)

	if p.Repo == nil || p.Computer == nil || p.Dispatcher == nil {
		return Arrival{}, errors.New("process signal: repository, computer and dispatcher must be non-nil")
	}

	observer := p.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	log := logging.FromContext(ctx)

	observer.SignalReceived(ctx, signal)
	log.InfoContext(ctx, "signal received",
		slog.Int("x", signal.X),
		slog.Int("y", signal.Y),
		slog.Int64("ts", signal.Timestamp),
	)

	towers, err := p.Repo.ListTowers(ctx)
	if err != nil {
		err = fmt.Errorf("process signal: %w: %w", domain.ErrStoreUnreachable, err)
		observer.SignalFailed(ctx, signal, err)
		return Arrival{}, err
	}

	arrival, err := p.Computer.Compute(signal, towers)
	if err != nil {
		err = fmt.Errorf("process signal: %w", err)
		observer.SignalFailed(ctx, signal, err)
		return Arrival{}, err
	}

	for i, leg := range arrival.Legs {
		log.DebugContext(ctx, "tower arrival",
			slog.String("tower", leg.TowerID),
			slog.Float64("dist", leg.Distance),
			slog.Float64("delay_ms", leg.DelayMs),
			slog.Int64("heard_at", arrival.Bundle.Towers[i].HeardAt),
		)
	}
	log.InfoContext(ctx, "arrivals computed",
		slog.Int("towers", len(arrival.Bundle.Towers)),
		slog.Int64("spread_ms", arrival.SpreadMs),
	)
	observer.ArrivalsComputed(ctx, signal, len(arrival.Bundle.Towers), arrival.SpreadMs)

	// Drops are already reported by the dispatcher that made them.
	dispatchErr := p.Dispatcher.Dispatch(ctx, arrival.Bundle)
	if dispatchErr != nil && !errors.Is(dispatchErr, domain.ErrDispatchDropped) {
		log.WarnContext(ctx, "bundle not dispatched",
			slog.Int64("signal_ts", signal.Timestamp),
			slog.String("error", dispatchErr.Error()),
		)
	}

	return arrival, nil
}

type noopObserver struct{}

func (noopObserver) SignalReceived(context.Context, domain.SignalEvent)               {}
func (noopObserver) ArrivalsComputed(context.Context, domain.SignalEvent, int, int64) {}
func (noopObserver) SignalFailed(context.Context, domain.SignalEvent, error)          {}
func (noopObserver) BundleDispatched(context.Context, domain.SignalBundle, error)     {}
