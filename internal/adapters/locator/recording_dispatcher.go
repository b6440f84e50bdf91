package locator

import (
	"context"
	"signal-simulation-service/internal/domain"
	"sync"
)

// RecordingDispatcher keeps every bundle it is given and returns Err.
// Used in tests.
type RecordingDispatcher struct {
	Err error

	mu      sync.Mutex
	bundles []domain.SignalBundle
}

func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{}
}

func (r *RecordingDispatcher) Dispatch(ctx context.Context, bundle domain.SignalBundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bundles = append(r.bundles, bundle)
	return r.Err
}

func (r *RecordingDispatcher) Bundles() []domain.SignalBundle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.SignalBundle, len(r.bundles))
	copy(out, r.bundles)
	return out
}
