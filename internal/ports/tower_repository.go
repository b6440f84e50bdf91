package ports

import (
	"context"
	"signal-simulation-service/internal/domain"
)

// Port: a boundary for the persisted tower set.
type TowerRepository interface {
	// Verify the store is reachable.
	Ping(ctx context.Context) error
	// Count all persisted towers.
	CountTowers(ctx context.Context) (int, error)
	// Return all towers in insertion order.
	ListTowers(ctx context.Context) ([]domain.Tower, error)
	// Insert the whole batch atomically, but only when the store holds no towers.
	// Reports whether the batch was written.
	InsertTowersIfEmpty(ctx context.Context, towers []domain.Tower) (bool, error)
}
