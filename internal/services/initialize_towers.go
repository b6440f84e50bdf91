package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"signal-simulation-service/internal/domain"
	"signal-simulation-service/internal/ports"
	"time"
)

// Lock name shared by every instance initializing the same store.
const InitLockName = "towers:init"

// Anything that can produce a tower layout.
type TowerGenerator interface {
	Generate() ([]domain.Tower, error)
}

type InitializeTowersRequest struct {
	ProbeTimeout time.Duration
	// Optional cross-instance lock; the repository's InsertTowersIfEmpty is
	// already atomic, the lock only avoids redundant generation work.
	Locker ports.Locker
}

type InitializeTowersResult struct {
	Generated bool
	Count     int
}

// InitializeTowers makes sure the store holds a tower layout, generating and
// persisting one only when the store is empty. Running it again against a
// populated store changes nothing.
func InitializeTowers(
	ctx context.Context,
	req InitializeTowersRequest,
	repo ports.TowerRepository,
	gen TowerGenerator,
	log *slog.Logger,
) (InitializeTowersResult, error) {
	if repo == nil || gen == nil {
		return InitializeTowersResult{}, errors.New("initialize towers: repository and generator must be non-nil")
	}
	if log == nil {
		log = slog.Default()
	}

	timeout := req.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	log.InfoContext(ctx, "probing tower store", slog.Duration("timeout", timeout))
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	err := repo.Ping(probeCtx)
	cancel()
	if err != nil {
		return InitializeTowersResult{}, fmt.Errorf("initialize towers: %w: %w", domain.ErrStoreUnreachable, err)
	}

	existing, err := repo.CountTowers(ctx)
	if err != nil {
		return InitializeTowersResult{}, fmt.Errorf("initialize towers: %w: %w", domain.ErrStoreUnreachable, err)
	}
	if existing > 0 {
		log.InfoContext(ctx, "towers already exist", slog.Int("count", existing))
		return InitializeTowersResult{Count: existing}, nil
	}

	if req.Locker != nil {
		release, err := req.Locker.Acquire(ctx, InitLockName)
		if err != nil {
			return InitializeTowersResult{}, fmt.Errorf("initialize towers: acquire init lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.WarnContext(ctx, "release init lock failed", slog.String("error", err.Error()))
			}
		}()

		// Another instance may have finished while we waited for the lock.
		n, err := repo.CountTowers(ctx)
		if err != nil {
			return InitializeTowersResult{}, fmt.Errorf("initialize towers: %w: %w", domain.ErrStoreUnreachable, err)
		}
		if n > 0 {
			log.InfoContext(ctx, "towers initialized by another instance", slog.Int("count", n))
			return InitializeTowersResult{Count: n}, nil
		}
	}

	towers, err := gen.Generate()
	if err != nil {
		return InitializeTowersResult{}, fmt.Errorf("initialize towers: %w", err)
	}

	inserted, err := repo.InsertTowersIfEmpty(ctx, towers)
	if err != nil {
		return InitializeTowersResult{}, fmt.Errorf("initialize towers: persist layout: %w", err)
	}

	count, err := repo.CountTowers(ctx)
	if err != nil {
		return InitializeTowersResult{}, fmt.Errorf("initialize towers: %w: %w", domain.ErrStoreUnreachable, err)
	}

	if inserted {
		log.InfoContext(ctx, "inserted towers", slog.Int("count", count))
	} else {
		log.InfoContext(ctx, "another instance initialized towers first", slog.Int("count", count))
	}

	return InitializeTowersResult{Generated: inserted, Count: count}, nil
}
