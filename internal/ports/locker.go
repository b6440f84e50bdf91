package ports

import "context"

// Cross-instance mutual exclusion used around one-time initialization.
type Locker interface {
	// Block until the named lock is held or ctx is done. The returned
	// function releases the lock.
	Acquire(ctx context.Context, name string) (release func(context.Context) error, err error)
}
