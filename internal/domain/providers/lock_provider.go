package providers

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when a lock could not be acquired before the wait expired
var ErrLockTimeout = errors.New("lock: timed out waiting for lock")

// Locker provides mutual exclusion scoped to a key
type Locker interface {
	// Lock blocks until the lock for key is held, the wait expires or ctx is
	// done. The returned release function must be called exactly once.
	Lock(ctx context.Context, key string) (release func(), err error)
}
