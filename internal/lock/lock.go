// Package lock serializes work per key, either inside one process or across
// replicas through redis.
package lock

import (
	"context"
)

// Locker acquires an exclusive lock on key. The returned release func must be
// called exactly once; it never blocks on the lock itself.
type Locker interface {
	Lock(c context.Context, key string) (release func(), err error)
}
