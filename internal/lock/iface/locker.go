package lock

import "context"

// KeyLocker serializes work per key. Different keys never block each other.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
