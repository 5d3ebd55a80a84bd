package zookeeper

import (
	"context"
	"path"

	coordinator "score/internal/coordinator/iface"
	lock "score/internal/lock/iface"
)

// DefaultLockRoot is the znode under which per-key locks are created
const DefaultLockRoot = "/score/locks"

type zkLocker struct {
	coord coordinator.Coordinator
	root  string
}

// NewKeyLocker maps each key onto a ZooKeeper lock recipe at <root>/<key>
func NewKeyLocker(coord coordinator.Coordinator, root string) lock.KeyLocker {
	if root == "" {
		root = DefaultLockRoot
	}
	return &zkLocker{coord: coord, root: root}
}

func (l *zkLocker) Lock(ctx context.Context, key string) (func(), error) {
	return l.coord.Lock(ctx, path.Join(l.root, key))
}
