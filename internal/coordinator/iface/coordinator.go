package coordinator

import (
	"context"
	"errors"
)

// ErrNodeNotFound is returned by GetNode when the path does not exist
var ErrNodeNotFound = errors.New("node not found")

// Coordinator defines ZooKeeper operations for distributed coordination
type Coordinator interface {
	CreateNode(path string, data []byte) error
	GetNode(path string) ([]byte, error)
	UpdateNode(path string, data []byte) error
	WatchNode(path string, handler func([]byte)) error
	// Lock takes the distributed lock rooted at path. The returned func releases it.
	Lock(ctx context.Context, path string) (func(), error)
	Close() error
}
