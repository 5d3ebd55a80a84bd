package local

import (
	"context"
	"sync"

	lock "score/internal/lock/iface"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// KeyLocker is an in-process KeyLocker. Entries are reference counted and
// dropped once nobody holds or waits on them.
type KeyLocker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

var _ lock.KeyLocker = (*KeyLocker)(nil)

func NewKeyLocker() *KeyLocker {
	return &KeyLocker{locks: make(map[string]*entry)}
}

func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *KeyLocker) release(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// Len reports how many keys are currently held or awaited
func (l *KeyLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
