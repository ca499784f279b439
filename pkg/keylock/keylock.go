// Package keylock provides a registry of per-key mutual exclusion gates.
// Callers holding different keys never block each other.
package keylock

import (
	"context"
	"sync"
)

type gate struct {
	ch   chan struct{}
	refs int
}

// KeyLock hands out one gate per key. Gates are created on first use and
// released when no caller holds or waits on them.
type KeyLock struct {
	mu    sync.Mutex
	gates map[string]*gate
}

func New() *KeyLock {
	return &KeyLock{gates: make(map[string]*gate)}
}

// Lock blocks until the gate for key is acquired or ctx is done. On success
// the returned function releases the gate and must be called exactly once.
func (l *KeyLock) Lock(ctx context.Context, key string) (func(), error) {
	g := l.acquireRef(key)

	select {
	case g.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseRef(key, g)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-g.ch
			l.releaseRef(key, g)
		})
	}, nil
}

// Len returns the number of live gates.
func (l *KeyLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.gates)
}

func (l *KeyLock) acquireRef(key string) *gate {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.gates[key]
	if !ok {
		g = &gate{ch: make(chan struct{}, 1)}
		l.gates[key] = g
	}
	g.refs++
	return g
}

func (l *KeyLock) releaseRef(key string, g *gate) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g.refs--
	if g.refs == 0 {
		delete(l.gates, key)
	}
}
